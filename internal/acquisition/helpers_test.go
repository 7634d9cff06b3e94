package acquisition

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

type zipMember struct {
	name string
	data []byte
}

func writeZip(t testing.TB, path string, members []zipMember) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, m := range members {
		w, err := zw.Create(m.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(m.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func gzipBytes(t testing.TB, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// datasetsZip builds the archive layout the datasets CLI produces for accs.
func datasetsZip(accs []string) []zipMember {
	var report strings.Builder
	var members []zipMember
	for i, acc := range accs {
		fmt.Fprintf(&report, `{"accession":%q,"organism":{"organismName":"Escherichia coli","taxId":%d}}`+"\n", acc, 562+i)
		members = append(members, zipMember{
			name: "ncbi_dataset/data/" + acc + "/" + acc + "_ASM_genomic.fna",
			data: []byte(">" + acc + "\nACGT\n"),
		})
	}
	members = append(members, zipMember{name: "ncbi_dataset/data/assembly_data_report.jsonl", data: []byte(report.String())})
	return members
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
