package acquisition

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOrganismSlug(t *testing.T) {
	tests := map[string]string{
		"Escherichia coli":           "escherichia_coli",
		"Escherichia coli str. K-12": "escherichia_coli_str_k-12",
		"Homo sapiens (human)":       "homo_sapiens_human",
		"":                           "",
	}
	for in, want := range tests {
		if got := OrganismSlug(in); got != want {
			t.Errorf("OrganismSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadMetadata(t *testing.T) {
	input := `{"accession":"GCF_000005845.2","organism":{"organismName":"Escherichia coli","taxId":511145}}
not json
{"accession":"GCA_000001405.29","organism":{"taxId":"9606"}}
{"organism":{"organismName":"no accession"}}
`
	meta := ReadMetadata(strings.NewReader(input))
	if len(meta) != 2 {
		t.Fatalf("len(meta) = %d, want 2: %v", len(meta), meta)
	}
	if m := meta["GCF_000005845.2"]; m.Organism != "Escherichia coli" || m.TaxID != "511145" {
		t.Errorf("GCF_000005845.2 = %+v", m)
	}
	if m := meta["GCA_000001405.29"]; m.Organism != "unknown" || m.TaxID != "9606" {
		t.Errorf("GCA_000001405.29 = %+v", m)
	}
}

func TestGenomeFolder(t *testing.T) {
	got := GenomeFolder("GCF_000005845.2", Metadata{Organism: "Escherichia coli", TaxID: "562"})
	if got != "escherichia_coli_562_GCF_000005845_2" {
		t.Errorf("GenomeFolder() = %q", got)
	}
	if got := GenomeFolder("GCA_000000001.1", Metadata{}); got != "unknown_unknown_GCA_000000001_1" {
		t.Errorf("GenomeFolder(no meta) = %q", got)
	}
}

func TestExtractBatch(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "batch.zip")
	genomes := filepath.Join(dir, "genomes")

	writeZip(t, zipPath, []zipMember{
		{"ncbi_dataset/data/assembly_data_report.jsonl", []byte(
			`{"accession":"GCF_000005845.2","organism":{"organismName":"Escherichia coli","taxId":562}}` + "\n" +
				`{"accession":"GCA_000001405.29","organism":{"organismName":"Homo sapiens","taxId":9606}}` + "\n")},
		{"ncbi_dataset/data/GCF_000005845.2/GCF_000005845.2_ASM584v2_genomic.fna", []byte(">ecoli\nACGT\n")},
		{"ncbi_dataset/data/GCA_000001405.29/GCA_000001405.29_GRCh38_genomic.fna.gz", gzipBytes(t, []byte(">human\nTTTT\n"))},
		{"ncbi_dataset/data/GCF_999999999.1/GCF_999999999.1_other_genomic.fna", []byte(">other\n")},
		{"ncbi_dataset/data/GCF_000005845.2/cds_from_genomic.fna.txt", []byte("x")},
		{"README.md", []byte("readme")},
	})

	n, err := ExtractBatch(zipPath, genomes, []string{"GCF_000005845.2", "GCA_000001405.29"})
	if err != nil {
		t.Fatalf("ExtractBatch() error = %v", err)
	}
	if n != 2 {
		t.Errorf("extracted = %d, want 2", n)
	}

	ecoli, err := os.ReadFile(filepath.Join(genomes, "escherichia_coli_562_GCF_000005845_2", "GENOME_GCF_000005845_2.fna"))
	if err != nil || string(ecoli) != ">ecoli\nACGT\n" {
		t.Errorf("ecoli genome = %q, %v", ecoli, err)
	}
	human, err := os.ReadFile(filepath.Join(genomes, "homo_sapiens_9606_GCA_000001405_29", "GENOME_GCA_000001405_29.fna"))
	if err != nil || string(human) != ">human\nTTTT\n" {
		t.Errorf("human genome = %q, %v", human, err)
	}
	if _, err := os.Stat(filepath.Join(genomes, "unknown_unknown_GCF_999999999_1")); !os.IsNotExist(err) {
		t.Error("accession outside the batch should not be extracted")
	}
}

func TestExtractBatchBadZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "broken.zip")
	if err := os.WriteFile(zipPath, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractBatch(zipPath, dir, []string{"GCF_000005845.2"}); err == nil {
		t.Error("expected error for a corrupt archive")
	}
}

func TestWriteGenomeList(t *testing.T) {
	dir := t.TempDir()
	genomes := filepath.Join(dir, "genomes")
	for _, p := range []string{"b_1_GCF_000000002_1/GENOME_GCF_000000002_1.fna", "a_1_GCF_000000001_1/GENOME_GCF_000000001_1.fna", "a_1_GCF_000000001_1/notes.txt"} {
		full := filepath.Join(genomes, p)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(">x\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	listPath := filepath.Join(dir, "genome_list.txt")
	n, err := WriteGenomeList(genomes, listPath)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	data, _ := os.ReadFile(listPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "GENOME_GCF_000000001_1.fna") {
		t.Errorf("genome list = %q", data)
	}
}

func TestResumeStateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	got, err := LoadState(dir)
	if err != nil || got != nil {
		t.Fatalf("LoadState(empty) = %v, %v", got, err)
	}

	st := &ResumeState{RunID: "r1", AccessionFile: "acc.txt", TotalBatches: 12, NextBatch: 11, Extracted: 900, FailedBatches: []int{4, 11}, Tripped: true}
	if err := SaveState(dir, st); err != nil {
		t.Fatal(err)
	}
	got, err = LoadState(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got.NextBatch != 11 || !got.Tripped || len(got.FailedBatches) != 2 || got.FailedBatches[1] != 11 {
		t.Errorf("LoadState() = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}
