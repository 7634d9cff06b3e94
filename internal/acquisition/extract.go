package acquisition

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"mashclust/internal/accession"
)

const metadataReport = "assembly_data_report.jsonl"

var unsafeOrganismChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// Metadata is the subset of the assembly report used for folder naming.
type Metadata struct {
	Organism string
	TaxID    string
}

type reportLine struct {
	Accession string `json:"accession"`
	Organism  struct {
		OrganismName string   `json:"organismName"`
		TaxID        flexText `json:"taxId"`
	} `json:"organism"`
}

// flexText accepts either a JSON number or string.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	*f = flexText(strings.Trim(string(bytes.TrimSpace(b)), `"`))
	if *f == "null" {
		*f = ""
	}
	return nil
}

// ReadMetadata parses assembly_data_report.jsonl content. Lines that fail to
// decode are skipped.
func ReadMetadata(r io.Reader) map[string]Metadata {
	out := make(map[string]Metadata)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec reportLine
		if err := json.Unmarshal(line, &rec); err != nil || rec.Accession == "" {
			continue
		}
		meta := Metadata{Organism: rec.Organism.OrganismName, TaxID: string(rec.Organism.TaxID)}
		if meta.Organism == "" {
			meta.Organism = "unknown"
		}
		if meta.TaxID == "" {
			meta.TaxID = "unknown"
		}
		out[rec.Accession] = meta
	}
	return out
}

// OrganismSlug lowercases name, turns spaces into underscores and drops
// anything outside [a-zA-Z0-9-_].
func OrganismSlug(name string) string {
	return unsafeOrganismChars.ReplaceAllString(strings.ToLower(strings.ReplaceAll(name, " ", "_")), "")
}

// GenomeFolder is the destination folder name for an accession.
func GenomeFolder(acc string, meta Metadata) string {
	if meta.Organism == "" {
		meta.Organism = "unknown"
	}
	if meta.TaxID == "" {
		meta.TaxID = "unknown"
	}
	return OrganismSlug(meta.Organism) + "_" + meta.TaxID + "_" + accession.FolderSafe(acc)
}

// ExtractBatch copies the FASTA members of a datasets zip into genomesDir as
// {org}_{taxid}_{acc}/GENOME_{acc}.fna. Only accessions in batch are taken;
// .fna.gz members are decompressed.
func ExtractBatch(zipPath, genomesDir string, batch []string) (int, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", zipPath, err)
	}
	defer zr.Close()

	wanted := make(map[string]bool, len(batch))
	for _, acc := range batch {
		wanted[acc] = true
	}

	meta := map[string]Metadata{}
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, metadataReport) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return 0, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		for k, v := range ReadMetadata(rc) {
			meta[k] = v
		}
		_ = rc.Close()
	}

	extracted := 0
	for _, f := range zr.File {
		if !isGenomeMember(f.Name) {
			continue
		}
		acc, ok := accession.Normalize(filepath.Base(f.Name))
		if !ok {
			acc, ok = accession.Normalize(f.Name)
		}
		if !ok || !wanted[acc] {
			continue
		}

		folder := filepath.Join(genomesDir, GenomeFolder(acc, meta[acc]))
		if err := os.MkdirAll(folder, 0755); err != nil {
			return extracted, err
		}
		dest := filepath.Join(folder, "GENOME_"+accession.FolderSafe(acc)+".fna")
		if err := extractMember(f, dest); err != nil {
			return extracted, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		extracted++
	}
	return extracted, nil
}

func isGenomeMember(name string) bool {
	if !strings.HasSuffix(name, ".fna") && !strings.HasSuffix(name, ".fna.gz") {
		return false
	}
	return strings.Contains(name, "/data/GC")
}

func extractMember(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	var src io.Reader = rc
	if strings.HasSuffix(f.Name, ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return err
		}
		defer gz.Close()
		src = gz
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
