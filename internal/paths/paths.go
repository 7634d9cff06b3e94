// Package paths names the files each pipeline stage reads and writes.
package paths

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Stage artifact names. Stages are chained by directory, so a stage only
// needs the previous stage's output directory to find its input.
const (
	GenomeListFile      = "genome_list.txt"
	GenomesDir          = "genomes"
	TempDownloadsDir    = "temp_downloads"
	FailedBatchesDir    = "failed_batches"
	ResumeStateFile     = "resume.toml"
	LedgerFile          = "ledger.db"
	TargetsFile         = "targets.txt"
	NonTargetsFile      = "non_targets.txt"
	SketchBase          = "genomes_sketch"
	SketchFile          = SketchBase + ".msh"
	DistancesFile       = "distances.txt"
	RepresentativesFile = "representatives.txt"
	RecordJSONFile      = "clustering_data.json"
	RecordYAMLFile      = "clustering_data.yaml"
	ClusterSizesFile    = "cluster_sizes.tsv"
	PhylipFile          = "representatives_phylip.dist"
	TreeFile            = "representatives_tree.nwk"
	AccessionsFile      = "selected_accessions.txt"
	IndexFile           = "ksnp_files_index.tsv"
	GenomeFilePattern   = "GENOME_*.fna"

	// Stage directories used by `mashclust run` under its work directory.
	SketchStageDir    = "1-sketch"
	DistanceStageDir  = "2-distances"
	ClusterStageDir   = "3-cluster"
	VisualizeStageDir = "4-visualize"
)

// FailedBatchPath returns where the accessions of a failed batch are saved.
func FailedBatchPath(outDir string, batch int) string {
	return filepath.Join(outDir, FailedBatchesDir, "failed_batch_"+strconv.Itoa(batch)+".txt")
}

// EnsureDir creates dir (and parents) if needed and returns it.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// FolderName returns the folder identifier of a genome path: the parent
// directory name when the path has one, otherwise the name itself.
func FolderName(path string) string {
	path = strings.TrimSpace(path)
	if strings.ContainsAny(path, `/\`) {
		return filepath.Base(filepath.Dir(NormalizePath(path)))
	}
	return filepath.Base(path)
}

// NormalizePath normalizes a path by converting backslashes to forward slashes
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FindGenomes returns every GENOME_*.fna below root, sorted. A missing root
// yields no files.
func FindGenomes(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(GenomeFilePattern, d.Name()); ok {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}
