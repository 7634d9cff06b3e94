package presentation

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	mcerrors "mashclust/internal/errors"
	"mashclust/internal/export"
	"mashclust/internal/slogutil"
	"mashclust/internal/toolexec"
)

const distances = "#query\t/g/a_GCF_000000001_1/GENOME_GCF_000000001_1.fna\t/g/b_GCF_000000002_1/GENOME_GCF_000000002_1.fna\t/g/c_GCF_000000003_1/GENOME_GCF_000000003_1.fna\n" +
	"/g/a_GCF_000000001_1/GENOME_GCF_000000001_1.fna\t0\t0.02\t0.0001\n" +
	"/g/b_GCF_000000002_1/GENOME_GCF_000000002_1.fna\t0.02\t0\tx\n" +
	"/g/c_GCF_000000003_1/GENOME_GCF_000000003_1.fna\t0.0001\t0.02\t0\n"

func seed(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	rec := &export.Record{
		Clusters:          [][]string{{"GCF_000000001.1", "GCF_000000003.1"}, {"GCF_000000002.1"}},
		Neighbors:         map[string][]string{},
		GenomeNames:       map[string]string{},
		IdentityThreshold: 0.9997,
	}
	e := export.NewExporter(fs, dir, slogutil.NewDiscardLogger())
	if _, err := e.WriteRecord(rec, export.FormatJSON); err != nil {
		t.Fatal(err)
	}
	reps := "/g/a_GCF_000000001_1/GENOME_GCF_000000001_1.fna\n/g/b_GCF_000000002_1/GENOME_GCF_000000002_1.fna\n"
	if err := afero.WriteFile(fs, filepath.Join(dir, "representatives.txt"), []byte(reps), 0644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, filepath.Join(dir, "distances.txt"), []byte(distances), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSizeDistribution(t *testing.T) {
	clusters := [][]string{{"a", "b", "c"}, {"d"}, {"e", "f", "g"}, {"h"}, {"i", "j"}}
	got := SizeDistribution(clusters)
	want := []SizeRow{{3, 2, 6}, {2, 1, 8}, {1, 2, 10}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SizeDistribution() = %v, want %v", got, want)
	}
	if len(SizeDistribution(nil)) != 0 {
		t.Error("empty input should give no rows")
	}
}

func TestReadSubMatrix(t *testing.T) {
	keep := map[string]bool{"a_GCF_000000001_1": true, "b_GCF_000000002_1": true}
	m, err := ReadSubMatrix(strings.NewReader(distances), keep)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m.Labels, []string{"a_GCF_000000001_1", "b_GCF_000000002_1"}) {
		t.Errorf("Labels = %v", m.Labels)
	}
	if !reflect.DeepEqual(m.Rows, [][]float64{{0, 0.02}, {0.02, 0}}) {
		t.Errorf("Rows = %v", m.Rows)
	}

	want := "2\na_GCF_000000001_1\t0.000000\t0.020000\nb_GCF_000000002_1\t0.020000\t0.000000\n"
	if got := string(m.Phylip()); got != want {
		t.Errorf("Phylip() = %q, want %q", got, want)
	}
}

func TestReadSubMatrixMalformed(t *testing.T) {
	keep := map[string]bool{"b_GCF_000000002_1": true, "c_GCF_000000003_1": true}
	m, err := ReadSubMatrix(strings.NewReader(distances), keep)
	if err != nil {
		t.Fatal(err)
	}
	if m.Malformed != 1 || m.Rows[0][1] != 1.0 {
		t.Errorf("Malformed = %d, rows = %v", m.Malformed, m.Rows)
	}
}

func TestRunWithoutQuicktree(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, "/in")

	p := New(fs, toolexec.NewMockRunner(), slogutil.NewDiscardLogger())
	report, err := p.Run(context.Background(), Options{InputDir: "/in", DistanceFile: "/in/distances.txt", OutputDir: "/viz"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Artifacts) != 2 {
		t.Errorf("Artifacts = %v", report.Artifacts)
	}
	if len(report.Warnings) != 2 {
		t.Errorf("Warnings = %v", report.Warnings)
	}

	sizes, _ := afero.ReadFile(fs, "/viz/cluster_sizes.tsv")
	if string(sizes) != "size\tclusters\tcumulative_genomes\n2\t1\t2\n1\t1\t3\n" {
		t.Errorf("cluster_sizes.tsv = %q", sizes)
	}
	if ok, _ := afero.Exists(fs, "/viz/representatives_phylip.dist"); !ok {
		t.Error("PHYLIP file missing")
	}
}

func TestRunWithQuicktree(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	seed(t, fs, dir)
	out := filepath.Join(dir, "viz")

	runner := toolexec.NewMockRunner()
	runner.SetLookPath("quicktree", "/usr/bin/quicktree")
	runner.SetCommand("quicktree", "(a:0.01,b:0.01);\n", "", nil)

	report, err := New(fs, runner, slogutil.NewDiscardLogger()).Run(context.Background(),
		Options{InputDir: dir, DistanceFile: filepath.Join(dir, "distances.txt"), OutputDir: out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Artifacts) != 3 {
		t.Errorf("Artifacts = %v", report.Artifacts)
	}
	tree, _ := afero.ReadFile(fs, filepath.Join(out, "representatives_tree.nwk"))
	if string(tree) != "(a:0.01,b:0.01);\n" {
		t.Errorf("tree = %q", tree)
	}
	want := "quicktree -in m -out t " + filepath.Join(out, "representatives_phylip.dist")
	if calls := runner.Calls(); len(calls) != 1 || calls[0] != want {
		t.Errorf("calls = %v", calls)
	}
}

func TestRunMissingRecord(t *testing.T) {
	p := New(afero.NewMemMapFs(), nil, slogutil.NewDiscardLogger())
	_, err := p.Run(context.Background(), Options{InputDir: "/none", OutputDir: "/viz"})
	if mcerrors.CodeOf(err) != mcerrors.InputMissing {
		t.Errorf("Run() error = %v, want INPUT_MISSING", err)
	}
}

func TestRunMissingDistanceFileWarns(t *testing.T) {
	fs := afero.NewMemMapFs()
	seed(t, fs, "/in")
	report, err := New(fs, nil, slogutil.NewDiscardLogger()).Run(context.Background(),
		Options{InputDir: "/in", DistanceFile: "/elsewhere/distances.txt", OutputDir: "/viz"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Artifacts) != 1 || len(report.Warnings) != 2 {
		t.Errorf("report = %+v", report)
	}
}
