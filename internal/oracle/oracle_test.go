package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	mcerrors "mashclust/internal/errors"
	"mashclust/internal/slogutil"
	"mashclust/internal/toolexec"
)

func makeGenomes(t *testing.T, root string, folders ...string) {
	t.Helper()
	for _, folder := range folders {
		dir := filepath.Join(root, folder)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		acc := folder[strings.LastIndex(folder, "GC"):]
		if err := os.WriteFile(filepath.Join(dir, "GENOME_"+acc+".fna"), []byte(">x\nACGT\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPartition(t *testing.T) {
	genomes := []string{
		"g/staphylococcus_aureus_1280_GCF_000000001_1/GENOME_GCF_000000001_1.fna",
		"g/Staphylococcus_Aureus_1280_GCF_000000002_1/GENOME_GCF_000000002_1.fna",
		"g/escherichia_coli_562_GCF_000000003_1/GENOME_GCF_000000003_1.fna",
	}

	targets, non := Partition(genomes, "staphylococcus_aureus", false)
	if len(targets) != 2 || len(non) != 1 || !strings.Contains(non[0], "escherichia") {
		t.Errorf("Partition() = %v / %v", targets, non)
	}

	targets, non = Partition(genomes, "", true)
	if !reflect.DeepEqual(targets, genomes) || len(non) != 0 {
		t.Errorf("Partition(noFilter) = %v / %v", targets, non)
	}
}

func TestSketch(t *testing.T) {
	root := t.TempDir()
	genomes := filepath.Join(root, "genomes")
	makeGenomes(t, genomes, "staphylococcus_aureus_1280_GCF_000000001_1", "escherichia_coli_562_GCF_000000002_1")
	out := filepath.Join(root, "mash")

	runner := toolexec.NewMockRunner()
	runner.SetLookPath("mash", "/usr/bin/mash")
	runner.SetCommand("mash", "", "", nil)

	o := New(runner, "mash", slogutil.NewDiscardLogger())
	res, err := o.Sketch(context.Background(), SketchOptions{
		GenomeDir: genomes, OutputDir: out, Prefix: "staphylococcus", KmerSize: 21, SketchSize: 1000, Threads: 4,
	})
	if err != nil {
		t.Fatalf("Sketch() error = %v", err)
	}
	if len(res.Targets) != 1 || len(res.NonTargets) != 1 {
		t.Errorf("result = %+v", res)
	}

	targets, _ := os.ReadFile(res.TargetsPath)
	if !strings.Contains(string(targets), "staphylococcus_aureus") {
		t.Errorf("targets.txt = %q", targets)
	}
	non, _ := os.ReadFile(res.NonTargetsPath)
	if !strings.Contains(string(non), "escherichia_coli") {
		t.Errorf("non_targets.txt = %q", non)
	}

	calls := runner.Calls()
	want := "mash sketch -s 1000 -k 21 -p 4 -o " + filepath.Join(out, "genomes_sketch") + " -l " + res.TargetsPath
	if len(calls) != 1 || calls[0] != want {
		t.Errorf("calls = %v, want [%s]", calls, want)
	}
}

func TestSketchErrors(t *testing.T) {
	root := t.TempDir()
	genomes := filepath.Join(root, "genomes")
	makeGenomes(t, genomes, "escherichia_coli_562_GCF_000000002_1")

	ready := toolexec.NewMockRunner()
	ready.SetLookPath("mash", "/usr/bin/mash")
	ready.SetCommand("mash", "", "", nil)

	failing := toolexec.NewMockRunner()
	failing.SetLookPath("mash", "/usr/bin/mash")
	failing.SetCommand("mash", "", "bad k-mer size", errors.New("exit status 1"))

	tests := []struct {
		name   string
		runner toolexec.Runner
		opts   SketchOptions
		code   mcerrors.ErrorCode
	}{
		{"no prefix", ready, SketchOptions{GenomeDir: genomes}, mcerrors.InvalidConfig},
		{"mash missing", toolexec.NewMockRunner(), SketchOptions{GenomeDir: genomes, NoFilter: true}, mcerrors.ToolUnavailable},
		{"no targets", ready, SketchOptions{GenomeDir: genomes, Prefix: "listeria"}, mcerrors.NoGenomes},
		{"mash fails", failing, SketchOptions{GenomeDir: genomes, NoFilter: true}, mcerrors.ToolFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.OutputDir = filepath.Join(t.TempDir(), "out")
			tt.opts.KmerSize, tt.opts.SketchSize, tt.opts.Threads = 31, 100000, 1
			_, err := New(tt.runner, "mash", slogutil.NewDiscardLogger()).Sketch(context.Background(), tt.opts)
			if mcerrors.CodeOf(err) != tt.code {
				t.Errorf("Sketch() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestDistances(t *testing.T) {
	dir := t.TempDir()
	sketch := filepath.Join(dir, "genomes_sketch.msh")
	if err := os.WriteFile(sketch, []byte("msh"), 0644); err != nil {
		t.Fatal(err)
	}

	table := "#query\ta.fna\tb.fna\na.fna\t0\t0.01\nb.fna\t0.01\t0\n"
	runner := toolexec.NewMockRunner()
	runner.SetLookPath("mash", "/usr/bin/mash")
	runner.SetCommand("mash dist -t -p 2 "+sketch+" "+sketch, table, "", nil)

	out, err := New(runner, "mash", slogutil.NewDiscardLogger()).Distances(context.Background(), dir, dir, 2)
	if err != nil {
		t.Fatalf("Distances() error = %v", err)
	}
	if filepath.Base(out) != "distances.txt" {
		t.Errorf("out = %q", out)
	}
	data, _ := os.ReadFile(out)
	if string(data) != table {
		t.Errorf("distances = %q", data)
	}
}

func TestDistancesMissingSketch(t *testing.T) {
	runner := toolexec.NewMockRunner()
	runner.SetLookPath("mash", "/usr/bin/mash")
	_, err := New(runner, "mash", slogutil.NewDiscardLogger()).Distances(context.Background(), t.TempDir(), t.TempDir(), 1)
	if mcerrors.CodeOf(err) != mcerrors.InputMissing {
		t.Errorf("Distances() error = %v, want INPUT_MISSING", err)
	}
}
