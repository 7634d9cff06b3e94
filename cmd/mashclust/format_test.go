package main

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"mashclust/internal/acquisition"
	"mashclust/internal/pipeline"
	"mashclust/internal/presentation"
	"mashclust/internal/reference"
)

func TestFormatResponseJSON(t *testing.T) {
	resp := &pipeline.ClusterSummary{Genomes: 4, Clusters: 2, Representatives: 4}

	out, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("FormatResponse() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["clusters"] != float64(2) {
		t.Errorf("clusters = %v, want 2", decoded["clusters"])
	}
}

func TestFormatResponseUnsupported(t *testing.T) {
	if _, err := FormatResponse(&VersionResponse{}, OutputFormat("xml")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatHuman(t *testing.T) {
	tests := []struct {
		name string
		resp interface{}
		want []string
	}{
		{
			name: "cluster",
			resp: &pipeline.ClusterSummary{
				Genomes:             4,
				Clusters:            2,
				Representatives:     4,
				References:          []reference.Match{{Token: "D", ID: "D"}},
				RepresentativesPath: "out/representatives.txt",
				Warnings:            []string{"reference token matched no genome: X"},
			},
			want: []string{"Clusters:         2", "D -> D", "out/representatives.txt", "Warnings:", "matched no genome: X"},
		},
		{
			name: "download",
			resp: &acquisition.Summary{
				RunID:         "run-1",
				Requested:     10,
				Extracted:     8,
				FailedBatches: []acquisition.FailedBatch{{Number: 3, ErrorType: acquisition.ErrAPILimit, Count: 2}},
				Elapsed:       90 * time.Second,
			},
			want: []string{"run-1", "Extracted:        8 (80.0%)", "batch 3: 2 accessions (API_LIMIT)", "1m30s"},
		},
		{
			name: "report",
			resp: &presentation.Report{Artifacts: []string{"cluster_sizes.tsv"}, Warnings: []string{"quicktree not found"}},
			want: []string{"cluster_sizes.tsv", "- quicktree not found"},
		},
		{
			name: "version",
			resp: &VersionResponse{Version: "1.2.3", Commit: "abc", BuildDate: "today"},
			want: []string{"mashclust version 1.2.3", "Commit: abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FormatResponse(tt.resp, FormatHuman)
			if err != nil {
				t.Fatalf("FormatResponse() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestFormatHumanFallsBackToJSON(t *testing.T) {
	out, err := FormatResponse(map[string]int{"a": 1}, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse() error = %v", err)
	}
	if !strings.Contains(out, `"a": 1`) {
		t.Errorf("unexpected output %s", out)
	}
}
