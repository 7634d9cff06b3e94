package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"mashclust/internal/acquisition"
	"mashclust/internal/integration"
	"mashclust/internal/oracle"
	"mashclust/internal/pipeline"
	"mashclust/internal/presentation"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// DistancesResponse is printed by the distances command.
type DistancesResponse struct {
	SketchDir     string `json:"sketchDir"`
	DistancesPath string `json:"distancesPath"`
}

// VersionResponse is printed by the version command.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *acquisition.Summary:
		return formatDownloadHuman(v), nil
	case *oracle.SketchResult:
		return formatSketchHuman(v), nil
	case *DistancesResponse:
		return fmt.Sprintf("Distances written to %s\n", v.DistancesPath), nil
	case *pipeline.ClusterSummary:
		return formatClusterHuman(v), nil
	case *presentation.Report:
		return formatReportHuman(v), nil
	case *integration.Summary:
		return formatFinalizeHuman(v), nil
	case *pipeline.RunSummary:
		return formatRunHuman(v), nil
	case *VersionResponse:
		return fmt.Sprintf("mashclust version %s\nCommit: %s\nBuilt: %s\n", v.Version, v.Commit, v.BuildDate), nil
	default:
		return formatJSON(resp)
	}
}

func formatDownloadHuman(s *acquisition.Summary) string {
	var b strings.Builder
	b.WriteString("Download summary\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "  Run:              %s\n", s.RunID)
	fmt.Fprintf(&b, "  Requested:        %d\n", s.Requested)
	if s.Invalid > 0 {
		fmt.Fprintf(&b, "  Invalid lines:    %d\n", s.Invalid)
	}
	fmt.Fprintf(&b, "  Already present:  %d\n", s.AlreadyPresent)
	fmt.Fprintf(&b, "  Extracted:        %d (%.1f%%)\n", s.Extracted, s.SuccessRate()*100)
	fmt.Fprintf(&b, "  Failed:           %d in %d batches\n", s.FailedCount(), len(s.FailedBatches))
	for _, fb := range s.FailedBatches {
		fmt.Fprintf(&b, "    batch %d: %d accessions (%s)\n", fb.Number, fb.Count, fb.ErrorType)
	}
	fmt.Fprintf(&b, "  Genomes on disk:  %d\n", s.GenomeCount)
	fmt.Fprintf(&b, "  Genome list:      %s\n", s.GenomeListPath)
	fmt.Fprintf(&b, "  Elapsed:          %s\n", s.Elapsed.Round(time.Second))
	return b.String()
}

func formatSketchHuman(s *oracle.SketchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Targets:     %d (%s)\n", len(s.Targets), s.TargetsPath)
	fmt.Fprintf(&b, "Non-targets: %d (%s)\n", len(s.NonTargets), s.NonTargetsPath)
	fmt.Fprintf(&b, "Sketch:      %s\n", s.SketchPath)
	return b.String()
}

func formatClusterHuman(s *pipeline.ClusterSummary) string {
	var b strings.Builder
	b.WriteString("Clustering summary\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "  Genomes:          %d\n", s.Genomes)
	fmt.Fprintf(&b, "  Neighbor edges:   %d (distance <= %g)\n", s.Edges, s.Threshold)
	fmt.Fprintf(&b, "  Clusters:         %d\n", s.Clusters)
	fmt.Fprintf(&b, "  Representatives:  %d\n", s.Representatives)
	if len(s.References) > 0 {
		fmt.Fprintf(&b, "  References:       %d\n", len(s.References))
		for _, m := range s.References {
			fmt.Fprintf(&b, "    %s -> %s\n", m.Token, m.ID)
		}
	}
	fmt.Fprintf(&b, "  Output:           %s\n", s.RepresentativesPath)
	for _, p := range s.RecordPaths {
		fmt.Fprintf(&b, "  Record:           %s\n", p)
	}
	writeWarnings(&b, s.Warnings)
	return b.String()
}

func formatReportHuman(r *presentation.Report) string {
	var b strings.Builder
	b.WriteString("Artifacts:\n")
	for _, a := range r.Artifacts {
		fmt.Fprintf(&b, "  %s\n", a)
	}
	writeWarnings(&b, r.Warnings)
	return b.String()
}

func formatFinalizeHuman(s *integration.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Genomes:    %d\n", s.Items)
	fmt.Fprintf(&b, "Completed:  %d\n", s.Completed)
	fmt.Fprintf(&b, "Failed:     %d\n", s.Failed)
	fmt.Fprintf(&b, "Accessions: %s\n", s.AccessionsPath)
	fmt.Fprintf(&b, "Index:      %s\n", s.IndexPath)
	return b.String()
}

func formatRunHuman(s *pipeline.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Work directory: %s\n", s.WorkDir)
	fmt.Fprintf(&b, "Targets: %d, non-targets: %d\n", s.Targets, s.NonTargets)
	fmt.Fprintf(&b, "Distances: %s\n\n", s.DistancesPath)
	if s.Cluster != nil {
		b.WriteString(formatClusterHuman(s.Cluster))
	}
	if s.Visualize != nil {
		b.WriteString("\n")
		b.WriteString(formatReportHuman(s.Visualize))
	}
	fmt.Fprintf(&b, "\nElapsed: %s\n", s.Elapsed.Round(time.Millisecond))
	return b.String()
}

func writeWarnings(b *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("Warnings:\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "  - %s\n", w)
	}
}

// printResponse writes resp to stdout in the --format selected format.
func printResponse(resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(outputFormat))
	if err != nil {
		return err
	}
	fmt.Print(out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Println()
	}
	return nil
}
