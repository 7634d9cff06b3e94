// Package pipeline wires the stages together: RunCluster executes the
// clustering core end to end, and Run chains sketch, distances, cluster and
// visualize for a genome directory.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"mashclust/internal/cluster"
	"mashclust/internal/config"
	"mashclust/internal/distance"
	mcerrors "mashclust/internal/errors"
	"mashclust/internal/export"
	"mashclust/internal/reference"
	"mashclust/internal/selection"
)

// ClusterOptions are the inputs of the clustering core.
type ClusterOptions struct {
	DistanceFile       string
	OutputDir          string
	Identity           float64
	NumRepresentatives int
	Seed               uint64
	References         []string
	ProtectReferences  bool
	RecordFormat       export.Format
}

// ClusterOptionsFromConfig maps the [cluster] config section.
func ClusterOptionsFromConfig(c config.ClusterConfig) ClusterOptions {
	return ClusterOptions{
		DistanceFile:       c.DistanceFile,
		OutputDir:          c.OutputDir,
		Identity:           c.Identity,
		NumRepresentatives: c.NumRepresentatives,
		Seed:               c.Seed,
		References:         c.References,
		ProtectReferences:  c.ProtectReferences,
		RecordFormat:       export.ParseFormat(c.RecordFormat),
	}
}

// ClusterSummary reports what a clustering run produced.
type ClusterSummary struct {
	Genomes             int                `json:"genomes"`
	Edges               int                `json:"edges"`
	Clusters            int                `json:"clusters"`
	Representatives     int                `json:"representatives"`
	References          []reference.Match  `json:"references"`
	UnmatchedReferences []string           `json:"unmatchedReferences"`
	Draws               int                `json:"draws"`
	Threshold           float64            `json:"distanceThreshold"`
	Load                distance.LoadStats `json:"load"`
	RepresentativesPath string             `json:"representativesPath"`
	RecordPaths         []string           `json:"recordPaths"`
	Warnings            []string           `json:"warnings,omitempty"`
}

// RunCluster loads the distance table, clusters it greedily, selects
// representatives and writes representatives.txt plus the clustering record.
// The JSON record is always written since later stages read it.
func RunCluster(ctx context.Context, fs afero.Fs, opts ClusterOptions, logger *slog.Logger) (*ClusterSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DistanceFile == "" {
		return nil, mcerrors.New(mcerrors.InvalidConfig, "no distance file given", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	threshold := distance.DistanceThreshold(opts.Identity)
	m, err := distance.LoadFile(opts.DistanceFile, threshold)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded distance matrix",
		"genomes", len(m.IDs),
		"edges", m.Graph.NumEdges(),
		"threshold", threshold,
		"rows", m.Stats.Rows)
	var warnings []string
	if m.Stats.MalformedValues > 0 || m.Stats.ShortRows > 0 || m.Stats.UnknownRows > 0 {
		warnings = append(warnings, fmt.Sprintf("skipped %d malformed values, %d short rows and %d unknown rows",
			m.Stats.MalformedValues, m.Stats.ShortRows, m.Stats.UnknownRows))
		logger.Warn("Skipped unusable distance entries",
			"malformedValues", m.Stats.MalformedValues,
			"shortRows", m.Stats.ShortRows,
			"unknownRows", m.Stats.UnknownRows)
	}

	refs := reference.Resolve(opts.References, m.IDs, opts.ProtectReferences)
	for _, token := range refs.Unmatched() {
		logger.Warn("Reference token matched no genome", "token", token)
		warnings = append(warnings, "reference token matched no genome: "+token)
	}
	for _, match := range refs.Matches() {
		logger.Debug("Reference resolved", "token", match.Token, "id", match.ID)
	}

	clusters := cluster.Greedy(m.IDs, m.Graph, refs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selector := selection.NewSelector(opts.NumRepresentatives, opts.Seed)
	reps := selection.Flatten(selector.Select(clusters, refs))
	logger.Info("Clustering finished",
		"clusters", len(clusters),
		"representatives", len(reps),
		"references", refs.Len(),
		"draws", selector.Draws())

	exp := export.NewExporter(fs, opts.OutputDir, logger)
	repPath, err := exp.WriteRepresentatives(reps, m.Paths)
	if err != nil {
		return nil, err
	}

	rec := buildRecord(m, clusters, opts.Identity)
	recordPaths := []string{}
	jsonPath, err := exp.WriteRecord(rec, export.FormatJSON)
	if err != nil {
		return nil, err
	}
	recordPaths = append(recordPaths, jsonPath)
	if opts.RecordFormat == export.FormatYAML {
		yamlPath, err := exp.WriteRecord(rec, export.FormatYAML)
		if err != nil {
			return nil, err
		}
		recordPaths = append(recordPaths, yamlPath)
	}

	return &ClusterSummary{
		Genomes:             len(m.IDs),
		Edges:               m.Graph.NumEdges(),
		Clusters:            len(clusters),
		Representatives:     len(reps),
		References:          refs.Matches(),
		UnmatchedReferences: refs.Unmatched(),
		Draws:               selector.Draws(),
		Threshold:           threshold,
		Load:                m.Stats,
		RepresentativesPath: repPath,
		RecordPaths:         recordPaths,
		Warnings:            warnings,
	}, nil
}

func buildRecord(m *distance.Matrix, clusters []cluster.Cluster, identity float64) *export.Record {
	members := make([][]string, len(clusters))
	for i, c := range clusters {
		members[i] = c.Members
	}
	return &export.Record{
		Clusters:          members,
		Neighbors:         m.Graph.Adjacency(),
		GenomeNames:       m.Paths,
		IdentityThreshold: identity,
	}
}
