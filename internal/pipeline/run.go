package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"mashclust/internal/config"
	"mashclust/internal/oracle"
	"mashclust/internal/paths"
	"mashclust/internal/presentation"
	"mashclust/internal/toolexec"
)

// RunSummary collects the outcome of every stage of a chained run.
type RunSummary struct {
	WorkDir       string               `json:"workDir"`
	Sketch        *oracle.SketchResult `json:"-"`
	Targets       int                  `json:"targets"`
	NonTargets    int                  `json:"nonTargets"`
	DistancesPath string               `json:"distancesPath"`
	Cluster       *ClusterSummary      `json:"cluster"`
	Visualize     *presentation.Report `json:"visualize,omitempty"`
	Elapsed       time.Duration        `json:"elapsed"`
}

// Runner chains sketch, distances, cluster and visualize under one work
// directory, one numbered subdirectory per stage.
type Runner struct {
	fs     afero.Fs
	exec   toolexec.Runner
	logger *slog.Logger
}

// NewRunner creates a chained runner. Stages that shell out always write
// through the real filesystem, so fs should be OS-backed outside tests.
func NewRunner(fs afero.Fs, exec toolexec.Runner, logger *slog.Logger) *Runner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{fs: fs, exec: exec, logger: logger}
}

// StageDirs returns the sketch, distances, cluster and visualize
// directories for workDir.
func StageDirs(workDir string) (sketch, distances, cluster, visualize string) {
	return filepath.Join(workDir, paths.SketchStageDir),
		filepath.Join(workDir, paths.DistanceStageDir),
		filepath.Join(workDir, paths.ClusterStageDir),
		filepath.Join(workDir, paths.VisualizeStageDir)
}

// Run executes the chain. The cluster section's DistanceFile and OutputDir
// are replaced by the stage directories.
func (r *Runner) Run(ctx context.Context, cfg *config.Config, workDir string) (*RunSummary, error) {
	start := time.Now()
	sketchDir, distDir, clusterDir, visDir := StageDirs(workDir)
	summary := &RunSummary{WorkDir: workDir}

	r.logger.Info("Stage 1: sketch", "genomeDir", cfg.Mash.GenomeDir, "dir", sketchDir)
	mash := oracle.New(r.exec, cfg.Mash.Binary, r.logger)
	sketch, err := mash.Sketch(ctx, oracle.SketchOptions{
		GenomeDir:  cfg.Mash.GenomeDir,
		OutputDir:  sketchDir,
		Prefix:     cfg.Mash.Prefix,
		NoFilter:   cfg.Mash.NoFilter,
		KmerSize:   cfg.Mash.KmerSize,
		SketchSize: cfg.Mash.SketchSize,
		Threads:    cfg.Mash.Threads,
	})
	if err != nil {
		return nil, err
	}
	summary.Sketch = sketch
	summary.Targets = len(sketch.Targets)
	summary.NonTargets = len(sketch.NonTargets)

	r.logger.Info("Stage 2: distances", "dir", distDir)
	distPath, err := mash.Distances(ctx, sketchDir, distDir, cfg.Mash.Threads)
	if err != nil {
		return nil, err
	}
	summary.DistancesPath = distPath

	r.logger.Info("Stage 3: cluster", "dir", clusterDir)
	opts := ClusterOptionsFromConfig(cfg.Cluster)
	opts.DistanceFile = distPath
	opts.OutputDir = clusterDir
	cs, err := RunCluster(ctx, r.fs, opts, r.logger)
	if err != nil {
		return nil, err
	}
	summary.Cluster = cs

	r.logger.Info("Stage 4: visualize", "dir", visDir)
	report, err := presentation.New(r.fs, r.exec, r.logger).Run(ctx, presentation.Options{
		InputDir:     clusterDir,
		DistanceFile: distPath,
		OutputDir:    visDir,
		Quicktree:    cfg.Visual.QuicktreeBinary,
	})
	if err != nil {
		return nil, err
	}
	summary.Visualize = report

	summary.Elapsed = time.Since(start)
	r.logger.Info("Pipeline finished",
		"targets", summary.Targets,
		"clusters", cs.Clusters,
		"representatives", cs.Representatives,
		"elapsed", summary.Elapsed.Round(time.Millisecond).String())
	return summary, nil
}
