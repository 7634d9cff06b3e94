// Package oracle produces the pairwise distance table by driving the mash
// command-line tool: select target genomes, sketch them, then compare the
// sketch against itself.
package oracle

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	mcerrors "mashclust/internal/errors"
	"mashclust/internal/paths"
	"mashclust/internal/toolexec"
)

// SketchOptions configures target selection and mash sketch.
type SketchOptions struct {
	GenomeDir  string
	OutputDir  string
	Prefix     string
	NoFilter   bool
	KmerSize   int
	SketchSize int
	Threads    int
}

// SketchResult reports where the sketch stage left its outputs.
type SketchResult struct {
	Targets        []string
	NonTargets     []string
	TargetsPath    string
	NonTargetsPath string
	SketchPath     string
}

// Oracle wraps the mash binary.
type Oracle struct {
	runner toolexec.Runner
	binary string
	logger *slog.Logger
}

func New(runner toolexec.Runner, binary string, logger *slog.Logger) *Oracle {
	if binary == "" {
		binary = "mash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{runner: runner, binary: binary, logger: logger}
}

// Partition splits genome paths into targets and non-targets. A genome is a
// target when its folder name starts with prefix, case-insensitively, or
// when noFilter is set.
func Partition(genomes []string, prefix string, noFilter bool) (targets, nonTargets []string) {
	prefix = strings.ToLower(prefix)
	for _, g := range genomes {
		folder := strings.ToLower(filepath.Base(filepath.Dir(g)))
		if noFilter || strings.HasPrefix(folder, prefix) {
			targets = append(targets, g)
		} else {
			nonTargets = append(nonTargets, g)
		}
	}
	return targets, nonTargets
}

func (o *Oracle) requireMash() error {
	if _, err := o.runner.LookPath(o.binary); err != nil {
		return mcerrors.New(mcerrors.ToolUnavailable, "mash not found: "+o.binary, err,
			mcerrors.FixAction{Type: mcerrors.InstallTool, Tool: "mash", URL: "https://github.com/marbl/Mash"})
	}
	return nil
}

// Sketch selects targets, writes targets.txt and non_targets.txt and runs
// mash sketch over the targets list.
func (o *Oracle) Sketch(ctx context.Context, opts SketchOptions) (*SketchResult, error) {
	if !opts.NoFilter && opts.Prefix == "" {
		return nil, mcerrors.New(mcerrors.InvalidConfig, "a filter prefix or no-filter mode is required", nil)
	}
	if err := o.requireMash(); err != nil {
		return nil, err
	}
	if _, err := paths.EnsureDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	genomes, err := paths.FindGenomes(opts.GenomeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", opts.GenomeDir, err)
	}
	if opts.NoFilter {
		o.logger.Info("Filtering disabled, every genome is a target", "dir", opts.GenomeDir)
	} else {
		o.logger.Info("Filtering genome folders", "dir", opts.GenomeDir, "prefix", opts.Prefix)
	}

	res := &SketchResult{
		TargetsPath:    filepath.Join(opts.OutputDir, paths.TargetsFile),
		NonTargetsPath: filepath.Join(opts.OutputDir, paths.NonTargetsFile),
		SketchPath:     filepath.Join(opts.OutputDir, paths.SketchFile),
	}
	res.Targets, res.NonTargets = Partition(genomes, opts.Prefix, opts.NoFilter)
	o.logger.Info("Genomes categorized", "targets", len(res.Targets), "nonTargets", len(res.NonTargets))

	if err := writeLines(res.TargetsPath, res.Targets); err != nil {
		return nil, err
	}
	if err := writeLines(res.NonTargetsPath, res.NonTargets); err != nil {
		return nil, err
	}
	if len(res.Targets) == 0 {
		return res, mcerrors.New(mcerrors.NoGenomes, "no target genomes found in "+opts.GenomeDir, nil)
	}

	args := []string{
		"sketch",
		"-s", strconv.Itoa(opts.SketchSize),
		"-k", strconv.Itoa(opts.KmerSize),
		"-p", strconv.Itoa(max(opts.Threads, 1)),
		"-o", filepath.Join(opts.OutputDir, paths.SketchBase),
		"-l", res.TargetsPath,
	}
	o.logger.Info("Running mash sketch", "genomes", len(res.Targets), "command", o.binary+" "+strings.Join(args, " "))
	if _, stderr, err := o.runner.Run(ctx, o.binary, args...); err != nil {
		return res, mcerrors.New(mcerrors.ToolFailed, "mash sketch failed", toolError(err, stderr))
	}

	o.logger.Info("Sketch created", "path", res.SketchPath)
	return res, nil
}

// Distances runs mash dist -t of the sketch in sketchDir against itself and
// writes distances.txt in outDir.
func (o *Oracle) Distances(ctx context.Context, sketchDir, outDir string, threads int) (string, error) {
	sketch := filepath.Join(sketchDir, paths.SketchFile)
	if !paths.FileExists(sketch) {
		return "", mcerrors.New(mcerrors.InputMissing, "sketch file not found: "+sketch, nil,
			mcerrors.FixAction{Type: mcerrors.RunCommand, Command: "mashclust sketch", Description: "create the sketch first"})
	}
	if err := o.requireMash(); err != nil {
		return "", err
	}
	if _, err := paths.EnsureDir(outDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out := filepath.Join(outDir, paths.DistancesFile)
	o.logger.Info("Calculating all-vs-all distances", "sketch", sketch)
	stderr, err := o.runner.RunToFile(ctx, out, o.binary, "dist", "-t", "-p", strconv.Itoa(max(threads, 1)), sketch, sketch)
	if err != nil {
		return "", mcerrors.New(mcerrors.ToolFailed, "mash dist failed", toolError(err, stderr))
	}

	o.logger.Info("Distances saved", "path", out)
	return out, nil
}

func toolError(err error, stderr string) error {
	if stderr == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, stderr)
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
