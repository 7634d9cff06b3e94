// Package integration hands the selected genomes to the downstream
// dataset-manager tool: each accession is fetched with its annotations and
// unpacked, and an index of the built datasets is written.
package integration

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"mashclust/internal/accession"
	mcerrors "mashclust/internal/errors"
	"mashclust/internal/paths"
	"mashclust/internal/toolexec"
)

// minCachedZip is the size above which an existing archive is reused.
const minCachedZip = 5000

// Item is one genome selected for integration.
type Item struct {
	Accession string
	Folder    string
}

// Options configures a finalize run.
type Options struct {
	NonTargets      string
	Representatives string
	OutputDir       string
	// AccessionsFile defaults to OutputDir/selected_accessions.txt; the index
	// is written next to it.
	AccessionsFile string
	GenomesSubdir  string
	DatasetsBinary string
	PythonBinary   string
	ManagerScript  string
	Workers        int
}

// Summary is the outcome of a finalize run.
type Summary struct {
	Items          int
	Completed      int
	Failed         int
	AccessionsPath string
	IndexPath      string
}

// Finalizer runs datasets and dataset-manager per item.
type Finalizer struct {
	fs     afero.Fs
	runner toolexec.Runner
	logger *slog.Logger
}

func New(fs afero.Fs, runner toolexec.Runner, logger *slog.Logger) *Finalizer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{fs: fs, runner: runner, logger: logger}
}

// Collect reads genome path lists in order. Missing lists contribute nothing;
// lines without an accession are dropped.
func (f *Finalizer) Collect(lists ...string) ([]Item, error) {
	var items []Item
	for _, list := range lists {
		if list == "" {
			continue
		}
		file, err := f.fs.Open(list)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			acc, ok := accession.Normalize(line)
			if !ok {
				continue
			}
			items = append(items, Item{Accession: acc, Folder: paths.FolderName(line)})
		}
		err = scanner.Err()
		_ = file.Close()
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (f *Finalizer) checkTools(opts Options) error {
	if _, err := f.runner.LookPath(opts.DatasetsBinary); err != nil {
		return mcerrors.New(mcerrors.ToolUnavailable, "datasets binary not found: "+opts.DatasetsBinary, err,
			mcerrors.FixAction{Type: mcerrors.InstallTool, Tool: "datasets"})
	}
	if _, err := f.fs.Stat(opts.ManagerScript); err != nil {
		return mcerrors.New(mcerrors.ToolUnavailable, "dataset-manager script not found: "+opts.ManagerScript, err)
	}
	return nil
}

// Run processes every item with up to opts.Workers in flight. Per-item
// failures are counted; the index keeps input order regardless of which
// worker finished first.
func (f *Finalizer) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.GenomesSubdir == "" {
		opts.GenomesSubdir = "uncompressed"
	}
	if opts.PythonBinary == "" {
		opts.PythonBinary = "python3"
	}
	if opts.DatasetsBinary == "" {
		opts.DatasetsBinary = "datasets"
	}
	if opts.AccessionsFile == "" {
		opts.AccessionsFile = filepath.Join(opts.OutputDir, paths.AccessionsFile)
	}

	if err := f.checkTools(opts); err != nil {
		return nil, err
	}

	unpackDir := filepath.Join(opts.OutputDir, opts.GenomesSubdir)
	if err := f.fs.MkdirAll(unpackDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", unpackDir, err)
	}

	items, err := f.Collect(opts.NonTargets, opts.Representatives)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, mcerrors.New(mcerrors.NoGenomes, "no genomes to process", nil)
	}
	f.logger.Info("Processing genomes", "count", len(items), "workers", max(opts.Workers, 1))

	lines := make([]string, len(items))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			line, err := f.process(gctx, opts, unpackDir, i+1, item)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				f.logger.Warn("Genome failed", "accession", item.Accession, "error", err)
				failed.Add(1)
				return nil
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var done []string
	var index []string
	for i, line := range lines {
		if line == "" {
			continue
		}
		done = append(done, items[i].Accession)
		index = append(index, line)
	}

	sum := &Summary{
		Items:          len(items),
		Completed:      len(index),
		Failed:         int(failed.Load()),
		AccessionsPath: opts.AccessionsFile,
		IndexPath:      filepath.Join(filepath.Dir(opts.AccessionsFile), paths.IndexFile),
	}
	if err := f.writeLines(sum.AccessionsPath, dedupSorted(done)); err != nil {
		return nil, mcerrors.New(mcerrors.ExportFailed, "failed to write accession list", err)
	}
	if err := f.writeLines(sum.IndexPath, index); err != nil {
		return nil, mcerrors.New(mcerrors.ExportFailed, "failed to write dataset index", err)
	}

	f.logger.Info("Finalize completed", "completed", sum.Completed, "failed", sum.Failed, "index", sum.IndexPath)
	return sum, nil
}

func (f *Finalizer) process(ctx context.Context, opts Options, unpackDir string, n int, item Item) (string, error) {
	zipPath := filepath.Join(opts.OutputDir, item.Folder+".zip")

	if info, err := f.fs.Stat(zipPath); err == nil && info.Size() > minCachedZip {
		f.logger.Debug("Archive already downloaded", "n", n, "accession", item.Accession)
	} else {
		f.logger.Info("Downloading", "n", n, "accession", item.Accession)
		_, stderr, err := f.runner.Run(ctx, opts.DatasetsBinary,
			"download", "genome", "accession", item.Accession,
			"--include", "genome,seq-report,cds,gff3",
			"--filename", zipPath)
		if err != nil {
			return "", fmt.Errorf("datasets download failed: %w (%s)", err, stderr)
		}
	}

	stdout, stderr, err := f.runner.Run(ctx, opts.PythonBinary, opts.ManagerScript, "build-dataset", "--output", unpackDir, zipPath)
	if err != nil {
		return "", fmt.Errorf("dataset-manager failed: %w (%s)", err, stderr)
	}
	if stdout == "" {
		return "", fmt.Errorf("dataset-manager returned no data")
	}
	return item.Folder + "\t" + stdout, nil
}

func (f *Finalizer) writeLines(path string, lines []string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := f.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return afero.WriteFile(f.fs, path, []byte(b.String()), 0644)
}

func dedupSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
