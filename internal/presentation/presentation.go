// Package presentation renders summaries of a finished clustering: the
// cluster size distribution, a PHYLIP matrix of the representatives and,
// when quicktree is installed, a neighbor-joining tree.
package presentation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"

	mcerrors "mashclust/internal/errors"
	"mashclust/internal/export"
	"mashclust/internal/paths"
	"mashclust/internal/toolexec"
)

// Options locates the inputs and output directory.
type Options struct {
	// InputDir holds clustering_data.json and representatives.txt.
	InputDir string
	// DistanceFile is the mash dist table used for the PHYLIP matrix.
	DistanceFile string
	OutputDir    string
	Quicktree    string
}

// Report lists produced artifacts and non-fatal problems.
type Report struct {
	Artifacts []string
	Warnings  []string
}

func (r *Report) warn(logger *slog.Logger, msg string, args ...any) {
	logger.Warn(msg, args...)
	r.Warnings = append(r.Warnings, msg)
}

// Presenter writes visualization artifacts.
type Presenter struct {
	fs     afero.Fs
	runner toolexec.Runner
	logger *slog.Logger
}

// New creates a presenter. quicktree output is written through the real
// filesystem, so fs should be an OS-backed filesystem outside tests.
func New(fs afero.Fs, runner toolexec.Runner, logger *slog.Logger) *Presenter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{fs: fs, runner: runner, logger: logger}
}

// Run reads the clustering record and writes every artifact it can. Only a
// missing record is fatal.
func (p *Presenter) Run(ctx context.Context, opts Options) (*Report, error) {
	rec, err := export.ReadRecord(p.fs, filepath.Join(opts.InputDir, paths.RecordJSONFile))
	if err != nil {
		return nil, err
	}
	if err := p.fs.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, mcerrors.New(mcerrors.ExportFailed, "failed to create output directory", err)
	}

	report := &Report{}

	sizesPath := filepath.Join(opts.OutputDir, paths.ClusterSizesFile)
	if err := p.writeSizes(sizesPath, SizeDistribution(rec.Clusters)); err != nil {
		report.warn(p.logger, "Could not write cluster size distribution", "error", err)
	} else {
		report.Artifacts = append(report.Artifacts, sizesPath)
	}

	phylip, ok := p.phylip(opts, report)
	if ok {
		report.Artifacts = append(report.Artifacts, phylip)
		if tree, ok := p.tree(ctx, opts, phylip, report); ok {
			report.Artifacts = append(report.Artifacts, tree)
		}
	}

	report.warn(p.logger, "Heatmap and PCoA rendering are not built in; skipped")
	p.logger.Info("Visualization finished", "dir", opts.OutputDir, "artifacts", len(report.Artifacts), "warnings", len(report.Warnings))
	return report, nil
}

// SizeRow is one line of the cluster size distribution.
type SizeRow struct {
	Size       int
	Clusters   int
	Cumulative int
}

// SizeDistribution groups clusters by size, largest first. Cumulative is the
// running genome total over the rows so far.
func SizeDistribution(clusters [][]string) []SizeRow {
	counts := map[int]int{}
	for _, c := range clusters {
		counts[len(c)]++
	}
	sizes := make([]int, 0, len(counts))
	for s := range counts {
		sizes = append(sizes, s)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))

	rows := make([]SizeRow, 0, len(sizes))
	total := 0
	for _, s := range sizes {
		total += s * counts[s]
		rows = append(rows, SizeRow{Size: s, Clusters: counts[s], Cumulative: total})
	}
	return rows
}

func (p *Presenter) writeSizes(path string, rows []SizeRow) error {
	var b strings.Builder
	b.WriteString("size\tclusters\tcumulative_genomes\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%d\t%d\t%d\n", r.Size, r.Clusters, r.Cumulative)
	}
	return afero.WriteFile(p.fs, path, []byte(b.String()), 0644)
}

// readRepresentatives returns the folder names listed in representatives.txt.
func (p *Presenter) readRepresentatives(path string) (map[string]bool, error) {
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return nil, err
	}
	reps := map[string]bool{}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			reps[paths.FolderName(line)] = true
		}
	}
	return reps, nil
}

func (p *Presenter) phylip(opts Options, report *Report) (string, bool) {
	reps, err := p.readRepresentatives(filepath.Join(opts.InputDir, paths.RepresentativesFile))
	if err != nil {
		report.warn(p.logger, "Representatives list unavailable; PHYLIP matrix skipped", "error", err)
		return "", false
	}
	if opts.DistanceFile == "" {
		report.warn(p.logger, "No distance file configured; PHYLIP matrix skipped")
		return "", false
	}

	f, err := p.fs.Open(opts.DistanceFile)
	if err != nil {
		report.warn(p.logger, "Distance file unavailable; PHYLIP matrix skipped", "error", err)
		return "", false
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(opts.DistanceFile, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			report.warn(p.logger, "Distance file is not valid gzip; PHYLIP matrix skipped", "error", err)
			return "", false
		}
		defer gz.Close()
		r = gz
	}

	m, err := ReadSubMatrix(r, reps)
	if err != nil {
		report.warn(p.logger, "Could not read distance file; PHYLIP matrix skipped", "error", err)
		return "", false
	}
	if m.Malformed > 0 {
		report.warn(p.logger, "Malformed distances written as 1.0 in PHYLIP matrix", "count", m.Malformed)
	}

	out := filepath.Join(opts.OutputDir, paths.PhylipFile)
	if err := afero.WriteFile(p.fs, out, m.Phylip(), 0644); err != nil {
		report.warn(p.logger, "Could not write PHYLIP matrix", "error", err)
		return "", false
	}
	return out, true
}

func (p *Presenter) tree(ctx context.Context, opts Options, phylip string, report *Report) (string, bool) {
	bin := opts.Quicktree
	if bin == "" {
		bin = "quicktree"
	}
	if p.runner == nil {
		report.warn(p.logger, "No tool runner; tree export skipped")
		return "", false
	}
	if _, err := p.runner.LookPath(bin); err != nil {
		report.warn(p.logger, "quicktree not found; tree export skipped", "binary", bin)
		return "", false
	}

	out := filepath.Join(opts.OutputDir, paths.TreeFile)
	if stderr, err := p.runner.RunToFile(ctx, out, bin, "-in", "m", "-out", "t", phylip); err != nil {
		report.warn(p.logger, "quicktree failed; tree export skipped", "error", err, "stderr", stderr)
		return "", false
	}
	return out, true
}

// SubMatrix is the distance matrix restricted to a label set, in file order.
type SubMatrix struct {
	Labels    []string
	Rows      [][]float64
	Malformed int
}

// ReadSubMatrix keeps the rows and columns whose folder name is in keep.
func ReadSubMatrix(r io.Reader, keep map[string]bool) (*SubMatrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, mcerrors.New(mcerrors.HeaderEmpty, "distance file is empty", nil)
	}
	header := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
	var cols []int
	for i, h := range header {
		if i > 0 && keep[paths.FolderName(h)] {
			cols = append(cols, i)
		}
	}

	m := &SubMatrix{}
	for scanner.Scan() {
		parts := strings.Split(strings.TrimSpace(scanner.Text()), "\t")
		if len(parts) < 2 || !keep[paths.FolderName(parts[0])] {
			continue
		}
		row := make([]float64, len(cols))
		for j, c := range cols {
			v := 1.0
			if c < len(parts) {
				if d, err := strconv.ParseFloat(parts[c], 64); err == nil {
					v = d
				} else {
					m.Malformed++
				}
			} else {
				m.Malformed++
			}
			row[j] = v
		}
		m.Labels = append(m.Labels, paths.FolderName(parts[0]))
		m.Rows = append(m.Rows, row)
	}
	return m, scanner.Err()
}

// Phylip renders the matrix in the square PHYLIP layout quicktree reads.
func (m *SubMatrix) Phylip() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", len(m.Labels))
	for i, label := range m.Labels {
		b.WriteString(label)
		for _, d := range m.Rows[i] {
			b.WriteByte('\t')
			b.WriteString(strconv.FormatFloat(d, 'f', 6, 64))
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
