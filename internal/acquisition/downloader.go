package acquisition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mcerrors "mashclust/internal/errors"
	"mashclust/internal/ledger"
	"mashclust/internal/paths"
	"mashclust/internal/toolexec"
)

// Options configures a download run.
type Options struct {
	AccessionFile  string
	OutputDir      string
	DatasetsBinary string
	BatchSize      int
	Delay          time.Duration
	StartFromBatch int
	KeepZip        bool
	HasAPIKey      bool
	Policy         RetryPolicy
}

// FailedBatch describes one batch that produced no genomes.
type FailedBatch struct {
	Number    int
	ErrorType ErrorType
	Count     int
}

// Summary is the outcome of Downloader.Run.
type Summary struct {
	RunID          string
	Requested      int
	Invalid        int
	AlreadyPresent int
	Extracted      int
	FailedBatches  []FailedBatch
	GenomeCount    int
	GenomeListPath string
	Elapsed        time.Duration
}

// FailedCount sums accessions across failed batches.
func (s *Summary) FailedCount() int {
	n := 0
	for _, fb := range s.FailedBatches {
		n += fb.Count
	}
	return n
}

// SuccessRate is Extracted/Requested.
func (s *Summary) SuccessRate() float64 {
	return SuccessRate(s.Extracted, s.Requested)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Downloader runs batched acquisition against the datasets CLI.
type Downloader struct {
	opts   Options
	runner toolexec.Runner
	ledger *ledger.Ledger
	logger *slog.Logger
	sleep  SleepFunc
}

// NewDownloader creates a downloader. The ledger is optional.
func NewDownloader(opts Options, runner toolexec.Runner, lg *ledger.Ledger, logger *slog.Logger) *Downloader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.StartFromBatch <= 0 {
		opts.StartFromBatch = 1
	}
	if opts.DatasetsBinary == "" {
		opts.DatasetsBinary = "datasets"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{opts: opts, runner: runner, ledger: lg, logger: logger, sleep: Sleep}
}

// WithSleep replaces the pause function, mainly for tests.
func (d *Downloader) WithSleep(fn SleepFunc) *Downloader {
	d.sleep = fn
	return d
}

type layout struct {
	out, temp, genomes, failed string
}

func (d *Downloader) prepare() (layout, error) {
	l := layout{
		out:     d.opts.OutputDir,
		temp:    filepath.Join(d.opts.OutputDir, paths.TempDownloadsDir),
		genomes: filepath.Join(d.opts.OutputDir, paths.GenomesDir),
		failed:  filepath.Join(d.opts.OutputDir, paths.FailedBatchesDir),
	}
	for _, dir := range []string{l.temp, l.genomes, l.failed} {
		if _, err := paths.EnsureDir(dir); err != nil {
			return l, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return l, nil
}

// Run downloads every batch from StartFromBatch on, then writes the genome
// list. It fails when no accession is valid, when the breaker trips, or when
// no genome ends up on disk.
func (d *Downloader) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	if _, err := d.runner.LookPath(d.opts.DatasetsBinary); err != nil {
		return nil, mcerrors.New(mcerrors.ToolUnavailable, "datasets CLI not found: "+d.opts.DatasetsBinary, err,
			mcerrors.FixAction{Type: mcerrors.InstallTool, Tool: "datasets", URL: "https://www.ncbi.nlm.nih.gov/datasets/docs/v2/command-line-tools/download-and-install/"})
	}

	accessions, invalid, err := ReadAccessionFile(d.opts.AccessionFile)
	if err != nil {
		return nil, err
	}
	for _, line := range invalid {
		d.logger.Warn("Invalid accession format skipped", "line", line)
	}
	if len(accessions) == 0 {
		return nil, mcerrors.New(mcerrors.NoValidAccessions, "no valid accessions found in "+d.opts.AccessionFile, nil)
	}

	dirs, err := d.prepare()
	if err != nil {
		return nil, err
	}

	existing, err := paths.FindGenomes(dirs.genomes)
	if err != nil {
		return nil, err
	}

	batches := Batches(accessions, d.opts.BatchSize)
	sum := &Summary{
		Requested:      len(accessions),
		Invalid:        len(invalid),
		AlreadyPresent: len(existing),
		Extracted:      len(existing),
	}

	d.logger.Info("Starting download",
		"genomes", len(accessions),
		"alreadyDownloaded", len(existing),
		"batchSize", d.opts.BatchSize,
		"batches", len(batches),
		"startBatch", d.opts.StartFromBatch,
		"delay", d.opts.Delay,
		"maxRetries", d.opts.Policy.MaxAttempts,
		"minSuccessRate", d.opts.Policy.SuccessFloor,
		"apiKey", d.opts.HasAPIKey)
	if !d.opts.HasAPIKey {
		d.logger.Warn("No NCBI API key set; NCBI_API_KEY raises the rate limit roughly tenfold")
	}

	var run *ledger.Run
	if d.ledger != nil {
		run, err = d.ledger.StartRun(d.opts.AccessionFile, len(accessions), d.opts.StartFromBatch)
		if err != nil {
			return nil, err
		}
		sum.RunID = run.ID
	}

	state := &ResumeState{RunID: sum.RunID, AccessionFile: d.opts.AccessionFile, TotalBatches: len(batches)}

	for idx := d.opts.StartFromBatch - 1; idx < len(batches); idx++ {
		if err := ctx.Err(); err != nil {
			d.finishRun(run, ledger.RunAborted, sum.Extracted)
			return sum, err
		}

		num := idx + 1
		batch := batches[idx]
		processed := idx*d.opts.BatchSize + len(batch)

		got, attempts, errType := d.processBatch(ctx, dirs, num, len(batches), batch)
		d.recordBatch(run, num, got, attempts, errType, len(batch))

		state.NextBatch = num + 1
		if errType != "" {
			sum.FailedBatches = append(sum.FailedBatches, FailedBatch{Number: num, ErrorType: errType, Count: len(batch)})
			state.FailedBatches = append(state.FailedBatches, num)
			if err := d.saveFailed(dirs.out, num, batch); err != nil {
				d.logger.Warn("Could not save failed accessions", "batch", num, "error", err)
			}
		} else {
			sum.Extracted += got
		}
		state.Extracted = sum.Extracted

		if errType != "" && d.opts.Policy.Trips(num, sum.Extracted, processed) {
			state.NextBatch = num
			state.Tripped = true
			d.saveState(dirs.out, state)
			d.finishRun(run, ledger.RunAborted, sum.Extracted)

			rate := SuccessRate(sum.Extracted, processed)
			d.logger.Error("Success rate below minimum, stopping",
				"rate", fmt.Sprintf("%.2f%%", rate*100),
				"minimum", fmt.Sprintf("%.2f%%", d.opts.Policy.SuccessFloor*100),
				"resumeBatch", num)
			return sum, mcerrors.New(mcerrors.SuccessRateBelowFloor,
				fmt.Sprintf("success rate %.2f%% below minimum %.2f%% at batch %d", rate*100, d.opts.Policy.SuccessFloor*100, num), nil,
				mcerrors.FixAction{
					Type:        mcerrors.RunCommand,
					Command:     "mashclust download --start-from-batch " + strconv.Itoa(num),
					Description: "wait for the NCBI rate limit to reset, then resume",
				})
		}
		d.saveState(dirs.out, state)

		// A failed download moves straight on; the retries already waited.
		downloadFailed := errType != "" && errType != ErrExtraction
		if num < len(batches) && !downloadFailed {
			d.logger.Info("Pausing before next batch", "delay", d.opts.Delay)
			if err := d.sleep(ctx, d.opts.Delay); err != nil {
				d.finishRun(run, ledger.RunAborted, sum.Extracted)
				return sum, err
			}
		}
	}

	listPath := filepath.Join(dirs.out, paths.GenomeListFile)
	count, err := WriteGenomeList(dirs.genomes, listPath)
	if err != nil {
		d.finishRun(run, ledger.RunAborted, sum.Extracted)
		return sum, err
	}
	sum.GenomeCount = count
	sum.GenomeListPath = listPath
	sum.Elapsed = time.Since(start)
	d.finishRun(run, ledger.RunCompleted, sum.Extracted)
	d.logSummary(sum, dirs.failed)

	if count == 0 {
		return sum, mcerrors.New(mcerrors.NoGenomes, "no genomes were successfully downloaded", nil)
	}
	if sum.SuccessRate() < d.opts.Policy.SuccessFloor {
		d.logger.Warn("Success rate below target", "rate", fmt.Sprintf("%.2f%%", sum.SuccessRate()*100))
	}
	return sum, nil
}

// processBatch downloads with retries and extracts. errType is empty on
// success.
func (d *Downloader) processBatch(ctx context.Context, dirs layout, num, total int, batch []string) (int, int, ErrorType) {
	batchStart := time.Now()
	d.logger.Info("Processing batch", "batch", num, "of", total, "accessions", len(batch))

	listPath := filepath.Join(dirs.temp, "acc_list_batch_"+strconv.Itoa(num)+".txt")
	zipPath := filepath.Join(dirs.temp, "genomes_batch_"+strconv.Itoa(num)+".zip")
	defer func() {
		_ = os.Remove(listPath)
		if !d.opts.KeepZip {
			_ = os.Remove(zipPath)
		}
	}()

	if err := os.WriteFile(listPath, []byte(strings.Join(batch, "\n")), 0644); err != nil {
		d.logger.Error("Could not write batch list", "batch", num, "error", err)
		return 0, 0, ErrUnknown
	}

	attempts, errType := d.downloadWithRetry(ctx, num, listPath, zipPath)
	if errType != "" {
		d.logger.Error("Batch failed after retries", "batch", num, "type", errType)
		_ = os.Remove(zipPath)
		return 0, attempts, errType
	}

	got, err := ExtractBatch(zipPath, dirs.genomes, batch)
	if err != nil {
		d.logger.Error("Extraction failed", "batch", num, "error", err)
		return 0, attempts, ErrExtraction
	}

	d.logger.Info("Batch extracted", "batch", num, "genomes", got, "elapsed", time.Since(batchStart).Round(100*time.Millisecond))
	return got, attempts, ""
}

func (d *Downloader) downloadWithRetry(ctx context.Context, num int, listPath, zipPath string) (int, ErrorType) {
	args := []string{"download", "genome", "accession", "--inputfile", listPath, "--filename", zipPath}
	maxAttempts := d.opts.Policy.MaxAttempts

	for attempt := 0; attempt < maxAttempts; attempt++ {
		_, stderr, err := d.runner.Run(ctx, d.opts.DatasetsBinary, args...)
		if err == nil {
			return attempt + 1, ""
		}
		if ctx.Err() != nil {
			return attempt + 1, ErrUnknown
		}

		msg := stderr
		if msg == "" {
			msg = err.Error()
		}
		errType := Classify(msg)
		if attempt == maxAttempts-1 {
			d.logger.Error("Batch exhausted retries", "batch", num, "retries", maxAttempts)
			return maxAttempts, errType
		}

		wait := d.opts.Policy.Wait(attempt, errType)
		d.logger.Warn("Batch attempt failed, retrying",
			"batch", num, "attempt", attempt+1, "of", maxAttempts, "type", errType, "wait", wait)
		if err := d.sleep(ctx, wait); err != nil {
			return attempt + 1, ErrUnknown
		}
	}
	return 0, ErrMaxRetries
}

func (d *Downloader) saveFailed(outDir string, num int, batch []string) error {
	path := paths.FailedBatchPath(outDir, num)
	if err := os.WriteFile(path, []byte(strings.Join(batch, "\n")), 0644); err != nil {
		return err
	}
	d.logger.Info("Failed accessions saved", "path", path)
	return nil
}

func (d *Downloader) saveState(outDir string, st *ResumeState) {
	if err := SaveState(outDir, st); err != nil {
		d.logger.Warn("Could not save resume state", "error", err)
	}
}

func (d *Downloader) recordBatch(run *ledger.Run, num, got, attempts int, errType ErrorType, size int) {
	if run == nil {
		return
	}
	b := ledger.Batch{RunID: run.ID, Number: num, Status: ledger.BatchExtracted, Attempts: attempts, Accessions: size, Extracted: got}
	if errType != "" {
		b.Status = ledger.BatchFailed
		b.ErrorType = string(errType)
	}
	if err := d.ledger.RecordBatch(b); err != nil {
		d.logger.Warn("Could not record batch", "batch", num, "error", err)
	}
}

func (d *Downloader) finishRun(run *ledger.Run, status ledger.RunStatus, extracted int) {
	if run == nil {
		return
	}
	if err := d.ledger.FinishRun(run.ID, status, extracted); err != nil {
		d.logger.Warn("Could not finish ledger run", "error", err)
	}
}

func (d *Downloader) logSummary(sum *Summary, failedDir string) {
	d.logger.Info("Download completed",
		"requested", sum.Requested,
		"extracted", sum.Extracted,
		"failed", sum.FailedCount(),
		"successRate", fmt.Sprintf("%.2f%%", sum.SuccessRate()*100),
		"elapsed", sum.Elapsed.Round(time.Second),
		"genomeList", sum.GenomeListPath,
		"genomes", sum.GenomeCount)
	for _, fb := range sum.FailedBatches {
		d.logger.Warn("Failed batch", "batch", fb.Number, "type", fb.ErrorType, "genomes", fb.Count)
	}
	if len(sum.FailedBatches) > 0 {
		d.logger.Info("Failed accessions directory", "path", failedDir)
	}
}
