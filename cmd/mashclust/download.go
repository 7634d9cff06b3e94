package main

import (
	"github.com/spf13/cobra"

	"mashclust/internal/acquisition"
	"mashclust/internal/config"
	mcerrors "mashclust/internal/errors"
	"mashclust/internal/ledger"
	"mashclust/internal/toolexec"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download genome assemblies in batches with NCBI datasets",
	Long: `Download the assemblies listed in an accession file, one accession per
line, in batches through the NCBI datasets CLI. Failed batches are retried
with backoff and written to failed_batches/. When the success rate drops
below the floor the run stops and prints the batch to resume from.

Set NCBI_API_KEY (or download.api_key) for higher rate limits.

Examples:
  mashclust download --accessions accessions.txt
  mashclust download --accessions accessions.txt --start-from-batch 12
  mashclust download --accessions accessions.txt --batch-size 50 --delay 2m`,
	RunE: runDownload,
}

func init() {
	d := config.DefaultConfig().Download
	f := downloadCmd.Flags()
	f.String("accessions", "", "Accession list file")
	f.String("output-dir", d.OutputDir, "Directory receiving genomes/ and the manifest")
	f.String("datasets", d.DatasetsBinary, "NCBI datasets binary")
	f.Int("batch-size", d.BatchSize, "Accessions per batch")
	f.Duration("delay", d.Delay, "Pause between batches")
	f.Int("max-retries", d.MaxRetries, "Download attempts per batch")
	f.Float64("min-success-rate", d.MinSuccessRate, "Abort when the success rate falls below this")
	f.Int("min-batches", d.MinBatches, "Batches processed before the success-rate check applies")
	f.Int("start-from-batch", d.StartFromBatch, "Resume from this 1-based batch number")
	f.Bool("keep-zip", false, "Keep downloaded archives")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd,
		flagBinding{"accessions", "download.accession_file"},
		flagBinding{"output-dir", "download.output_dir"},
		flagBinding{"datasets", "download.datasets_binary"},
		flagBinding{"batch-size", "download.batch_size"},
		flagBinding{"delay", "download.delay"},
		flagBinding{"max-retries", "download.max_retries"},
		flagBinding{"min-success-rate", "download.min_success_rate"},
		flagBinding{"min-batches", "download.min_batches"},
		flagBinding{"start-from-batch", "download.start_from_batch"},
		flagBinding{"keep-zip", "download.keep_zip"},
	)
	if err != nil {
		return err
	}
	defer s.Close()

	dc := s.cfg.Download
	if dc.AccessionFile == "" {
		return mcerrors.New(mcerrors.InvalidConfig, "no accession file given", nil,
			mcerrors.FixAction{Type: mcerrors.RunCommand, Command: "mashclust download --accessions FILE"})
	}

	ctx, cancel := commandContext()
	defer cancel()

	lg, err := ledger.Open(dc.OutputDir, s.logger)
	if err != nil {
		s.logger.Warn("Batch ledger unavailable, continuing without it", "error", err)
		lg = nil
	} else {
		defer func() { _ = lg.Close() }()
	}

	opts := acquisition.Options{
		AccessionFile:  dc.AccessionFile,
		OutputDir:      dc.OutputDir,
		DatasetsBinary: dc.DatasetsBinary,
		BatchSize:      dc.BatchSize,
		Delay:          dc.Delay,
		StartFromBatch: dc.StartFromBatch,
		KeepZip:        dc.KeepZip,
		HasAPIKey:      dc.APIKey != "",
		Policy: acquisition.RetryPolicy{
			MaxAttempts:   dc.MaxRetries,
			BaseWait:      dc.BaseWait,
			LinearPenalty: dc.LinearPenalty,
			SuccessFloor:  dc.MinSuccessRate,
			MinBatches:    dc.MinBatches,
		},
	}
	runner := toolexec.NewExecRunner(0, apiKeyEnv(s.cfg)...)
	summary, err := acquisition.NewDownloader(opts, runner, lg, s.logger).Run(ctx)
	if err != nil {
		return err
	}
	return printResponse(summary)
}
