package main

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"mashclust/internal/config"
	"mashclust/internal/integration"
	"mashclust/internal/paths"
	"mashclust/internal/toolexec"
)

var (
	finalizeNonTargets      string
	finalizeRepresentatives string
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Fetch annotated packages for kSNP input",
	Long: `Combine the non-target genomes and the selected representatives, download
each assembly with genome, sequence report, CDS and GFF3 through NCBI
datasets, and unpack it with the dataset-manager script. Writes
selected_accessions.txt and ksnp_files_index.tsv.

Examples:
  mashclust finalize
  mashclust finalize --workers 8 --script ./dataset-manager.py`,
	RunE: runFinalize,
}

func init() {
	d := config.DefaultConfig()
	f := finalizeCmd.Flags()
	f.StringVar(&finalizeNonTargets, "non-targets", "", "Non-target genome list (default: <cluster output>/non_targets.txt)")
	f.StringVar(&finalizeRepresentatives, "representatives", "", "Representative list (default: <cluster output>/representatives.txt)")
	f.String("cluster-dir", d.Cluster.OutputDir, "Directory holding the cluster outputs")
	f.String("output-dir", d.Finalize.OutputDir, "Directory receiving packages and the index")
	f.String("datasets", d.Finalize.DatasetsBinary, "NCBI datasets binary")
	f.String("python", d.Finalize.PythonBinary, "Python interpreter")
	f.String("script", d.Finalize.ManagerScript, "dataset-manager script")
	f.Int("workers", d.Finalize.Workers, "Genomes processed in parallel")
	rootCmd.AddCommand(finalizeCmd)
}

func runFinalize(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd,
		flagBinding{"cluster-dir", "cluster.output_dir"},
		flagBinding{"output-dir", "finalize.output_dir"},
		flagBinding{"datasets", "finalize.datasets_binary"},
		flagBinding{"python", "finalize.python_binary"},
		flagBinding{"script", "finalize.manager_script"},
		flagBinding{"workers", "finalize.workers"},
	)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()

	fc := s.cfg.Finalize
	clusterDir := s.cfg.Cluster.OutputDir
	opts := integration.Options{
		NonTargets:      finalizeNonTargets,
		Representatives: finalizeRepresentatives,
		OutputDir:       fc.OutputDir,
		GenomesSubdir:   fc.GenomesSubdir,
		DatasetsBinary:  fc.DatasetsBinary,
		PythonBinary:    fc.PythonBinary,
		ManagerScript:   fc.ManagerScript,
		Workers:         fc.Workers,
	}
	if opts.NonTargets == "" {
		opts.NonTargets = filepath.Join(clusterDir, paths.NonTargetsFile)
	}
	if opts.Representatives == "" {
		opts.Representatives = filepath.Join(clusterDir, paths.RepresentativesFile)
	}

	runner := toolexec.NewExecRunner(0, apiKeyEnv(s.cfg)...)
	summary, err := integration.New(afero.NewOsFs(), runner, s.logger).Run(ctx, opts)
	if err != nil {
		return err
	}
	return printResponse(summary)
}
