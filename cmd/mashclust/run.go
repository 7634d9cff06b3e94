package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"mashclust/internal/config"
	"mashclust/internal/pipeline"
	"mashclust/internal/toolexec"
)

var runWorkDir string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run sketch, distances, cluster and visualize in one go",
	Long: `Chain the mash and clustering stages for a genome directory. Each stage
writes to its own numbered subdirectory of the work directory
(1-sketch, 2-distances, 3-cluster, 4-visualize).

Examples:
  mashclust run --prefix salmonella
  mashclust run --no-filter --work-dir results -n 3 --reference LT2`,
	RunE: runPipeline,
}

func init() {
	d := config.DefaultConfig()
	f := runCmd.Flags()
	f.StringVar(&runWorkDir, "work-dir", "mashclust_run", "Directory receiving every stage's outputs")
	f.String("genome-dir", d.Mash.GenomeDir, "Directory holding genome folders")
	f.String("prefix", "", "Folder-name prefix selecting target genomes (case-insensitive)")
	f.Bool("no-filter", false, "Treat every genome as a target")
	f.Int("threads", d.Mash.Threads, "mash threads")
	f.Float64("identity", d.Cluster.Identity, "Identity threshold in (0, 1]")
	f.IntP("num-representatives", "n", d.Cluster.NumRepresentatives, "Representatives per cluster")
	f.Uint64("seed", d.Cluster.Seed, "Random seed for representative sampling")
	f.StringSlice("reference", nil, "Reference token (repeatable)")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd,
		flagBinding{"genome-dir", "mash.genome_dir"},
		flagBinding{"prefix", "mash.prefix"},
		flagBinding{"no-filter", "mash.no_filter"},
		flagBinding{"threads", "mash.threads"},
		flagBinding{"identity", "cluster.identity"},
		flagBinding{"num-representatives", "cluster.num_representatives"},
		flagBinding{"seed", "cluster.seed"},
		flagBinding{"reference", "cluster.references"},
	)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()

	summary, err := pipeline.NewRunner(afero.NewOsFs(), toolexec.NewExecRunner(0), s.logger).Run(ctx, s.cfg, runWorkDir)
	if err != nil {
		return err
	}
	return printResponse(summary)
}
