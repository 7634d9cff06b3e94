package main

import (
	"github.com/spf13/cobra"

	"mashclust/internal/config"
	"mashclust/internal/oracle"
	"mashclust/internal/toolexec"
)

var distancesSketchDir string

var distancesCmd = &cobra.Command{
	Use:   "distances",
	Short: "Compute all-vs-all mash distances of the sketch",
	Long: `Run mash dist of genomes_sketch.msh against itself and write the
tabular matrix to distances.txt.

Examples:
  mashclust distances
  mashclust distances --sketch-dir mash_output --output-dir mash_output --threads 8`,
	RunE: runDistances,
}

func init() {
	d := config.DefaultConfig()
	f := distancesCmd.Flags()
	f.StringVar(&distancesSketchDir, "sketch-dir", "", "Directory holding genomes_sketch.msh (default: output dir)")
	f.String("output-dir", d.Cluster.OutputDir, "Directory receiving distances.txt")
	f.Int("threads", d.Mash.Threads, "mash threads")
	f.String("mash", d.Mash.Binary, "mash binary")
	rootCmd.AddCommand(distancesCmd)
}

func runDistances(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd,
		flagBinding{"output-dir", "cluster.output_dir"},
		flagBinding{"threads", "mash.threads"},
		flagBinding{"mash", "mash.binary"},
	)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()

	outDir := s.cfg.Cluster.OutputDir
	sketchDir := distancesSketchDir
	if sketchDir == "" {
		sketchDir = outDir
	}

	path, err := oracle.New(toolexec.NewExecRunner(0), s.cfg.Mash.Binary, s.logger).
		Distances(ctx, sketchDir, outDir, s.cfg.Mash.Threads)
	if err != nil {
		return err
	}
	return printResponse(&DistancesResponse{SketchDir: sketchDir, DistancesPath: path})
}
