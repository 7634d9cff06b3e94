package main

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"mashclust/internal/config"
	"mashclust/internal/paths"
	"mashclust/internal/presentation"
	"mashclust/internal/toolexec"
)

var (
	visualizeDistances string
	visualizeOutputDir string
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize",
	Short: "Write cluster size, PHYLIP and tree artifacts",
	Long: `Read the clustering record and write the cluster size distribution, a
PHYLIP distance matrix of the representatives and, when quicktree is on
PATH, a Newick tree. Missing optional inputs are reported as warnings.

Examples:
  mashclust visualize
  mashclust visualize --input-dir mash_output --output-dir mash_output/visualizations`,
	RunE: runVisualize,
}

func init() {
	d := config.DefaultConfig()
	f := visualizeCmd.Flags()
	f.String("input-dir", d.Cluster.OutputDir, "Directory holding clustering_data.json and representatives.txt")
	f.StringVar(&visualizeDistances, "distances", "", "mash dist table (default: <input-dir>/distances.txt)")
	f.StringVar(&visualizeOutputDir, "output-dir", "", "Artifact directory (default: <input-dir>/visualizations)")
	f.String("quicktree", d.Visual.QuicktreeBinary, "quicktree binary")
	rootCmd.AddCommand(visualizeCmd)
}

func runVisualize(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd,
		flagBinding{"input-dir", "cluster.output_dir"},
		flagBinding{"quicktree", "visualize.quicktree_binary"},
	)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()

	inputDir := s.cfg.Cluster.OutputDir
	opts := presentation.Options{
		InputDir:     inputDir,
		DistanceFile: visualizeDistances,
		OutputDir:    visualizeOutputDir,
		Quicktree:    s.cfg.Visual.QuicktreeBinary,
	}
	if opts.DistanceFile == "" {
		opts.DistanceFile = filepath.Join(inputDir, paths.DistancesFile)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(inputDir, "visualizations")
	}

	report, err := presentation.New(afero.NewOsFs(), toolexec.NewExecRunner(0), s.logger).Run(ctx, opts)
	if err != nil {
		return err
	}
	return printResponse(report)
}
