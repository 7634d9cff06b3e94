package main

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"mashclust/internal/config"
	"mashclust/internal/paths"
	"mashclust/internal/pipeline"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster genomes and select representatives",
	Long: `Load a mash dist table, connect genomes whose distance is at most
1 - identity, cluster them greedily by degree and select up to N
representatives per cluster. Reference genomes (--reference, substring
match) seed clusters first and are always kept.

Writes representatives.txt and clustering_data.json to the output directory.

Examples:
  mashclust cluster
  mashclust cluster --distances mash_output/distances.txt --identity 0.9995 -n 3
  mashclust cluster --reference GCF_000006945 --reference LT2`,
	RunE: runCluster,
}

func init() {
	d := config.DefaultConfig().Cluster
	f := clusterCmd.Flags()
	f.String("distances", "", "mash dist table (default: <output-dir>/distances.txt)")
	f.String("output-dir", d.OutputDir, "Directory receiving representatives.txt and the record")
	f.Float64("identity", d.Identity, "Identity threshold in (0, 1]")
	f.IntP("num-representatives", "n", d.NumRepresentatives, "Representatives per cluster")
	f.Uint64("seed", d.Seed, "Random seed for representative sampling")
	f.StringSlice("reference", nil, "Reference token (repeatable); the first id containing it is protected")
	f.Bool("protect-references", d.ProtectReferences, "Seed clusters from references and always keep them")
	f.String("record-format", d.RecordFormat, "Extra clustering record format (json, yaml)")
	rootCmd.AddCommand(clusterCmd)
}

func runCluster(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd,
		flagBinding{"distances", "cluster.distance_file"},
		flagBinding{"output-dir", "cluster.output_dir"},
		flagBinding{"identity", "cluster.identity"},
		flagBinding{"num-representatives", "cluster.num_representatives"},
		flagBinding{"seed", "cluster.seed"},
		flagBinding{"reference", "cluster.references"},
		flagBinding{"protect-references", "cluster.protect_references"},
		flagBinding{"record-format", "cluster.record_format"},
	)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()

	opts := pipeline.ClusterOptionsFromConfig(s.cfg.Cluster)
	if opts.DistanceFile == "" {
		opts.DistanceFile = filepath.Join(opts.OutputDir, paths.DistancesFile)
	}

	summary, err := pipeline.RunCluster(ctx, afero.NewOsFs(), opts, s.logger)
	if err != nil {
		return err
	}
	return printResponse(summary)
}
