package main

import (
	"github.com/spf13/cobra"

	"mashclust/internal/config"
	"mashclust/internal/oracle"
	"mashclust/internal/toolexec"
)

var sketchCmd = &cobra.Command{
	Use:   "sketch",
	Short: "Select target genomes and build a mash sketch",
	Long: `Scan a genome directory for GENOME_*.fna files, split them into targets
and non-targets by folder-name prefix, and sketch the targets with mash.

Examples:
  mashclust sketch --prefix salmonella
  mashclust sketch --no-filter --genome-dir genomes -k 21 --threads 8`,
	RunE: runSketch,
}

func init() {
	d := config.DefaultConfig()
	f := sketchCmd.Flags()
	f.String("genome-dir", d.Mash.GenomeDir, "Directory holding genome folders")
	f.String("output-dir", d.Cluster.OutputDir, "Directory receiving target lists and the sketch")
	f.String("prefix", "", "Folder-name prefix selecting target genomes (case-insensitive)")
	f.Bool("no-filter", false, "Treat every genome as a target")
	f.IntP("kmer-size", "k", d.Mash.KmerSize, "k-mer size")
	f.IntP("sketch-size", "s", d.Mash.SketchSize, "Sketch size")
	f.Int("threads", d.Mash.Threads, "mash threads")
	f.String("mash", d.Mash.Binary, "mash binary")
	rootCmd.AddCommand(sketchCmd)
}

func runSketch(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd,
		flagBinding{"genome-dir", "mash.genome_dir"},
		flagBinding{"output-dir", "cluster.output_dir"},
		flagBinding{"prefix", "mash.prefix"},
		flagBinding{"no-filter", "mash.no_filter"},
		flagBinding{"kmer-size", "mash.kmer_size"},
		flagBinding{"sketch-size", "mash.sketch_size"},
		flagBinding{"threads", "mash.threads"},
		flagBinding{"mash", "mash.binary"},
	)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext()
	defer cancel()

	mc := s.cfg.Mash
	res, err := oracle.New(toolexec.NewExecRunner(0), mc.Binary, s.logger).Sketch(ctx, oracle.SketchOptions{
		GenomeDir:  mc.GenomeDir,
		OutputDir:  s.cfg.Cluster.OutputDir,
		Prefix:     mc.Prefix,
		NoFilter:   mc.NoFilter,
		KmerSize:   mc.KmerSize,
		SketchSize: mc.SketchSize,
		Threads:    mc.Threads,
	})
	if err != nil {
		return err
	}
	return printResponse(res)
}
