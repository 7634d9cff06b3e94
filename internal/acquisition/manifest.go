package acquisition

import (
	"bufio"
	"fmt"
	"os"

	"mashclust/internal/paths"
)

// WriteGenomeList writes the sorted genome paths, one per line, returning how
// many were written.
func WriteGenomeList(genomesDir, outPath string) (int, error) {
	genomes, err := paths.FindGenomes(genomesDir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", genomesDir, err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(f)
	for _, g := range genomes {
		fmt.Fprintln(w, g)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return 0, err
	}
	return len(genomes), f.Close()
}
