package acquisition

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"mashclust/internal/paths"
)

// ResumeState is persisted after every batch so an interrupted or tripped
// run can be continued with --start-from-batch.
type ResumeState struct {
	RunID         string    `toml:"run_id"`
	AccessionFile string    `toml:"accession_file"`
	TotalBatches  int       `toml:"total_batches"`
	NextBatch     int       `toml:"next_batch"`
	Extracted     int       `toml:"extracted"`
	FailedBatches []int     `toml:"failed_batches"`
	Tripped       bool      `toml:"tripped"`
	UpdatedAt     time.Time `toml:"updated_at"`
}

// StatePath is resume.toml in outDir.
func StatePath(outDir string) string {
	return filepath.Join(outDir, paths.ResumeStateFile)
}

// LoadState reads resume.toml. A missing file gives (nil, nil).
func LoadState(outDir string) (*ResumeState, error) {
	var st ResumeState
	if _, err := toml.DecodeFile(StatePath(outDir), &st); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// SaveState writes resume.toml through a temp file and rename.
func SaveState(outDir string, st *ResumeState) error {
	st.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	tmp := StatePath(outDir) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(st); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, StatePath(outDir))
}
