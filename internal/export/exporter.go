package export

import (
	"bufio"
	"fmt"
	"log/slog"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	mcerrors "mashclust/internal/errors"
	"mashclust/internal/paths"
)

// Exporter writes pipeline outputs into a directory.
type Exporter struct {
	fs     afero.Fs
	outDir string
	logger *slog.Logger
}

// NewExporter creates an exporter rooted at outDir. A nil fs means the OS
// filesystem.
func NewExporter(fs afero.Fs, outDir string, logger *slog.Logger) *Exporter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{fs: fs, outDir: outDir, logger: logger}
}

// WriteRepresentatives resolves each id to its source path and writes one
// path per line. It returns the written file path.
func (e *Exporter) WriteRepresentatives(ids []string, sourcePaths map[string]string) (string, error) {
	if err := e.fs.MkdirAll(e.outDir, 0755); err != nil {
		return "", exportErr("create output directory", err)
	}

	target := filepath.Join(e.outDir, paths.RepresentativesFile)
	f, err := e.fs.Create(target)
	if err != nil {
		return "", exportErr("create representatives file", err)
	}

	w := bufio.NewWriter(f)
	for _, id := range ids {
		p, ok := sourcePaths[id]
		if !ok {
			_ = f.Close()
			return "", mcerrors.New(mcerrors.InternalError, "representative has no source path: "+id, nil)
		}
		if _, err := fmt.Fprintln(w, p); err != nil {
			_ = f.Close()
			return "", exportErr("write representatives", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return "", exportErr("flush representatives", err)
	}
	if err := f.Close(); err != nil {
		return "", exportErr("close representatives file", err)
	}

	e.logger.Debug("Wrote representatives", "path", target, "count", len(ids))
	return target, nil
}

// WriteRecord encodes the clustering record. Map keys are written sorted, so
// identical records give byte-identical files.
func (e *Exporter) WriteRecord(rec *Record, format Format) (string, error) {
	if err := e.fs.MkdirAll(e.outDir, 0755); err != nil {
		return "", exportErr("create output directory", err)
	}

	var (
		data []byte
		err  error
		name string
	)
	switch format {
	case FormatYAML:
		name = paths.RecordYAMLFile
		data, err = yaml.Marshal(rec)
	default:
		name = paths.RecordJSONFile
		data, err = json.Marshal(rec)
	}
	if err != nil {
		return "", exportErr("encode clustering record", err)
	}

	target := filepath.Join(e.outDir, name)
	if err := afero.WriteFile(e.fs, target, data, 0644); err != nil {
		return "", exportErr("write clustering record", err)
	}

	e.logger.Debug("Wrote clustering record", "path", target, "clusters", len(rec.Clusters))
	return target, nil
}

// ReadRecord loads a JSON clustering record, as written by WriteRecord.
func ReadRecord(fs afero.Fs, path string) (*Record, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if exists, _ := afero.Exists(fs, path); !exists {
			return nil, mcerrors.New(mcerrors.InputMissing, "clustering record not found: "+path, err)
		}
		return nil, fmt.Errorf("failed to read clustering record: %w", err)
	}

	var rec Record
	if filepath.Ext(path) == ".yaml" || filepath.Ext(path) == ".yml" {
		err = yaml.Unmarshal(data, &rec)
	} else {
		err = json.Unmarshal(data, &rec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode clustering record %s: %w", path, err)
	}
	return &rec, nil
}

func exportErr(what string, err error) error {
	return mcerrors.New(mcerrors.ExportFailed, "failed to "+what, err)
}
