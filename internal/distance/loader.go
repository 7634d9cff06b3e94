// Package distance parses tabular all-vs-all distance files (mash dist -t)
// into an id universe and a threshold neighbor graph.
package distance

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"mashclust/internal/accession"
	mcerrors "mashclust/internal/errors"
	"mashclust/internal/graph"
)

// maxLineBytes bounds a single row. A header of a few thousand absolute
// genome paths easily exceeds bufio's 64KB default.
const maxLineBytes = 256 * 1024 * 1024

// thresholdEpsilon absorbs float rounding so that a distance written as
// exactly 1-identity (0.0003 for 0.9997) still counts as a neighbor.
const thresholdEpsilon = 1e-12

// Matrix is the streamed result of loading a distance file. Only the id
// universe, the id->path map and the derived neighbor graph are retained.
type Matrix struct {
	// IDs is the header id universe in first-seen order.
	IDs []string
	// Paths maps id to the source path from the header (last write wins).
	Paths map[string]string
	// Graph holds every id and the edges with distance <= Threshold.
	Graph *graph.NeighborGraph
	// Threshold is the distance threshold used to build Graph.
	Threshold float64
	// Stats describes what the loader skipped.
	Stats LoadStats
}

// LoadStats counts rows and values the loader read or skipped.
type LoadStats struct {
	Rows            int `json:"rows"`
	ShortRows       int `json:"shortRows"`
	UnknownRows     int `json:"unknownRows"`
	MalformedValues int `json:"malformedValues"`
	ExtraValues     int `json:"extraValues"`
}

// DistanceThreshold converts an identity threshold into a distance threshold.
func DistanceThreshold(identity float64) float64 {
	return 1.0 - identity
}

// LoadFile opens path (gzip-compressed when it ends in .gz) and loads it.
func LoadFile(path string, threshold float64) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mcerrors.New(mcerrors.InputMissing, "distance file not found: "+path, err)
		}
		return nil, fmt.Errorf("failed to open distance file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	return Load(r, threshold)
}

// Load parses a distance table from r. The first line lists a placeholder
// cell followed by one column path per genome; every following line is a row
// path followed by one distance per column. Malformed values and short rows
// are skipped. Load fails only when the header has no columns or the stream
// cannot be read.
func Load(r io.Reader, threshold float64) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read distance header: %w", err)
		}
		return nil, mcerrors.New(mcerrors.HeaderEmpty, "distance file is empty", nil)
	}

	columns, m := parseHeader(scanner.Text())
	if len(m.IDs) == 0 {
		return nil, mcerrors.New(mcerrors.HeaderEmpty, "distance header has no columns", nil)
	}
	m.Threshold = threshold
	m.Graph = graph.NewNeighborGraph(m.IDs)

	for scanner.Scan() {
		m.consumeRow(scanner.Text(), columns)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read distance rows: %w", err)
	}

	return m, nil
}

// parseHeader returns the resolved id for every column position (empty for
// blank cells) along with a Matrix carrying the id universe and path map.
func parseHeader(line string) ([]string, *Matrix) {
	cells := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(cells) > 0 {
		cells = cells[1:]
	}

	m := &Matrix{Paths: make(map[string]string, len(cells))}
	columns := make([]string, len(cells))
	for j, cell := range cells {
		p := strings.TrimSpace(cell)
		if p == "" {
			continue
		}
		id := accession.Resolve(p)
		columns[j] = id
		if _, seen := m.Paths[id]; !seen {
			m.IDs = append(m.IDs, id)
		}
		m.Paths[id] = p
	}
	return columns, m
}

func (m *Matrix) consumeRow(line string, columns []string) {
	parts := strings.Split(strings.TrimSpace(line), "\t")
	if len(parts) < 2 {
		if strings.TrimSpace(line) != "" {
			m.Stats.ShortRows++
		}
		return
	}
	m.Stats.Rows++

	query := accession.Resolve(parts[0])
	if !m.Graph.Has(query) {
		m.Stats.UnknownRows++
		return
	}

	limit := m.Threshold + thresholdEpsilon
	for j, raw := range parts[1:] {
		if j >= len(columns) {
			m.Stats.ExtraValues += len(parts) - 1 - j
			break
		}
		target := columns[j]
		if target == "" {
			continue
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(d) {
			m.Stats.MalformedValues++
			continue
		}
		if query != target && d <= limit {
			m.Graph.Connect(query, target)
		}
	}
}
