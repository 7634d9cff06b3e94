package acquisition

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"mashclust/internal/accession"
	mcerrors "mashclust/internal/errors"
)

// ReadAccessions parses an accession list. Blank lines and # comments are
// ignored; lines that are not strict accessions are returned as invalid.
func ReadAccessions(r io.Reader) (valid, invalid []string, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if accession.Valid(line) {
			valid = append(valid, line)
		} else {
			invalid = append(invalid, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read accessions: %w", err)
	}
	return valid, invalid, nil
}

// ReadAccessionFile opens path and calls ReadAccessions.
func ReadAccessionFile(path string) (valid, invalid []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, mcerrors.New(mcerrors.InputMissing, "accession file not found: "+path, err)
		}
		return nil, nil, err
	}
	defer f.Close()
	return ReadAccessions(f)
}

// Batches splits items into chunks of size n. The last chunk may be short.
func Batches(items []string, n int) [][]string {
	if n <= 0 {
		n = 1
	}
	out := make([][]string, 0, (len(items)+n-1)/n)
	for i := 0; i < len(items); i += n {
		end := i + n
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
