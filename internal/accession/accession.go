// Package accession resolves canonical genome assembly identifiers from
// path-like strings.
package accession

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// embedded matches an accession anywhere in a string, accepting "." or "_"
	// before the version (GENOME_GCF_000001405_40.fna, GCA_000001405.1).
	embedded = regexp.MustCompile(`(GC[FA])_(\d{9})[._](\d+)`)

	// strict matches a canonical accession and nothing else.
	strict = regexp.MustCompile(`^GC[FA]_\d{9}\.\d+$`)
)

// Resolve extracts an identity for a path. The file name is tried first, then
// the enclosing directory name. When neither carries an accession the
// directory name is the identity; a path without a directory falls back to its
// own name. Resolve never fails for non-empty input.
func Resolve(path string) string {
	path = strings.TrimSpace(path)
	name := filepath.Base(path)
	dir := parentName(path)

	if m := embedded.FindString(name); m != "" {
		return m
	}
	if m := embedded.FindString(dir); m != "" {
		return m
	}
	if dir != "" {
		return dir
	}
	return name
}

// Normalize finds an accession in s and rewrites it to the canonical
// PREFIX_DIGITS.VERSION form.
func Normalize(s string) (string, bool) {
	m := embedded.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1] + "_" + m[2] + "." + m[3], true
}

// Valid reports whether s is exactly a canonical accession.
func Valid(s string) bool {
	return strict.MatchString(s)
}

// FolderSafe converts a canonical accession into the form used in folder and
// file names (GCF_000001405.40 -> GCF_000001405_40).
func FolderSafe(acc string) string {
	return strings.ReplaceAll(acc, ".", "_")
}

func parentName(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == string(filepath.Separator) {
		return ""
	}
	return filepath.Base(dir)
}
