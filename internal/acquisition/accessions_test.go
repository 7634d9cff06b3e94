package acquisition

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	mcerrors "mashclust/internal/errors"
)

func TestReadAccessions(t *testing.T) {
	input := `# selection for E. coli
GCF_000005845.2

  GCA_000001405.29  
GCF_12345.1
not-an-accession
GCF_000005845_2
`
	valid, invalid, err := ReadAccessions(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"GCF_000005845.2", "GCA_000001405.29"}; !reflect.DeepEqual(valid, want) {
		t.Errorf("valid = %v, want %v", valid, want)
	}
	if want := []string{"GCF_12345.1", "not-an-accession", "GCF_000005845_2"}; !reflect.DeepEqual(invalid, want) {
		t.Errorf("invalid = %v, want %v", invalid, want)
	}
}

func TestReadAccessionFileMissing(t *testing.T) {
	_, _, err := ReadAccessionFile(filepath.Join(t.TempDir(), "none.txt"))
	if mcerrors.CodeOf(err) != mcerrors.InputMissing {
		t.Errorf("error = %v, want INPUT_MISSING", err)
	}
}

func TestBatches(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	tests := []struct {
		n    int
		want [][]string
	}{
		{2, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}},
		{5, [][]string{{"a", "b", "c", "d", "e"}}},
		{10, [][]string{{"a", "b", "c", "d", "e"}}},
		{0, [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}},
	}
	for _, tt := range tests {
		if got := Batches(items, tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Batches(n=%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
	if got := Batches(nil, 3); len(got) != 0 {
		t.Errorf("Batches(nil) = %v", got)
	}
}
