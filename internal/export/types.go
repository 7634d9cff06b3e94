// Package export writes the representative list and the clustering record
// consumed by the visualization and finalize stages.
package export

// Record is the structured clustering result. Field names match the record
// layout other tools of the pipeline already read.
type Record struct {
	Clusters          [][]string          `json:"clusters" yaml:"clusters"`
	Neighbors         map[string][]string `json:"neighbors" yaml:"neighbors"`
	GenomeNames       map[string]string   `json:"genome_names" yaml:"genome_names"`
	IdentityThreshold float64             `json:"identity_threshold" yaml:"identity_threshold"`
}

// Format selects the encoding of the clustering record.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a config string onto a Format, defaulting to JSON.
func ParseFormat(s string) Format {
	if Format(s) == FormatYAML || s == "yml" {
		return FormatYAML
	}
	return FormatJSON
}
