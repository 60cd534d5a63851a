// Package config defines the canonical, serializable configuration model
// for the converter. It is intentionally small and explicit so that profiles
// can be loaded from disk (or built from flags) and passed through the
// program without additional glue code.
//
// Profiles are YAML files mirroring this structure:
//
//	input_data_type: tweets
//	json_encode_lists: true
//	merge_retweets: true
//	batch_size: 100
//	state:
//	  path: seen.db
//	metrics:
//	  backend: pushgateway
//	  pushgateway_url: http://localhost:9091
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings describes one conversion run.
type Settings struct {
	// InputDataType declares the input kind(s): a comma-separated subset of
	// "tweets", "users", "compliance", "counts".
	InputDataType string `yaml:"input_data_type" json:"input_data_type"`

	// Cell-encoding modes. JSONEncodeAll wins over JSONEncodeText; the
	// minimal newline escape always applies to plain string cells.
	JSONEncodeAll   bool `yaml:"json_encode_all" json:"json_encode_all"`
	JSONEncodeText  bool `yaml:"json_encode_text" json:"json_encode_text"`
	JSONEncodeLists bool `yaml:"json_encode_lists" json:"json_encode_lists"`

	// InlineReferencedTweets outputs referenced tweets as separate rows.
	InlineReferencedTweets bool `yaml:"inline_referenced_tweets" json:"inline_referenced_tweets"`

	// MergeRetweets merges original tweet content into native retweets.
	MergeRetweets bool `yaml:"merge_retweets" json:"merge_retweets"`

	// AllowDuplicates lists every record as is, including duplicates.
	AllowDuplicates bool `yaml:"allow_duplicates" json:"allow_duplicates"`

	// ExtraInputColumns appends accepted input columns (comma-separated key
	// paths). Only needed for pre-processed input.
	ExtraInputColumns string `yaml:"extra_input_columns" json:"extra_input_columns"`

	// OutputColumns restricts and orders the written columns
	// (comma-separated). Empty means all input columns.
	OutputColumns string `yaml:"output_columns" json:"output_columns"`

	// BatchSize is the number of input lines processed per chunk.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// Delimiter is the output field separator (one character).
	Delimiter string `yaml:"delimiter" json:"delimiter"`

	State   State   `yaml:"state" json:"state"`
	Metrics Metrics `yaml:"metrics" json:"metrics"`
}

// State configures the optional persistent run state used to share
// deduplication across invocations.
type State struct {
	// Path is the SQLite database path; empty disables persistence.
	Path string `yaml:"path" json:"path"`
}

// Metrics configures the optional metrics backend.
type Metrics struct {
	// Backend selects the implementation: "pushgateway" or "none"/"".
	Backend string `yaml:"backend" json:"backend"`

	// PushgatewayURL is the base URL of the Pushgateway server.
	PushgatewayURL string `yaml:"pushgateway_url" json:"pushgateway_url"`

	// Job is the Pushgateway job name; defaults to "twarc_csv".
	Job string `yaml:"job" json:"job"`
}

// Default returns the settings used when no profile or flags override them.
func Default() Settings {
	return Settings{
		InputDataType:   "tweets",
		JSONEncodeLists: true,
		MergeRetweets:   true,
		BatchSize:       100,
		Delimiter:       ",",
	}
}

// Load decodes a YAML profile from path on top of the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return s, nil
}
