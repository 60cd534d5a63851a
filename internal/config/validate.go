package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Settings value.
//
// Path is a dotted path into the config (e.g. "metrics.backend"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var knownKinds = map[string]struct{}{
	"tweets":     {},
	"users":      {},
	"compliance": {},
	"counts":     {},
}

// Validate performs static validation of s. It does not mutate s; it
// returns a slice of Issue values, and callers decide whether warnings are
// fatal.
func Validate(s Settings) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.InputDataType) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input_data_type",
			Message:  "at least one input data kind is required",
		})
	}
	for _, part := range strings.Split(s.InputDataType, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if _, ok := knownKinds[part]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input_data_type",
				Message:  fmt.Sprintf("unknown input data kind %q (want tweets, users, compliance, or counts)", part),
			})
		}
	}

	if s.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "batch_size",
			Message:  "batch size must be a positive integer",
		})
	}

	if n := len([]rune(s.Delimiter)); n != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "delimiter",
			Message:  fmt.Sprintf("delimiter must be exactly one character, got %d", n),
		})
	}

	if s.JSONEncodeAll && s.JSONEncodeText {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "json_encode_text",
			Message:  "json_encode_all already covers text fields; json_encode_text has no effect",
		})
	}

	switch s.Metrics.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(s.Metrics.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires a gateway URL",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", s.Metrics.Backend),
		})
	}

	return issues
}
