// Package schema defines the ordered column contracts for each input data
// kind and reconciles observed batches against them.
//
// A Schema carries two ordered column lists: the input columns (the
// acceptance set, which also defines row alignment) and the output columns
// (what actually gets written, defaulting to the input list). Both are
// immutable once constructed.
package schema

import (
	"fmt"
	"strings"

	"github.com/M7sn1982/twarc-csv/pkg/records"
)

// Kind identifies a declared input data kind.
type Kind string

// Recognized input data kinds.
const (
	KindTweets     Kind = "tweets"
	KindUsers      Kind = "users"
	KindCompliance Kind = "compliance"
	KindCounts     Kind = "counts"
)

// defaultTweetColumns is the canonical column order for tweet datasets.
var defaultTweetColumns = []string{
	"id",
	"conversation_id",
	"referenced_tweets.replied_to.id",
	"referenced_tweets.retweeted.id",
	"referenced_tweets.quoted.id",
	"author_id",
	"in_reply_to_user_id",
	"retweeted_user_id",
	"quoted_user_id",
	"created_at",
	"text",
	"lang",
	"source",
	"public_metrics.like_count",
	"public_metrics.quote_count",
	"public_metrics.reply_count",
	"public_metrics.retweet_count",
	"reply_settings",
	"possibly_sensitive",
	"withheld.scope",
	"withheld.copyright",
	"withheld.country_codes",
	"entities.annotations",
	"entities.cashtags",
	"entities.hashtags",
	"entities.mentions",
	"entities.urls",
	"context_annotations",
	"attachments.media",
	"attachments.media_keys",
	"attachments.poll.duration_minutes",
	"attachments.poll.end_datetime",
	"attachments.poll.id",
	"attachments.poll.options",
	"attachments.poll.voting_status",
	"attachments.poll_ids",
	"author.id",
	"author.created_at",
	"author.username",
	"author.name",
	"author.description",
	"author.entities.description.cashtags",
	"author.entities.description.hashtags",
	"author.entities.description.mentions",
	"author.entities.description.urls",
	"author.entities.url.urls",
	"author.location",
	"author.pinned_tweet_id",
	"author.profile_image_url",
	"author.protected",
	"author.public_metrics.followers_count",
	"author.public_metrics.following_count",
	"author.public_metrics.listed_count",
	"author.public_metrics.tweet_count",
	"author.url",
	"author.verified",
	"author.withheld.scope",
	"author.withheld.copyright",
	"author.withheld.country_codes",
	"geo.coordinates.coordinates",
	"geo.coordinates.type",
	"geo.country",
	"geo.country_code",
	"geo.full_name",
	"geo.geo.bbox",
	"geo.geo.type",
	"geo.id",
	"geo.name",
	"geo.place_id",
	"geo.place_type",
	"__twarc.retrieved_at",
	"__twarc.url",
	"__twarc.version",
}

// defaultUserColumns is the canonical column order for user datasets.
var defaultUserColumns = []string{
	"id",
	"created_at",
	"username",
	"name",
	"description",
	"entities.description.cashtags",
	"entities.description.hashtags",
	"entities.description.mentions",
	"entities.description.urls",
	"entities.url.urls",
	"location",
	"pinned_tweet_id",
	"pinned_tweet",
	"profile_image_url",
	"protected",
	"public_metrics.followers_count",
	"public_metrics.following_count",
	"public_metrics.listed_count",
	"public_metrics.tweet_count",
	"url",
	"verified",
	"withheld.scope",
	"withheld.copyright",
	"withheld.country_codes",
	"__twarc.retrieved_at",
	"__twarc.url",
	"__twarc.version",
}

// defaultComplianceColumns is the canonical column order for compliance
// stream datasets.
var defaultComplianceColumns = []string{
	"id",
	"action",
	"created_at",
	"redacted_at",
	"reason",
}

// defaultCountsColumns is the canonical column order for counts datasets.
var defaultCountsColumns = []string{
	"start",
	"end",
	"count",
}

// ParseKinds parses a comma-separated list of input data kinds.
func ParseKinds(s string) ([]Kind, error) {
	var out []Kind
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		k := Kind(part)
		switch k {
		case KindTweets, KindUsers, KindCompliance, KindCounts:
			out = append(out, k)
		default:
			return nil, fmt.Errorf("schema: unknown input data kind %q", part)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("schema: at least one input data kind required")
	}
	return out, nil
}

// Schema is the immutable column contract for one run.
type Schema struct {
	input    []string
	output   []string
	inputSet map[string]struct{}
}

// New builds a Schema from the declared kinds, optional extra accepted input
// columns, and an optional explicit output column subset. Column order
// follows kind declaration order, then extras; duplicates keep their first
// position. When output is empty, the output columns equal the input
// columns. Every output column must be an accepted input column.
func New(kinds []Kind, extraInput, output []string) (*Schema, error) {
	s := &Schema{inputSet: make(map[string]struct{})}
	for _, k := range kinds {
		switch k {
		case KindTweets:
			s.extend(defaultTweetColumns)
		case KindUsers:
			s.extend(defaultUserColumns)
		case KindCompliance:
			s.extend(defaultComplianceColumns)
		case KindCounts:
			s.extend(defaultCountsColumns)
		default:
			return nil, fmt.Errorf("schema: unknown input data kind %q", k)
		}
	}
	s.extend(extraInput)
	if len(s.input) == 0 {
		return nil, fmt.Errorf("schema: no input columns")
	}

	if len(output) == 0 {
		s.output = s.input
	} else {
		for _, col := range output {
			col = strings.TrimSpace(col)
			if col == "" {
				continue
			}
			if _, ok := s.inputSet[col]; !ok {
				return nil, fmt.Errorf("schema: output column %q is not an accepted input column", col)
			}
			s.output = append(s.output, col)
		}
		if len(s.output) == 0 {
			return nil, fmt.Errorf("schema: output column subset is empty")
		}
	}
	return s, nil
}

func (s *Schema) extend(cols []string) {
	for _, col := range cols {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		if _, ok := s.inputSet[col]; ok {
			continue
		}
		s.inputSet[col] = struct{}{}
		s.input = append(s.input, col)
	}
}

// InputColumns returns the accepted input columns in declaration order.
// The returned slice must not be modified.
func (s *Schema) InputColumns() []string { return s.input }

// OutputColumns returns the columns written to the tabular output, in order.
// The returned slice must not be modified.
func (s *Schema) OutputColumns() []string { return s.output }

// Accepts reports whether col is part of the input column contract.
func (s *Schema) Accepts(col string) bool {
	_, ok := s.inputSet[col]
	return ok
}

// AlignRow maps rec onto the given column order. Missing columns become nil
// (the missing-value marker); rec is not modified.
func AlignRow(rec records.Record, columns []string) []any {
	row := make([]any, len(columns))
	for i, col := range columns {
		row[i] = rec[col] // nil if missing
	}
	return row
}
