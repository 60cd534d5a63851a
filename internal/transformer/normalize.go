// Package transformer rewrites flattened records into table-shaped rows:
// semantic normalization (retweet/quote merge, reference compaction),
// optional inline expansion of referenced records, cell encoding, and the
// batch converter that composes the stages with deduplication and schema
// reconciliation.
package transformer

import (
	"github.com/M7sn1982/twarc-csv/pkg/records"
)

// mergedFields are the body fields a retweet inherits from the tweet it
// retweeted when merge mode is on. The retweeting author's own fields are
// otherwise untouched.
var mergedFields = []string{
	"text",
	"entities",
	"attachments",
	"context_annotations",
	"public_metrics",
}

// referenceKinds are the recognized relation kinds toward another record.
const (
	refRetweeted = "retweeted"
	refQuoted    = "quoted"
	refRepliedTo = "replied_to"
)

// Normalizer applies the semantic rewrites that make one flattened record
// table-ready. Apply operates on a deep copy; the input record is never
// mutated.
type Normalizer struct {
	// MergeRetweets replaces a native retweet's body fields ("RT @user ..."
	// text, entities, attachments, context annotations, public metrics) with
	// the retweeted tweet's, keeping the retweeting author.
	MergeRetweets bool
}

// Apply returns the normalized form of rec.
func (n Normalizer) Apply(rec records.Record) records.Record {
	out := rec.Clone()

	// A user record may embed its pinned tweet; the id column survives, the
	// embedded object does not. Same for the reply-context user object.
	delete(out, "pinned_tweet")
	delete(out, "in_reply_to_user")

	if refs, ok := out["referenced_tweets"].([]any); ok {
		retweeted := lastOfKind(refs, refRetweeted)
		quoted := lastOfKind(refs, refQuoted)

		if retweeted != nil {
			if aid, ok := retweeted["author_id"]; ok {
				out["retweeted_user_id"] = aid
			}
		}
		if quoted != nil {
			if aid, ok := quoted["author_id"]; ok {
				out["quoted_user_id"] = aid
			}
		}

		if retweeted != nil && n.MergeRetweets {
			for _, f := range mergedFields {
				out[f] = retweeted[f] // nil when the original lacks it
				delete(retweeted, f)
			}
		}

		// Rebuild the reference list as relation kind -> {id}, last entry
		// per kind winning: later entries are the more complete ones.
		compact := make(map[string]any, len(refs))
		for _, elem := range refs {
			ref, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			kind, _ := ref["type"].(string)
			if kind == "" {
				continue
			}
			compact[kind] = map[string]any{"id": ref["id"]}
		}
		out["referenced_tweets"] = compact
	} else {
		out["referenced_tweets"] = map[string]any{}
	}

	// The relation kind marker is only meaningful inside a reference list.
	delete(out, "type")

	for _, f := range []string{"attachments", "entities", "public_metrics"} {
		if v, ok := out[f]; ok && records.IsEmptyValue(v) {
			delete(out, f)
		}
	}
	return out
}

// lastOfKind returns the last reference entry of the given relation kind,
// or nil when none exists.
func lastOfKind(refs []any, kind string) map[string]any {
	var found map[string]any
	for _, elem := range refs {
		ref, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := ref["type"].(string); t == kind {
			found = ref
		}
	}
	return found
}
