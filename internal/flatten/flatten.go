// Package flatten turns raw API response payloads into self-contained,
// record-shaped objects, and converts nested objects into dot-path keyed
// fields for tabular alignment.
//
// A single input line can be a bare record, an array of records, or a
// response envelope ({"data": ..., "includes": {...}}). Envelopes are
// expanded so each emitted record carries its own joined context (author,
// referenced tweets, media, poll, place) instead of pointers into the
// sidecar "includes" object.
package flatten

import (
	"encoding/json"

	"github.com/M7sn1982/twarc-csv/pkg/records"
)

// Expand converts one decoded input value into zero or more record-shaped
// objects. Records that are already flat (no envelope) pass through
// unchanged; envelopes are hydrated from their includes. The input value is
// never modified.
func Expand(obj any) []records.Record {
	switch t := obj.(type) {
	case []any:
		var out []records.Record
		for _, elem := range t {
			out = append(out, Expand(elem)...)
		}
		return out
	case map[string]any:
		if _, ok := t["data"]; ok {
			return expandEnvelope(t)
		}
		// Already-flattened record, or a non-record payload (e.g. a stream
		// error); downstream stages route records without an id separately.
		return []records.Record{records.Record(t).Clone()}
	default:
		return nil
	}
}

// expandEnvelope hydrates every record under "data" with the envelope's
// includes and retrieval metadata.
func expandEnvelope(env map[string]any) []records.Record {
	inc := newIncludes(env["includes"])
	meta := env["__twarc"]

	var out []records.Record
	emit := func(m map[string]any) {
		rec := records.Record(m).Clone()
		inc.hydrate(rec, true)
		if meta != nil {
			if _, ok := rec["__twarc"]; !ok {
				rec["__twarc"] = records.CloneValue(meta)
			}
		}
		out = append(out, rec)
	}

	switch data := env["data"].(type) {
	case []any:
		for _, elem := range data {
			if m, ok := elem.(map[string]any); ok {
				emit(m)
			}
		}
	case map[string]any:
		emit(data)
	}
	return out
}

// includes indexes an envelope's sidecar objects for joining.
type includes struct {
	users  map[string]map[string]any // by id
	tweets map[string]map[string]any // by id
	media  map[string]map[string]any // by media_key
	polls  map[string]map[string]any // by id
	places map[string]map[string]any // by id
}

func newIncludes(raw any) *includes {
	inc := &includes{
		users:  map[string]map[string]any{},
		tweets: map[string]map[string]any{},
		media:  map[string]map[string]any{},
		polls:  map[string]map[string]any{},
		places: map[string]map[string]any{},
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return inc
	}
	index := func(listKey, idKey string, into map[string]map[string]any) {
		list, ok := m[listKey].([]any)
		if !ok {
			return
		}
		for _, elem := range list {
			obj, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			if id := asID(obj[idKey]); id != "" {
				into[id] = obj
			}
		}
	}
	index("users", "id", inc.users)
	index("tweets", "id", inc.tweets)
	index("media", "media_key", inc.media)
	index("polls", "id", inc.polls)
	index("places", "id", inc.places)
	return inc
}

// hydrate joins sidecar objects onto rec in place. followRefs guards the
// referenced-tweet expansion so hydration of a referenced tweet itself does
// not recurse further.
func (inc *includes) hydrate(rec records.Record, followRefs bool) {
	if u, ok := inc.users[asID(rec["author_id"])]; ok {
		rec["author"] = records.CloneValue(u)
	}
	if u, ok := inc.users[asID(rec["in_reply_to_user_id"])]; ok {
		rec["in_reply_to_user"] = records.CloneValue(u)
	}
	if t, ok := inc.tweets[asID(rec["pinned_tweet_id"])]; ok {
		rec["pinned_tweet"] = records.CloneValue(t)
	}

	if att, ok := rec["attachments"].(map[string]any); ok {
		if keys, ok := att["media_keys"].([]any); ok {
			var media []any
			for _, k := range keys {
				if m, ok := inc.media[asID(k)]; ok {
					media = append(media, records.CloneValue(m))
				}
			}
			if len(media) > 0 {
				att["media"] = media
			}
		}
		if ids, ok := att["poll_ids"].([]any); ok && len(ids) > 0 {
			// The API attaches at most one poll per tweet.
			if p, ok := inc.polls[asID(ids[len(ids)-1])]; ok {
				att["poll"] = records.CloneValue(p)
			}
		}
	}

	if geo, ok := rec["geo"].(map[string]any); ok {
		if p, ok := inc.places[asID(geo["place_id"])]; ok {
			for k, v := range p {
				if _, exists := geo[k]; !exists {
					geo[k] = records.CloneValue(v)
				}
			}
		}
	}

	if !followRefs {
		return
	}
	if refs, ok := rec["referenced_tweets"].([]any); ok {
		for i, elem := range refs {
			ref, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			if full, ok := inc.tweets[asID(ref["id"])]; ok {
				merged := records.Record(records.CloneValue(full).(map[string]any))
				inc.hydrate(merged, false)
				// The relation kind from the reference wins over any "type"
				// the included tweet may carry.
				merged["type"] = ref["type"]
				refs[i] = map[string]any(merged)
			}
		}
	}
}

// asID renders an identifier-ish value as a string key; non-scalar or absent
// values yield "".
func asID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// DotPaths converts nested objects in rec into dot-delimited key paths,
// e.g. {"public_metrics": {"like_count": 5}} becomes
// {"public_metrics.like_count": 5}. Lists are kept as values; empty objects
// contribute no keys. The input record is not modified.
func DotPaths(rec records.Record) records.Record {
	out := make(records.Record, len(rec))
	flattenInto(out, "", map[string]any(rec))
	return out
}

func flattenInto(out records.Record, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flattenInto(out, key, t)
		case records.Record:
			flattenInto(out, key, t)
		default:
			out[key] = records.CloneValue(v)
		}
	}
}
