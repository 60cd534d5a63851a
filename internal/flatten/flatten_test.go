package flatten

import (
	"reflect"
	"testing"

	"github.com/M7sn1982/twarc-csv/pkg/records"
)

func TestExpandBareRecord(t *testing.T) {
	in := map[string]any{"id": "1", "text": "hi"}
	got := Expand(in)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if !reflect.DeepEqual(map[string]any(got[0]), in) {
		t.Fatalf("got %v", got[0])
	}
	// The emitted record is a copy, not an alias.
	got[0]["text"] = "changed"
	if in["text"] != "hi" {
		t.Fatalf("input aliased")
	}
}

func TestExpandArray(t *testing.T) {
	got := Expand([]any{
		map[string]any{"id": "1"},
		map[string]any{"id": "2"},
	})
	if len(got) != 2 || got[0]["id"] != "1" || got[1]["id"] != "2" {
		t.Fatalf("got %v", got)
	}
}

func TestExpandScalar(t *testing.T) {
	if got := Expand("not an object"); got != nil {
		t.Fatalf("got %v", got)
	}
}

func TestExpandEnvelopeHydratesIncludes(t *testing.T) {
	env := map[string]any{
		"data": []any{
			map[string]any{
				"id":        "1",
				"author_id": "u1",
				"attachments": map[string]any{
					"media_keys": []any{"m1"},
					"poll_ids":   []any{"p1"},
				},
				"geo": map[string]any{"place_id": "pl1"},
				"referenced_tweets": []any{
					map[string]any{"type": "quoted", "id": "9"},
				},
			},
		},
		"includes": map[string]any{
			"users":  []any{map[string]any{"id": "u1", "username": "alice"}},
			"tweets": []any{map[string]any{"id": "9", "text": "quoted text", "author_id": "u1"}},
			"media":  []any{map[string]any{"media_key": "m1", "type": "photo"}},
			"polls":  []any{map[string]any{"id": "p1", "voting_status": "closed"}},
			"places": []any{map[string]any{"id": "pl1", "full_name": "Berlin"}},
		},
		"__twarc": map[string]any{"url": "https://api.example"},
	}

	got := Expand(env)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	rec := got[0]

	author, ok := rec["author"].(map[string]any)
	if !ok || author["username"] != "alice" {
		t.Fatalf("author: %v", rec["author"])
	}

	att := rec["attachments"].(map[string]any)
	media, ok := att["media"].([]any)
	if !ok || len(media) != 1 || media[0].(map[string]any)["type"] != "photo" {
		t.Fatalf("media: %v", att["media"])
	}
	poll, ok := att["poll"].(map[string]any)
	if !ok || poll["voting_status"] != "closed" {
		t.Fatalf("poll: %v", att["poll"])
	}

	geo := rec["geo"].(map[string]any)
	if geo["full_name"] != "Berlin" || geo["place_id"] != "pl1" {
		t.Fatalf("geo: %v", geo)
	}

	refs := rec["referenced_tweets"].([]any)
	ref := refs[0].(map[string]any)
	if ref["text"] != "quoted text" {
		t.Fatalf("referenced tweet not hydrated: %v", ref)
	}
	// The relation kind comes from the reference, not the included tweet.
	if ref["type"] != "quoted" {
		t.Fatalf("type: %v", ref["type"])
	}
	// The hydrated referenced tweet carries its own joined author.
	refAuthor, ok := ref["author"].(map[string]any)
	if !ok || refAuthor["username"] != "alice" {
		t.Fatalf("referenced author: %v", ref["author"])
	}

	if !reflect.DeepEqual(rec["__twarc"], map[string]any{"url": "https://api.example"}) {
		t.Fatalf("__twarc: %v", rec["__twarc"])
	}
}

func TestExpandEnvelopeSingleData(t *testing.T) {
	env := map[string]any{
		"data": map[string]any{"id": "1", "text": "solo"},
	}
	got := Expand(env)
	if len(got) != 1 || got[0]["text"] != "solo" {
		t.Fatalf("got %v", got)
	}
}

func TestExpandEnvelopeKeepsRecordMetadata(t *testing.T) {
	// A record-level __twarc beats the envelope's.
	env := map[string]any{
		"data": []any{
			map[string]any{"id": "1", "__twarc": map[string]any{"url": "record"}},
		},
		"__twarc": map[string]any{"url": "envelope"},
	}
	got := Expand(env)
	if got[0]["__twarc"].(map[string]any)["url"] != "record" {
		t.Fatalf("__twarc: %v", got[0]["__twarc"])
	}
}

func TestDotPaths(t *testing.T) {
	rec := records.Record{
		"id": "1",
		"public_metrics": map[string]any{
			"like_count":  5,
			"reply_count": 0,
		},
		"entities": map[string]any{
			"description": map[string]any{
				"hashtags": []any{"go"},
			},
		},
		"empty": map[string]any{},
	}
	got := DotPaths(rec)
	want := records.Record{
		"id":                            "1",
		"public_metrics.like_count":     5,
		"public_metrics.reply_count":    0,
		"entities.description.hashtags": []any{"go"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestDotPathsDoesNotAliasLists(t *testing.T) {
	list := []any{"a"}
	got := DotPaths(records.Record{"tags": list})
	got["tags"].([]any)[0] = "b"
	if list[0] != "a" {
		t.Fatalf("list aliased")
	}
}
