package metadata

import (
	"bytes"
	"testing"
)

func TestFirstRecordSkipsBlankAndUndecodableLines(t *testing.T) {
	input := `
not json
{"title": "clip", "duration": 42}
{"title": "second"}
`

	rec, ok := firstRecord(bytes.NewBufferString(input))
	if !ok {
		t.Fatal("expected a decoded record")
	}

	if rec["title"] != "clip" {
		t.Fatalf("title = %v, want clip", rec["title"])
	}

	if rec["duration"] != float64(42) {
		t.Fatalf("duration = %v, want 42", rec["duration"])
	}
}

func TestFirstRecordEmptyInput(t *testing.T) {
	if _, ok := firstRecord(bytes.NewBufferString("")); ok {
		t.Fatal("expected no record for empty input")
	}
}

func TestFirstRecordAllUndecodable(t *testing.T) {
	if _, ok := firstRecord(bytes.NewBufferString("nope\nstill not json\n")); ok {
		t.Fatal("expected no record when nothing decodes")
	}
}
