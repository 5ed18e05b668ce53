package cache

import (
	"testing"

	"prism/internal/compilation"
	"prism/internal/diag"
	"prism/internal/source"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var key compilation.Digest
	key[0] = 0xaa

	items := []diag.Diagnostic{
		{
			Severity: diag.SevWarning,
			Code:     diag.FlowUnreachableCode,
			Analyzer: "deadcode",
			Message:  "unreachable code",
			Primary:  source.Span{File: 1, Start: 10, End: 20},
			Notes:    []diag.Note{{Span: source.Span{File: 1, Start: 2, End: 4}, Msg: "after return"}},
		},
	}
	if err := c.Put(key, Encode(key, items)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got Payload
	hit, err := c.Get(key, &got)
	if err != nil || !hit {
		t.Fatalf("Get: hit=%v err=%v", hit, err)
	}
	decoded := Decode(&got)
	if len(decoded) != 1 {
		t.Fatalf("decoded %d diagnostics, want 1", len(decoded))
	}
	d := decoded[0]
	if d.Code != diag.FlowUnreachableCode || d.Analyzer != "deadcode" || d.Primary.Start != 10 {
		t.Fatalf("round trip mangled diagnostic: %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Msg != "after return" {
		t.Fatalf("round trip lost notes: %+v", d.Notes)
	}
}

func TestGetMiss(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var key compilation.Digest
	key[0] = 0xbb
	var got Payload
	hit, err := c.Get(key, &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Fatalf("hit on empty cache")
	}
}

func TestSchemaMismatchIsMiss(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var key compilation.Digest
	key[0] = 0xcc
	stale := Encode(key, nil)
	stale.Schema = schemaVersion + 1
	if err := c.Put(key, stale); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var got Payload
	hit, err := c.Get(key, &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Fatalf("stale schema treated as hit")
	}
}
