package diagfmt

import (
	"encoding/json"
	"strings"
	"testing"

	"prism/internal/diag"
	"prism/internal/source"
)

func TestJSONIncludesPositionsAndNotes(t *testing.T) {
	bag, fs := fixtureBag()
	var sb strings.Builder
	err := JSON(&sb, bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal([]byte(sb.String()), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d, diagnostics = %d", out.Count, len(out.Diagnostics))
	}
	d := out.Diagnostics[0]
	if d.Code != "PR2001" || d.Severity != "WARNING" || d.Analyzer != "deadcode" {
		t.Errorf("header fields = %+v", d)
	}
	if d.Location.File != "main.pr" || d.Location.StartLine != 3 || d.Location.StartCol != 2 {
		t.Errorf("location = %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartLine != 2 {
		t.Errorf("notes = %+v", d.Notes)
	}
}

func TestJSONTruncatesButCountsAll(t *testing.T) {
	fs := source.NewFileSet()
	fid := fs.AddVirtual("m.pr", []byte("abc\n"))
	bag := diag.NewBag(8)
	for i := 0; i < 3; i++ {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevInfo,
			Code:     diag.FlowInfo,
			Message:  "note",
			Primary:  source.Span{File: fid, Start: 0, End: 1},
		})
	}

	var sb strings.Builder
	if err := JSON(&sb, bag, fs, JSONOpts{Max: 2}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal([]byte(sb.String()), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Diagnostics) != 2 || out.Count != 3 {
		t.Errorf("got %d diagnostics, count %d; want 2 and 3", len(out.Diagnostics), out.Count)
	}
}
