package source

import (
	"testing"
)

func TestFileSetAddAndResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("demo.pr", []byte("line one\nline two\nline three\n"))

	if got := fs.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}

	// "two" inside line 2 starts at byte 14.
	start, end := fs.Resolve(Span{File: id, Start: 14, End: 17})
	if start.Line != 2 || start.Col != 6 {
		t.Errorf("start = %d:%d, want 2:6", start.Line, start.Col)
	}
	if end.Line != 2 || end.Col != 9 {
		t.Errorf("end = %d:%d, want 2:9", end.Line, end.Col)
	}
}

func TestFileSetGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("demo.pr", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	tests := []struct {
		line uint32
		want string
	}{
		{0, ""},
		{1, "first"},
		{2, "second"},
		{3, "third"},
		{4, ""},
	}
	for _, tt := range tests {
		if got := f.GetLine(tt.line); got != tt.want {
			t.Errorf("GetLine(%d) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestNormalizeCRLF(t *testing.T) {
	got, changed := normalizeCRLF([]byte("a\r\nb\rc\n"))
	if !changed {
		t.Fatalf("expected change flag")
	}
	if string(got) != "a\nb\rc\n" {
		t.Errorf("normalizeCRLF = %q", got)
	}

	same, changed := normalizeCRLF([]byte("plain\n"))
	if changed || string(same) != "plain\n" {
		t.Errorf("unexpected rewrite of content without CRLF")
	}
}

func TestSpanCoverAndContains(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 15}
	c := a.Cover(b)
	if c.Start != 5 || c.End != 20 {
		t.Errorf("Cover = %v", c)
	}
	if !c.Contains(5) || c.Contains(20) {
		t.Errorf("Contains half-open bounds violated")
	}
	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Errorf("Cover across files must be a no-op, got %v", got)
	}
}
