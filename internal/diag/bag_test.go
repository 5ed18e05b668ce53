package diag

import (
	"testing"

	"prism/internal/source"
)

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	if !b.Add(Diagnostic{Code: FlowUnreachableCode}) {
		t.Fatalf("first Add failed")
	}
	if !b.Add(Diagnostic{Code: FlowUnreachableCode}) {
		t.Fatalf("second Add failed")
	}
	if b.Add(Diagnostic{Code: FlowUnreachableCode}) {
		t.Fatalf("Add beyond limit must return false")
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2", b.Len())
	}
}

func TestBagHasErrors(t *testing.T) {
	b := NewBag(8)
	b.Add(Diagnostic{Severity: SevInfo})
	b.Add(Diagnostic{Severity: SevWarning})
	if b.HasErrors() {
		t.Errorf("HasErrors on warning-only bag")
	}
	if !b.HasWarnings() {
		t.Errorf("HasWarnings = false")
	}
	b.Add(Diagnostic{Severity: SevError})
	if !b.HasErrors() {
		t.Errorf("HasErrors = false after error added")
	}
}

func TestBagSortDeterministic(t *testing.T) {
	b := NewBag(8)
	b.Add(Diagnostic{Primary: source.Span{File: 1, Start: 5}, Severity: SevInfo, Code: FlowUnreachableCode})
	b.Add(Diagnostic{Primary: source.Span{File: 0, Start: 9}, Severity: SevError, Code: SymExportedCasing})
	b.Add(Diagnostic{Primary: source.Span{File: 0, Start: 9}, Severity: SevWarning, Code: FlowUseBeforeAssign})
	b.Sort()

	items := b.Items()
	if items[0].Primary.File != 0 || items[0].Severity != SevError {
		t.Errorf("items[0] = %+v, want file 0 error first", items[0])
	}
	if items[1].Severity != SevWarning {
		t.Errorf("items[1] severity = %v, want warning", items[1].Severity)
	}
	if items[2].Primary.File != 1 {
		t.Errorf("items[2] file = %d, want 1", items[2].Primary.File)
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(8)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{File: 0, Start: 1, End: 2}
	r.Report(FlowUnreachableCode, SevWarning, sp, "unreachable", nil)
	r.Report(FlowUnreachableCode, SevWarning, sp, "unreachable", nil)
	r.Report(FlowUnreachableCode, SevWarning, sp, "different message", nil)
	if bag.Len() != 2 {
		t.Errorf("bag.Len() = %d, want 2", bag.Len())
	}
}
