package cfg

import (
	"strings"
	"testing"

	"prism/internal/op"
)

func TestDumpListsBlocksAndBranches(t *testing.T) {
	g := mustBuild(t, block(
		&op.Operation{Kind: op.OpIf, If: op.IfOp{Cond: ref("c"), Then: assignOp("x", lit(true))}},
		assignOp("after", lit(true)),
	))

	var sb strings.Builder
	Dump(&sb, g)
	out := sb.String()

	for _, want := range []string{
		"B0 [entry]",
		"[exit]",
		"x = true",
		"after = true",
		"(regular)",
		": c)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\nB"); lines != len(g.Blocks)-1 {
		t.Fatalf("dump lists %d block headers, want %d", lines+1, len(g.Blocks))
	}
}

func TestDumpMarksRegionsAndUnreachable(t *testing.T) {
	g := mustBuild(t, block(
		&op.Operation{Kind: op.OpReturn, Return: op.ReturnOp{Value: lit(true)}},
		&op.Operation{Kind: op.OpTry, Try: op.TryOp{
			Body:    assignOp("body", lit(true)),
			Finally: assignOp("cleanup", lit(true)),
		}},
	))

	var sb strings.Builder
	Dump(&sb, g)
	out := sb.String()

	if !strings.Contains(out, " unreachable") {
		t.Fatalf("dump does not mark dead blocks:\n%s", out)
	}
	if !strings.Contains(out, "region=finally<try-and-finally") {
		t.Fatalf("dump does not show the region path:\n%s", out)
	}
	if !strings.Contains(out, "(structured-exception-handling)") {
		t.Fatalf("dump does not show the cleanup terminator:\n%s", out)
	}
}
