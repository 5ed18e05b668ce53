package rules

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"prism/internal/analyzer"
	"prism/internal/compilation"
	"prism/internal/diag"
	"prism/internal/op"
)

// Naming enforces symbol naming policy. It registers only symbol actions,
// so the scheduler never tracks declarations or trees for it.
type Naming struct{}

func NewNaming() *Naming { return &Naming{} }

func (n *Naming) Name() string { return "naming" }

func (n *Naming) Initialize(reg *analyzer.Registrar) {
	reg.RegisterSymbolAction(n.checkSymbol)
}

func (n *Naming) checkSymbol(ctx analyzer.SymbolContext) {
	s := ctx.Symbol
	if len(s.Decls) == 0 {
		return
	}
	span := s.Decls[0].Span

	if s.Exported {
		r, _ := utf8.DecodeRuneInString(s.Name)
		if r != utf8.RuneError && !unicode.IsUpper(r) {
			ctx.Reporter.Report(diag.SymExportedCasing, diag.SevWarning, span,
				fmt.Sprintf("exported %s %s should start with an upper-case letter", s.Kind, s.Name), nil)
		}
	}
	if strings.HasPrefix(s.Name, "_") && len(s.Name) > 1 {
		ctx.Reporter.Report(diag.SymUnderscoreName, diag.SevWarning, span,
			fmt.Sprintf("%s %s has an underscore-prefixed name", s.Kind, s.Name), nil)
	}
	if s.Kind == compilation.SymbolFunc && emptyBodies(s) {
		ctx.Reporter.Report(diag.SymEmptyCodeBlock, diag.SevInfo, span,
			fmt.Sprintf("func %s has no executable code", s.Name), nil)
	}
}

func emptyBodies(s *compilation.Symbol) bool {
	for _, b := range s.Bodies {
		if b == nil {
			continue
		}
		if b.Kind != op.OpBlock || len(b.Block.Ops) > 0 {
			return false
		}
	}
	return true
}
