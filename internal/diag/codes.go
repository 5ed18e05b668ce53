package diag

import (
	"fmt"
)

type Code uint16

const (
	// UnknownCode is the zero value, used when a producer has no better code.
	UnknownCode Code = 0

	// Engine-level codes.
	EngInfo          Code = 1000
	EngAnalyzerPanic Code = 1001
	EngCancelled     Code = 1002
	EngBadFixture    Code = 1003
	EngCacheError    Code = 1004

	// Flow-analysis codes.
	FlowInfo              Code = 2000
	FlowUnreachableCode   Code = 2001
	FlowUseBeforeAssign   Code = 2002
	FlowMissingReturn     Code = 2003
	FlowEmptyFinally      Code = 2004
	FlowConstantCondition Code = 2005

	// Declaration/symbol rule codes.
	SymInfo           Code = 3000
	SymExportedCasing Code = 3001
	SymUnderscoreName Code = 3002
	SymEmptyCodeBlock Code = 3003
)

func (c Code) String() string {
	switch {
	case c == UnknownCode:
		return "PR0000"
	case c >= 1000 && c < 2000:
		return fmt.Sprintf("PR1%03d", uint16(c)-1000)
	case c >= 2000 && c < 3000:
		return fmt.Sprintf("PR2%03d", uint16(c)-2000)
	case c >= 3000 && c < 4000:
		return fmt.Sprintf("PR3%03d", uint16(c)-3000)
	}
	return fmt.Sprintf("PR%04d", uint16(c))
}
