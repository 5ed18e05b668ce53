//go:build prismdebug

package state

import "fmt"

const debugEnabled = true

// debugAssert panics on contract violations in debug builds. Scheduling
// logic errors (double completion, missing reset) are programming errors
// in the driver, never expected at runtime.
func debugAssert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("state: "+format, args...))
	}
}
