//go:build !prismdebug

package state

const debugEnabled = false

func debugAssert(bool, string, ...any) {}
