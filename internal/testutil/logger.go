package testutil

import "github.com/planit/planit/internal/log"

// DiscardLogger returns a logger that drops all records. Use it where a
// store or handler requires a logger but the test does not assert on
// log output.
func DiscardLogger() log.Logger {
	return log.NewNop()
}
