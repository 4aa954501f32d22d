package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain runs the package's tests and fails if any goroutine outlives them, such as
// an accelerator worker left running.
func VerifyTestMain(m goleak.TestingM) {
	goleak.VerifyTestMain(m)
}
