package device_test

import (
	"testing"

	"go.viam.com/spc/testutils"
)

// TestMain is used to control the execution of all tests run within this package (including _test packages)
func TestMain(m *testing.M) {
	testutils.VerifyTestMain(m)
}
