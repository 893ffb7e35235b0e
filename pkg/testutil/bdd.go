package testutil

import "testing"

// Given names a test's precondition in the subtest output without pulling in
// a BDD framework.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}
