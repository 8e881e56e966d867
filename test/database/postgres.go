// Package database provides shared PostgreSQL test fixtures for package and
// end-to-end tests, mirroring the CI/local dual-mode split used throughout
// the kernel's test suite.
package database

import (
	"testing"

	"github.com/astra-ai/kernel/pkg/store"
	"github.com/astra-ai/kernel/test/util"
)

// NewTestStore creates a schema-isolated store.PostgresStore. In CI it
// connects to the external PostgreSQL service container; locally it shares a
// single testcontainer across the package's tests, one schema per test.
func NewTestStore(t *testing.T) *store.PostgresStore {
	return util.SetupTestDatabase(t)
}
