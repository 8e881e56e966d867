package database

import (
	"context"
	"testing"

	"github.com/astra-ai/kernel/pkg/store"
	"github.com/astra-ai/kernel/test/util"
	"github.com/stretchr/testify/require"
)

// SharedTestDB creates a single PostgreSQL schema that can be shared by
// multiple test replicas. Each replica gets its own *store.PostgresStore via
// NewStore, but all pools point to the same schema — enabling cross-replica
// tests that exercise the event bus's append-then-broadcast fan-out the way
// a deployment with more than one kernel process would.
type SharedTestDB struct {
	connStrWithSchema string
	baseConnStr       string
	schemaName        string
}

// NewSharedTestDB creates a shared test schema, runs migrations once, and
// registers t.Cleanup to drop the schema. Call NewStore to create independent
// stores for each replica.
func NewSharedTestDB(t *testing.T) *SharedTestDB {
	t.Helper()

	baseConnStr := util.GetBaseConnectionString(t)
	schemaName := util.GenerateSchemaName(t)
	util.CreateSchema(t, baseConnStr, schemaName)

	connStrWithSchema := util.AddSearchPathToConnString(baseConnStr, schemaName)
	require.NoError(t, store.Migrate(connStrWithSchema))

	s := &SharedTestDB{
		connStrWithSchema: connStrWithSchema,
		baseConnStr:       baseConnStr,
		schemaName:        schemaName,
	}

	// Drop the schema after all replicas have shut down (LIFO order
	// guarantees each replica's own cleanup runs before this one).
	t.Cleanup(func() {
		util.DropSchema(t, baseConnStr, schemaName)
	})

	return s
}

// NewStore creates an independent *store.PostgresStore backed by a fresh
// connection pool against the shared schema. Each store has its own pool so
// replicas can be shut down independently without races. The pool is closed
// via t.Cleanup.
func (s *SharedTestDB) NewStore(t *testing.T) *store.PostgresStore {
	t.Helper()

	st, err := store.NewPostgresStore(context.Background(), s.connStrWithSchema)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}
