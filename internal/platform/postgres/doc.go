// Package postgres provides PostgreSQL implementations of the store
// interfaces defined in internal/store. All implementations accept a
// store.DBTX so they can run against either a pooled connection or a
// transaction.
package postgres
