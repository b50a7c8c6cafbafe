// Package history persists reconciliation run and move records in SQLite so
// operators can inspect what past passes decided and where items were moved.
package history
