// Package repokit gives repositories a driver-free view of the database and
// the transaction helpers they compose
package repokit

import "github.com/tumbig251800/atlas-wise-spark/internal/platform/store"

type (
	// Queryer runs statements on a pool or inside a transaction
	Queryer = store.RowQuerier
	// TxRunner is a Queryer that can also open a transaction
	TxRunner = store.TxRunner
	// Rows is a result set
	Rows = store.Rows
	// Row is a single result row
	Row = store.Row
	// CommandTag reports rows affected
	CommandTag = store.CommandTag
)
