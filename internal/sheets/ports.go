// Package sheets defines the port for mirroring transactions to an
// external spreadsheet.
package sheets

import (
	"context"

	"financas/internal/core"
)

// Mirror appends created transactions to an external sheet. Mirroring is
// best effort; the store stays the source of truth.
type Mirror interface {
	AppendTransaction(ctx context.Context, t core.Transaction) error
}
