package storage

import (
	"context"

	"github.com/019ec6e2/dynamic-nft-generator/internal/domain"
)

// TransactionStore provides access to nft_transactions storage.
//
// The signature uniqueness constraint is the sole durable dedup mechanism in
// the system: Insert must be atomic with respect to it, so that concurrent
// inserts of the same signature yield exactly one success and ErrDuplicateKey
// for the rest.
type TransactionStore interface {
	// Insert adds a new sale record. Returns ErrDuplicateKey if the signature
	// already exists.
	Insert(ctx context.Context, tx *domain.SaleTransaction) error

	// Exists reports whether a record with the given signature exists.
	Exists(ctx context.Context, signature string) (bool, error)

	// GetBySignature retrieves a record by signature. Returns ErrNotFound if
	// not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.SaleTransaction, error)

	// ListRecent retrieves up to limit records ordered by occurred_at DESC.
	ListRecent(ctx context.Context, limit int) ([]*domain.SaleTransaction, error)

	// SetImageURL rewrites the artwork reference of an existing record.
	// Returns ErrNotFound if the signature is unknown.
	SetImageURL(ctx context.Context, signature, imageURL string) error

	// MarkEvolved sets metadata_evolved to true. Idempotent: marking an
	// already-evolved record succeeds and leaves the flag true.
	// Returns ErrNotFound if the signature is unknown.
	MarkEvolved(ctx context.Context, signature string) error
}
