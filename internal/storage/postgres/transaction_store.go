package postgres

import (
	"context"
	"fmt"

	"github.com/019ec6e2/dynamic-nft-generator/internal/domain"
	"github.com/019ec6e2/dynamic-nft-generator/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `
	id, signature, mint, name, buyer, seller,
	amount, amount_in_lamports, currency, marketplace, sale_type,
	occurred_at, image_url, marketplace_fee, royalty_fee,
	metadata_evolved, created_at
`

// Insert adds a new sale record. Returns ErrDuplicateKey if the signature
// already exists. Atomicity relies on the UNIQUE constraint on signature:
// under concurrent inserts exactly one wins, the rest see 23505.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.SaleTransaction) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO nft_transactions (
			signature, mint, name, buyer, seller,
			amount, amount_in_lamports, currency, marketplace, sale_type,
			occurred_at, image_url, marketplace_fee, royalty_fee, metadata_evolved
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		tx.Signature, tx.Mint, tx.Name, tx.Buyer, tx.Seller,
		tx.Amount, tx.AmountLamports, tx.Currency, tx.Marketplace, tx.SaleType,
		tx.OccurredAt, tx.ImageURL, tx.MarketplaceFee, tx.RoyaltyFee, tx.MetadataEvolved,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert nft transaction: %w", err)
	}
	return nil
}

// Exists reports whether a record with the given signature exists.
func (s *TransactionStore) Exists(ctx context.Context, signature string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM nft_transactions WHERE signature = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, signature).Scan(&exists); err != nil {
		return false, fmt.Errorf("check nft transaction exists: %w", err)
	}
	return exists, nil
}

// GetBySignature retrieves a record by signature. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(ctx context.Context, signature string) (*domain.SaleTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM nft_transactions WHERE signature = $1`

	var tx domain.SaleTransaction
	err := s.pool.QueryRow(ctx, query, signature).Scan(
		&tx.ID, &tx.Signature, &tx.Mint, &tx.Name, &tx.Buyer, &tx.Seller,
		&tx.Amount, &tx.AmountLamports, &tx.Currency, &tx.Marketplace, &tx.SaleType,
		&tx.OccurredAt, &tx.ImageURL, &tx.MarketplaceFee, &tx.RoyaltyFee,
		&tx.MetadataEvolved, &tx.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get nft transaction: %w", err)
	}
	return &tx, nil
}

// ListRecent retrieves up to limit records ordered by occurred_at DESC.
func (s *TransactionStore) ListRecent(ctx context.Context, limit int) ([]*domain.SaleTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM nft_transactions ORDER BY occurred_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent nft transactions: %w", err)
	}
	defer rows.Close()

	var result []*domain.SaleTransaction
	for rows.Next() {
		var tx domain.SaleTransaction
		if err := rows.Scan(
			&tx.ID, &tx.Signature, &tx.Mint, &tx.Name, &tx.Buyer, &tx.Seller,
			&tx.Amount, &tx.AmountLamports, &tx.Currency, &tx.Marketplace, &tx.SaleType,
			&tx.OccurredAt, &tx.ImageURL, &tx.MarketplaceFee, &tx.RoyaltyFee,
			&tx.MetadataEvolved, &tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan nft transaction: %w", err)
		}
		result = append(result, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nft transactions: %w", err)
	}
	return result, nil
}

// SetImageURL rewrites the artwork reference of an existing record.
func (s *TransactionStore) SetImageURL(ctx context.Context, signature, imageURL string) error {
	query := `UPDATE nft_transactions SET image_url = $2 WHERE signature = $1`

	tag, err := s.pool.Exec(ctx, query, signature, imageURL)
	if err != nil {
		return fmt.Errorf("set image url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkEvolved sets metadata_evolved to true. Idempotent.
func (s *TransactionStore) MarkEvolved(ctx context.Context, signature string) error {
	query := `UPDATE nft_transactions SET metadata_evolved = TRUE WHERE signature = $1`

	tag, err := s.pool.Exec(ctx, query, signature)
	if err != nil {
		return fmt.Errorf("mark evolved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
