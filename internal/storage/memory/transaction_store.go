package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/019ec6e2/dynamic-nft-generator/internal/domain"
	"github.com/019ec6e2/dynamic-nft-generator/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.SaleTransaction // keyed by signature
	nextID int64
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.SaleTransaction),
	}
}

// Insert adds a new sale record. Returns ErrDuplicateKey if the signature exists.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.SaleTransaction) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	cp := *tx
	cp.ID = s.nextID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.data[tx.Signature] = &cp
	return nil
}

// Exists reports whether a record with the given signature exists.
func (s *TransactionStore) Exists(_ context.Context, signature string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[signature]
	return exists, nil
}

// GetBySignature retrieves a record by signature. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(_ context.Context, signature string) (*domain.SaleTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.data[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *tx
	return &cp, nil
}

// ListRecent retrieves up to limit records ordered by occurred_at DESC.
func (s *TransactionStore) ListRecent(_ context.Context, limit int) ([]*domain.SaleTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SaleTransaction, 0, len(s.data))
	for _, tx := range s.data {
		cp := *tx
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.After(result[j].OccurredAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// SetImageURL rewrites the artwork reference of an existing record.
func (s *TransactionStore) SetImageURL(_ context.Context, signature, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.data[signature]
	if !exists {
		return storage.ErrNotFound
	}

	url := imageURL
	tx.ImageURL = &url
	return nil
}

// MarkEvolved sets metadata_evolved to true. Idempotent.
func (s *TransactionStore) MarkEvolved(_ context.Context, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.data[signature]
	if !exists {
		return storage.ErrNotFound
	}

	tx.MetadataEvolved = true
	return nil
}

var _ storage.TransactionStore = (*TransactionStore)(nil)
