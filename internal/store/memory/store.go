package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/finance-ledger/internal/store"
)

// Store is an in-memory implementation of store.DocumentStore.
// It is safe for concurrent use. Data is lost when the process exits.
type Store struct {
	mu        sync.RWMutex
	docs      map[string]*store.Document
	order     []string
	checksums map[string]string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		docs:      make(map[string]*store.Document),
		checksums: make(map[string]string),
	}
}

// Post inserts a new document. The checksum uniqueness check and the
// insert happen under the same lock.
func (s *Store) Post(ctx context.Context, doc *store.Document) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := doc.ID
	if id == "" {
		id = store.NewID()
	}
	if _, exists := s.docs[id]; exists {
		return "", "", fmt.Errorf("Post: id %s: %w", id, store.ErrRevisionConflict)
	}
	if doc.Checksum != "" {
		if _, exists := s.checksums[doc.Checksum]; exists {
			return "", "", fmt.Errorf("Post: checksum %s: %w", doc.Checksum, store.ErrDuplicate)
		}
		s.checksums[doc.Checksum] = id
	}

	stored := doc.Clone()
	stored.ID = id
	stored.Rev = store.NextRev("")
	s.docs[id] = stored
	s.order = append(s.order, id)

	return id, stored.Rev, nil
}

// Get returns a copy of the document with the given id.
func (s *Store) Get(ctx context.Context, id string) (*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[id]
	if !exists {
		return nil, fmt.Errorf("Get: %s: %w", id, store.ErrNotFound)
	}
	return doc.Clone(), nil
}

// Put replaces a document if doc.Rev matches the stored revision.
func (s *Store) Put(ctx context.Context, doc *store.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.docs[doc.ID]
	if !exists {
		return "", fmt.Errorf("Put: %s: %w", doc.ID, store.ErrNotFound)
	}
	if current.Rev != doc.Rev {
		return "", fmt.Errorf("Put: %s has rev %s, got %s: %w", doc.ID, current.Rev, doc.Rev, store.ErrRevisionConflict)
	}
	if doc.Checksum != current.Checksum {
		if doc.Checksum != "" {
			if owner, taken := s.checksums[doc.Checksum]; taken && owner != doc.ID {
				return "", fmt.Errorf("Put: checksum %s: %w", doc.Checksum, store.ErrDuplicate)
			}
			s.checksums[doc.Checksum] = doc.ID
		}
		if current.Checksum != "" {
			delete(s.checksums, current.Checksum)
		}
	}

	stored := doc.Clone()
	stored.Rev = store.NextRev(current.Rev)
	s.docs[doc.ID] = stored

	return stored.Rev, nil
}

// Delete removes a document if rev matches the stored revision.
func (s *Store) Delete(ctx context.Context, id, rev string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.docs[id]
	if !exists {
		return fmt.Errorf("Delete: %s: %w", id, store.ErrNotFound)
	}
	if current.Rev != rev {
		return fmt.Errorf("Delete: %s: %w", id, store.ErrRevisionConflict)
	}

	delete(s.docs, id)
	if current.Checksum != "" {
		delete(s.checksums, current.Checksum)
	}
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Find returns copies of matching documents in insertion order.
func (s *Store) Find(ctx context.Context, q store.Query) ([]*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Equality lookups on checksum use the index directly.
	if q.Selector.Checksum != "" {
		id, ok := s.checksums[q.Selector.Checksum]
		if !ok || !q.Selector.Matches(s.docs[id]) {
			return []*store.Document{}, nil
		}
		return []*store.Document{s.docs[id].Clone()}, nil
	}

	result := []*store.Document{}
	for _, id := range s.order {
		doc := s.docs[id]
		if !q.Selector.Matches(doc) {
			continue
		}
		result = append(result, doc.Clone())
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements DocumentStore interface.
var _ store.DocumentStore = (*Store)(nil)
