// Package firestore implements store.DocumentStore on Cloud Firestore.
//
// Checksum uniqueness is enforced with a marker document per checksum in
// a separate collection, created in the same transaction as the document
// itself.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/dvloznov/finance-ledger/internal/store"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	documentsCollection = "ledger-documents"
	checksumsCollection = "ledger-checksums"
)

type fsDocument struct {
	Rev        string `firestore:"rev"`
	Type       string `firestore:"type"`
	Checksum   string `firestore:"checksum"`
	AccountID  string `firestore:"accountId"`
	Date       string `firestore:"date"`
	Amount     string `firestore:"amount"`
	CategoryID string `firestore:"categoryId"`
	Body       []byte `firestore:"body"`
	Seq        int64  `firestore:"seq"`
}

type checksumMarker struct {
	DocumentID string `firestore:"documentId"`
}

// Store is a Firestore-backed document store.
type Store struct {
	client *firestore.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithCollectionPrefix namespaces both collections, e.g. per test.
func WithCollectionPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// NewStore initialises a Firebase app for projectID and opens Firestore.
func NewStore(ctx context.Context, projectID string, opts []option.ClientOption, storeOpts ...Option) (*Store, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewStore: initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStore: create Firestore client: %w", err)
	}

	return NewStoreWithClient(client, storeOpts...), nil
}

// NewStoreWithClient wraps an existing Firestore client.
func NewStoreWithClient(client *firestore.Client, opts ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) docs() *firestore.CollectionRef {
	return s.client.Collection(s.prefix + documentsCollection)
}

func (s *Store) checksums() *firestore.CollectionRef {
	return s.client.Collection(s.prefix + checksumsCollection)
}

// Post creates the document and, when it has a checksum, its marker in
// one transaction. An existing marker fails the whole transaction.
func (s *Store) Post(ctx context.Context, doc *store.Document) (string, string, error) {
	id := doc.ID
	if id == "" {
		id = store.NewID()
	}
	rev := store.NextRev("")
	ref := s.docs().Doc(id)

	data := toFS(doc)
	data.Rev = rev
	data.Seq = time.Now().UnixNano()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var marker *firestore.DocumentRef
		if doc.Checksum != "" {
			marker = s.checksums().Doc(doc.Checksum)
			_, err := tx.Get(marker)
			if err == nil {
				return store.ErrDuplicate
			}
			if status.Code(err) != codes.NotFound {
				return err
			}
		}
		if doc.ID != "" {
			_, err := tx.Get(ref)
			if err == nil {
				return store.ErrRevisionConflict
			}
			if status.Code(err) != codes.NotFound {
				return err
			}
		}

		if marker != nil {
			if err := tx.Create(marker, checksumMarker{DocumentID: id}); err != nil {
				return err
			}
		}
		return tx.Create(ref, data)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) || status.Code(err) == codes.AlreadyExists {
			return "", "", fmt.Errorf("Post: checksum %s: %w", doc.Checksum, store.ErrDuplicate)
		}
		return "", "", fmt.Errorf("Post: %w", err)
	}

	return id, rev, nil
}

// Get returns the document with the given id.
func (s *Store) Get(ctx context.Context, id string) (*store.Document, error) {
	snap, err := s.docs().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("Get: %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return fromSnapshot(snap)
}

// Put replaces the document when doc.Rev is still the stored revision.
// A changed checksum moves its marker in the same transaction.
func (s *Store) Put(ctx context.Context, doc *store.Document) (string, error) {
	ref := s.docs().Doc(doc.ID)
	newRev := store.NextRev(doc.Rev)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		var current fsDocument
		if err := snap.DataTo(&current); err != nil {
			return err
		}
		if current.Rev != doc.Rev {
			return store.ErrRevisionConflict
		}

		if doc.Checksum != current.Checksum && doc.Checksum != "" {
			marker := s.checksums().Doc(doc.Checksum)
			if _, err := tx.Get(marker); err == nil {
				return store.ErrDuplicate
			} else if status.Code(err) != codes.NotFound {
				return err
			}
			if err := tx.Create(marker, checksumMarker{DocumentID: doc.ID}); err != nil {
				return err
			}
		}
		if doc.Checksum != current.Checksum && current.Checksum != "" {
			if err := tx.Delete(s.checksums().Doc(current.Checksum)); err != nil {
				return err
			}
		}

		data := toFS(doc)
		data.Rev = newRev
		data.Seq = current.Seq
		return tx.Set(ref, data)
	})
	if err != nil {
		return "", fmt.Errorf("Put: %s: %w", doc.ID, err)
	}
	return newRev, nil
}

// Delete removes the document and its checksum marker.
func (s *Store) Delete(ctx context.Context, id, rev string) error {
	ref := s.docs().Doc(id)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		var current fsDocument
		if err := snap.DataTo(&current); err != nil {
			return err
		}
		if current.Rev != rev {
			return store.ErrRevisionConflict
		}
		if current.Checksum != "" {
			if err := tx.Delete(s.checksums().Doc(current.Checksum)); err != nil {
				return err
			}
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return fmt.Errorf("Delete: %s: %w", id, err)
	}
	return nil
}

// Find runs the equality and date range filters in Firestore and applies
// the categorisation predicate, insertion ordering and limit locally.
func (s *Store) Find(ctx context.Context, q store.Query) ([]*store.Document, error) {
	sel := q.Selector
	query := s.docs().Query
	if sel.Type != "" {
		query = query.Where("type", "==", sel.Type)
	}
	if sel.Checksum != "" {
		query = query.Where("checksum", "==", sel.Checksum)
	}
	if sel.AccountID != "" {
		query = query.Where("accountId", "==", sel.AccountID)
	}
	if sel.Amount != "" {
		query = query.Where("amount", "==", sel.Amount)
	}
	if sel.DateFrom != "" {
		query = query.Where("date", ">=", sel.DateFrom)
	}
	if sel.DateTo != "" {
		query = query.Where("date", "<=", sel.DateTo)
	}

	type found struct {
		doc *store.Document
		seq int64
	}
	var results []found

	iter := query.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Find: iterating documents: %w", err)
		}

		var data fsDocument
		if err := snap.DataTo(&data); err != nil {
			return nil, fmt.Errorf("Find: decoding %s: %w", snap.Ref.ID, err)
		}
		doc := data.toDocument(snap.Ref.ID)
		if !sel.Matches(doc) {
			continue
		}
		results = append(results, found{doc: doc, seq: data.Seq})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].seq < results[j].seq
	})
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	docs := make([]*store.Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.doc)
	}
	return docs, nil
}

// Close closes the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

func toFS(doc *store.Document) fsDocument {
	return fsDocument{
		Rev:        doc.Rev,
		Type:       doc.Type,
		Checksum:   doc.Checksum,
		AccountID:  doc.AccountID,
		Date:       doc.Date,
		Amount:     doc.Amount,
		CategoryID: doc.CategoryID,
		Body:       doc.Body,
	}
}

func (d fsDocument) toDocument(id string) *store.Document {
	return &store.Document{
		ID:         id,
		Rev:        d.Rev,
		Type:       d.Type,
		Checksum:   d.Checksum,
		AccountID:  d.AccountID,
		Date:       d.Date,
		Amount:     d.Amount,
		CategoryID: d.CategoryID,
		Body:       d.Body,
	}
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*store.Document, error) {
	var data fsDocument
	if err := snap.DataTo(&data); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", snap.Ref.ID, err)
	}
	return data.toDocument(snap.Ref.ID), nil
}

// Ensure Store implements DocumentStore interface.
var _ store.DocumentStore = (*Store)(nil)
