// Package store defines the document storage contract shared by every
// backend: memory, sqlite (gorm) and firestore.
//
// A Document carries a small set of indexed fields used by selectors and
// an opaque JSON body holding the full entity. Checksums are unique across
// all documents that have one; Post rejects a second document with the
// same checksum atomically. Put and Delete require the current revision.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Document types.
const (
	TypeTransaction = "Transaction"
	TypeAccount     = "Account"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrDuplicate        = errors.New("duplicate checksum")
	ErrRevisionConflict = errors.New("revision conflict")
)

// Document is the unit of storage.
type Document struct {
	ID  string
	Rev string

	Type       string
	Checksum   string
	AccountID  string
	Date       string // YYYY-MM-DD, compared lexically
	Amount     string // canonical decimal
	CategoryID string

	Body []byte
}

// Clone returns a copy that shares no memory with d.
func (d *Document) Clone() *Document {
	c := *d
	c.Body = append([]byte(nil), d.Body...)
	return &c
}

// Selector filters documents. Zero-valued fields match everything.
type Selector struct {
	Type      string
	Checksum  string
	AccountID string
	Amount    string

	// DateFrom and DateTo are inclusive bounds.
	DateFrom string
	DateTo   string

	// Categorized, when set, matches documents with (true) or without
	// (false) a category.
	Categorized *bool
}

// Matches reports whether d satisfies every set field of s.
func (s Selector) Matches(d *Document) bool {
	if s.Type != "" && d.Type != s.Type {
		return false
	}
	if s.Checksum != "" && d.Checksum != s.Checksum {
		return false
	}
	if s.AccountID != "" && d.AccountID != s.AccountID {
		return false
	}
	if s.Amount != "" && d.Amount != s.Amount {
		return false
	}
	if s.DateFrom != "" && d.Date < s.DateFrom {
		return false
	}
	if s.DateTo != "" && d.Date > s.DateTo {
		return false
	}
	if s.Categorized != nil && (d.CategoryID != "") != *s.Categorized {
		return false
	}
	return true
}

// Query is a selector with an optional result limit (0 means unlimited).
type Query struct {
	Selector Selector
	Limit    int
}

// DocumentStore is implemented by every backend. Find returns documents
// in insertion order.
type DocumentStore interface {
	Post(ctx context.Context, doc *Document) (id, rev string, err error)
	Get(ctx context.Context, id string) (*Document, error)
	Put(ctx context.Context, doc *Document) (rev string, err error)
	Delete(ctx context.Context, id, rev string) error
	Find(ctx context.Context, q Query) ([]*Document, error)
	Close() error
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}

// NextRev returns the revision following prev, of the form "<n>-<hex>".
func NextRev(prev string) string {
	n := 0
	if i := strings.IndexByte(prev, '-'); i > 0 {
		n, _ = strconv.Atoi(prev[:i])
	}
	return fmt.Sprintf("%d-%s", n+1, strings.ReplaceAll(uuid.NewString(), "-", ""))
}
