// Package sqlite implements store.DocumentStore on SQLite through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// documentModel is the documents table. Seq preserves insertion order;
// the unique index on the nullable checksum column makes Post an atomic
// insert-if-absent.
type documentModel struct {
	Seq        uint    `gorm:"primaryKey;autoIncrement"`
	ID         string  `gorm:"column:id;size:64;uniqueIndex;not null"`
	Rev        string  `gorm:"size:64;not null"`
	Type       string  `gorm:"size:32;index:idx_documents_type_account;not null"`
	Checksum   *string `gorm:"size:64;uniqueIndex"`
	AccountID  string  `gorm:"size:64;index:idx_documents_type_account"`
	Date       string  `gorm:"size:10;index"`
	Amount     string  `gorm:"size:64;index"`
	CategoryID string  `gorm:"size:64"`
	Body       []byte
}

func (documentModel) TableName() string {
	return "documents"
}

// Store is a SQLite-backed document store.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates the
// schema. Writes are serialised through a single connection.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("Open: create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("Open: open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("Open: get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
	_, _ = sqlDB.Exec("PRAGMA busy_timeout = 5000;")

	if err := AutoMigrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}

	return &Store{db: db}, nil
}

// AutoMigrate creates or updates the documents table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&documentModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// DB exposes the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Post inserts doc, assigning an id when it has none.
func (s *Store) Post(ctx context.Context, doc *store.Document) (string, string, error) {
	row := toModel(doc)
	if row.ID == "" {
		row.ID = store.NewID()
	}
	row.Rev = store.NextRev("")

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if doc.ID != "" {
			var n int64
			if err := tx.Model(&documentModel{}).Where("id = ?", row.ID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("id %s: %w", row.ID, store.ErrRevisionConflict)
			}
		}
		return tx.Create(row).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return "", "", fmt.Errorf("Post: checksum %s: %w", doc.Checksum, store.ErrDuplicate)
		}
		return "", "", fmt.Errorf("Post: %w", err)
	}

	return row.ID, row.Rev, nil
}

// Get returns the document with the given id.
func (s *Store) Get(ctx context.Context, id string) (*store.Document, error) {
	var row documentModel
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("Get: %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return fromModel(&row), nil
}

// Put replaces doc when doc.Rev is still the stored revision. The check
// and the update are a single conditional UPDATE.
func (s *Store) Put(ctx context.Context, doc *store.Document) (string, error) {
	row := toModel(doc)
	newRev := store.NextRev(doc.Rev)

	res := s.db.WithContext(ctx).
		Model(&documentModel{}).
		Where("id = ? AND rev = ?", doc.ID, doc.Rev).
		Updates(map[string]interface{}{
			"rev":         newRev,
			"type":        row.Type,
			"checksum":    row.Checksum,
			"account_id":  row.AccountID,
			"date":        row.Date,
			"amount":      row.Amount,
			"category_id": row.CategoryID,
			"body":        row.Body,
		})
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return "", fmt.Errorf("Put: checksum %s: %w", doc.Checksum, store.ErrDuplicate)
		}
		return "", fmt.Errorf("Put: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", s.missOrConflict(ctx, "Put", doc.ID)
	}
	return newRev, nil
}

// Delete removes the document when rev is still the stored revision.
func (s *Store) Delete(ctx context.Context, id, rev string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND rev = ?", id, rev).Delete(&documentModel{})
	if res.Error != nil {
		return fmt.Errorf("Delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missOrConflict(ctx, "Delete", id)
	}
	return nil
}

// Find returns matching documents in insertion order.
func (s *Store) Find(ctx context.Context, q store.Query) ([]*store.Document, error) {
	tx := s.db.WithContext(ctx).Model(&documentModel{})

	sel := q.Selector
	if sel.Type != "" {
		tx = tx.Where("type = ?", sel.Type)
	}
	if sel.Checksum != "" {
		tx = tx.Where("checksum = ?", sel.Checksum)
	}
	if sel.AccountID != "" {
		tx = tx.Where("account_id = ?", sel.AccountID)
	}
	if sel.Amount != "" {
		tx = tx.Where("amount = ?", sel.Amount)
	}
	if sel.DateFrom != "" {
		tx = tx.Where("date >= ?", sel.DateFrom)
	}
	if sel.DateTo != "" {
		tx = tx.Where("date <= ?", sel.DateTo)
	}
	if sel.Categorized != nil {
		if *sel.Categorized {
			tx = tx.Where("category_id <> ''")
		} else {
			tx = tx.Where("category_id = ''")
		}
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []documentModel
	if err := tx.Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("Find: %w", err)
	}

	docs := make([]*store.Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, fromModel(&rows[i]))
	}
	return docs, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) missOrConflict(ctx context.Context, op, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&documentModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %s: %w", op, id, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %s: %w", op, id, store.ErrRevisionConflict)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toModel(doc *store.Document) *documentModel {
	var checksum *string
	if doc.Checksum != "" {
		c := doc.Checksum
		checksum = &c
	}
	return &documentModel{
		ID:         doc.ID,
		Rev:        doc.Rev,
		Type:       doc.Type,
		Checksum:   checksum,
		AccountID:  doc.AccountID,
		Date:       doc.Date,
		Amount:     doc.Amount,
		CategoryID: doc.CategoryID,
		Body:       append([]byte(nil), doc.Body...),
	}
}

func fromModel(row *documentModel) *store.Document {
	doc := &store.Document{
		ID:         row.ID,
		Rev:        row.Rev,
		Type:       row.Type,
		AccountID:  row.AccountID,
		Date:       row.Date,
		Amount:     row.Amount,
		CategoryID: row.CategoryID,
		Body:       row.Body,
	}
	if row.Checksum != nil {
		doc.Checksum = *row.Checksum
	}
	return doc
}

// Ensure Store implements DocumentStore interface.
var _ store.DocumentStore = (*Store)(nil)
