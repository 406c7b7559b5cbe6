package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/ericselin/freshness/catalog"

	_ "github.com/glebarez/go-sqlite"
)

// ProductStore is a catalog backend.
// It serves the catalog as a data source and can have its contents replaced.
//
// Implementations must be thread-safe!
type ProductStore interface {
	catalog.DataSource
	// Replace swaps the stored catalog for the given one, keeping its order.
	Replace(ctx context.Context, c catalog.Catalog) error
}

// MemStore keeps the catalog in memory.
type MemStore struct {
	mutex    sync.RWMutex
	products catalog.Catalog
}

func NewMemStore(c catalog.Catalog) *MemStore {
	return &MemStore{
		products: clone(c),
	}
}

// FetchCatalog returns a copy, so callers never alias the stored products.
func (m *MemStore) FetchCatalog(ctx context.Context) (catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrIO, err)
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return clone(m.products), nil
}

func (m *MemStore) Replace(ctx context.Context, c catalog.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.products = clone(c)
	return nil
}

func clone(c catalog.Catalog) catalog.Catalog {
	out := make(catalog.Catalog, len(c))
	copy(out, c)
	return out
}

type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore opens the catalog database with the given filename.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteStore(filename string) (SQLiteStore, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return SQLiteStore{}, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS products (
		position INTEGER PRIMARY KEY,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		price INTEGER NOT NULL,
		stock INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return SQLiteStore{}, err
	}
	_, err = db.Exec("CREATE INDEX IF NOT EXISTS products_id_idx ON products (id)")
	if err != nil {
		db.Close()
		return SQLiteStore{}, err
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return SQLiteStore{}, err
	}
	return SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

// FetchCatalog reads every product in stored order.
// Database failures are IO errors, rows that break the catalog constraints are format errors.
func (s SQLiteStore) FetchCatalog(ctx context.Context) (catalog.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, description, category, price, stock FROM products ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrIO, err)
	}
	defer rows.Close()

	products := make(catalog.Catalog, 0)
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock); err != nil {
			return nil, fmt.Errorf("%w: %w", catalog.ErrFormat, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", catalog.ErrIO, err)
	}
	if err := products.Validate(); err != nil {
		return nil, err
	}
	return products, nil
}

// Replace swaps all stored products in one transaction.
func (s SQLiteStore) Replace(ctx context.Context, c catalog.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO products (position, id, name, description, category, price, stock) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range c {
		if _, err := stmt.ExecContext(ctx, i, p.ID, p.Name, p.Description, p.Category, p.Price, p.Stock); err != nil {
			return fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored products.
func (s SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n)
	return n, err
}

func (s SQLiteStore) Close() error {
	return s.db.Close()
}
