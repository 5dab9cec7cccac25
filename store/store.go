// Package store persists catalog products as JSON documents in a SQL database
// through bun. SQLite serves local files and tests; PostgreSQL is used when
// the DSN is a postgres:// URL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/minios-linux/catalogtx/catalog"
	"github.com/minios-linux/catalogtx/logging"
)

// DefaultDSN is a SQLite file in the working directory.
const DefaultDSN = "catalogtx.db"

// NotFoundError is returned when no product matches a SKU.
type NotFoundError struct {
	SKU string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %q not found", e.SKU)
}

// Query selects products. Results are ordered by creation time, then SKU.
type Query struct {
	// Limit caps the result size when > 0.
	Limit int
	// SKUs restricts the result to these SKUs when non-empty.
	SKUs []string
	// ActiveOnly skips inactive products.
	ActiveOnly bool
}

type productModel struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID        string    `bun:"id,pk"`
	SKU       string    `bun:"sku,notnull,unique"`
	IsActive  bool      `bun:"is_active,notnull"`
	Document  string    `bun:"document,type:text,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Store reads and writes products.
type Store struct {
	db     *bun.DB
	logger logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps an open bun database.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: logging.NoOp()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to the database named by dsn. postgres:// and postgresql://
// URLs use PostgreSQL; anything else is a SQLite path, optionally prefixed
// with sqlite://, or a file: URI.
func Open(dsn string, opts ...Option) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = DefaultDSN
	}

	var db *bun.DB
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open("sqlite3", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", Redact(dsn), err)
	}
	return New(db, opts...), nil
}

func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if strings.HasPrefix(dsn, "file:") || dsn == ":memory:" {
		return dsn
	}
	return "file:" + dsn + "?_fk=1"
}

// Redact hides the password of a URL-style DSN.
func Redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPassword := strings.Cut(creds, ":")
	if !hasPassword {
		return dsn
	}
	return scheme + "://" + user + ":***@" + host
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the products table and its indexes if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*productModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("creating products table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*productModel)(nil)).
		Index("products_created_at_sku_idx").
		Column("created_at", "sku").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("creating products index: %w", err)
	}
	return nil
}

// Find returns the products matching q.
func (s *Store) Find(ctx context.Context, q Query) ([]*catalog.Product, error) {
	var models []productModel
	sel := s.db.NewSelect().Model(&models).OrderExpr("p.created_at ASC, p.sku ASC")
	if len(q.SKUs) > 0 {
		sel = sel.Where("p.sku IN (?)", bun.In(q.SKUs))
	}
	if q.ActiveOnly {
		sel = sel.Where("p.is_active = ?", true)
	}
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}

	products := make([]*catalog.Product, 0, len(models))
	for i := range models {
		p, err := decode(&models[i])
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	s.logger.Debug("products loaded", "count", len(products), "limit", q.Limit)
	return products, nil
}

// Get returns the product with the given SKU.
func (s *Store) Get(ctx context.Context, sku string) (*catalog.Product, error) {
	var m productModel
	if err := s.db.NewSelect().Model(&m).Where("p.sku = ?", sku).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{SKU: sku}
		}
		return nil, fmt.Errorf("loading product %s: %w", sku, err)
	}
	return decode(&m)
}

// Count returns the number of stored products.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*productModel)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

// Upsert inserts products or replaces the stored document of an existing SKU.
// Existing products keep their ID and creation time. New products without
// an ID get a random one. All products are written in one transaction.
func (s *Store) Upsert(ctx context.Context, products ...*catalog.Product) (inserted, updated int, err error) {
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, p := range products {
			if p == nil {
				continue
			}
			if strings.TrimSpace(p.SKU) == "" {
				return errors.New("product without sku")
			}

			var existing productModel
			err := tx.NewSelect().Model(&existing).Where("p.sku = ?", p.SKU).Scan(ctx)
			switch {
			case err == nil:
				m, err := encode(p, existing.ID, existing.CreatedAt)
				if err != nil {
					return err
				}
				if _, err := tx.NewUpdate().
					Model(m).
					Column("is_active", "document", "updated_at").
					WherePK().
					Exec(ctx); err != nil {
					return fmt.Errorf("updating %s: %w", p.SKU, err)
				}
				updated++
			case errors.Is(err, sql.ErrNoRows):
				id := p.ID
				if id == "" {
					id = uuid.NewString()
				}
				m, err := encode(p, id, p.CreatedAt)
				if err != nil {
					return err
				}
				if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
					return fmt.Errorf("inserting %s: %w", p.SKU, err)
				}
				inserted++
			default:
				return fmt.Errorf("loading %s: %w", p.SKU, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	s.logger.Info("products stored", "inserted", inserted, "updated", updated)
	return inserted, updated, nil
}

func encode(p *catalog.Product, id string, createdAt time.Time) (*productModel, error) {
	// Both dialects keep microseconds.
	now := time.Now().UTC().Truncate(time.Microsecond)
	if createdAt.IsZero() {
		createdAt = now
	}
	createdAt = createdAt.UTC().Truncate(time.Microsecond)
	doc := p.Clone()
	doc.ID = id
	doc.CreatedAt = createdAt
	doc.UpdatedAt = now

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", p.SKU, err)
	}
	return &productModel{
		ID:        id,
		SKU:       p.SKU,
		IsActive:  p.IsActive,
		Document:  string(data),
		CreatedAt: createdAt,
		UpdatedAt: now,
	}, nil
}

func decode(m *productModel) (*catalog.Product, error) {
	var p catalog.Product
	if err := json.Unmarshal([]byte(m.Document), &p); err != nil {
		return nil, fmt.Errorf("decoding product %s: %w", m.SKU, err)
	}
	p.ID = m.ID
	p.SKU = m.SKU
	p.IsActive = m.IsActive
	return &p, nil
}
