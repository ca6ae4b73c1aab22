// Package pgstore implements momo/internal/momo/store.Store on PostgreSQL
// with the pgvector extension, grounded on the teacher's
// internal/persistence/databases/postgres_vector.go (pool + metric-selectable
// similarity search conventions) and internal/auth/store.go (pgxpool-backed
// Store struct shape, bootstrap-on-connect pattern). Schema migrations follow
// the embedded-golang-migrate convention from
// codeready-toolchain-tarsy/pkg/database/client.go; vector columns use
// pgvector-go's typed Vector, as wired in yanqian-ai-helloworld's
// postgres_repository.go rather than the teacher's raw string-literal cast.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for migrate

	"momo/internal/momo/merrors"
	"momo/internal/momo/store"
)

var _ store.Store = (*Store)(nil)

//go:embed migrations
var migrationsFS embed.FS

// Store is a PostgreSQL-backed implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Metric selects the pgvector distance operator SearchSimilar* uses.
// Cosine is Momo's default, matching memstore's cosine-similarity scoring.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricL2        Metric = "l2"
	MetricInnerProd Metric = "inner_product"
)

func (m Metric) operator() string {
	switch m {
	case MetricL2:
		return "<->"
	case MetricInnerProd:
		return "<#>"
	default:
		return "<=>"
	}
}

// New connects to connString, runs pending migrations, and registers
// pgvector's Vector type on every pooled connection.
func New(ctx context.Context, connString string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse connection string: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}

	if err := runMigrations(connString); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// runMigrations applies every embedded migration via database/sql (the pgx
// stdlib driver), the same iofs+postgres driver pairing
// codeready-toolchain-tarsy's pkg/database/client.go uses for its Ent-backed
// store.
func runMigrations(connString string) error {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	defer source.Close()

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// noRowsToNotFound maps pgx's sentinel for an empty result set onto Momo's
// store-wide not-found convention, matching memstore's ErrNotFound contract.
func noRowsToNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return merrors.ErrNotFound
	}
	return err
}

func toVector(v []float32) *pgvector.Vector {
	if v == nil {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}
