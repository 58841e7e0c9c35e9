package routestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/dutyplan/core/model"
	core "github.com/kilianp07/dutyplan/core/routestore"
)

// Dialects understood by SQLStore. The value is the database/sql driver name.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "pgx"
	DialectMySQL    = "mysql"
)

const routesSchema = `CREATE TABLE IF NOT EXISTS bus_routes (
        id VARCHAR(64) PRIMARY KEY,
        created_at BIGINT NOT NULL,
        updated_at BIGINT NOT NULL,
        document TEXT NOT NULL
    )`

// SQLStore keeps each route as a JSON document next to its timestamps.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// OpenSQL opens dsn with the driver of dialect and ensures the schema.
func OpenSQL(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("routestore: empty dsn for %s", dialect)
	}
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an existing connection pool.
func NewSQLStore(db *sql.DB, dialect string) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Migrate creates the routes table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, routesSchema); err != nil {
		return fmt.Errorf("create bus_routes: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoute(sc scanner) (core.Route, error) {
	var (
		r                core.Route
		created, updated int64
		doc              string
	)
	if err := sc.Scan(&r.ID, &created, &updated, &doc); err != nil {
		return core.Route{}, err
	}
	if err := json.Unmarshal([]byte(doc), &r.RouteDocument); err != nil {
		return core.Route{}, fmt.Errorf("decode route %s: %w", r.ID, err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.UpdatedAt = time.UnixMilli(updated).UTC()
	return r, nil
}

func (s *SQLStore) List(ctx context.Context) ([]core.Route, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, updated_at, document FROM bus_routes ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	res := []core.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (core.Route, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, created_at, updated_at, document FROM bus_routes WHERE id = ?`), id)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Route{}, core.ErrNotFound
	}
	if err != nil {
		return core.Route{}, fmt.Errorf("get route %s: %w", id, err)
	}
	return r, nil
}

func (s *SQLStore) Create(ctx context.Context, doc model.RouteDocument) (core.Route, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return core.Route{}, err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	r := core.Route{ID: uuid.NewString(), RouteDocument: doc, CreatedAt: now, UpdatedAt: now}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO bus_routes (id, created_at, updated_at, document) VALUES (?, ?, ?, ?)`),
		r.ID, now.UnixMilli(), now.UnixMilli(), string(b))
	if err != nil {
		return core.Route{}, fmt.Errorf("insert route: %w", err)
	}
	return r, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, doc model.RouteDocument) (core.Route, error) {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return core.Route{}, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return core.Route{}, err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE bus_routes SET document = ?, updated_at = ? WHERE id = ?`),
		string(b), now.UnixMilli(), id)
	if err != nil {
		return core.Route{}, fmt.Errorf("update route %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Route{}, core.ErrNotFound
	}
	return core.Route{ID: id, RouteDocument: doc, CreatedAt: prev.CreatedAt, UpdatedAt: now}, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM bus_routes WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete route %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }
