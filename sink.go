package salesql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/nao1215/salesql/domain/model"
)

// Querier is the read side of a relational store.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Sink is a private in-memory SQLite database holding the cleaned relation.
type Sink struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSink opens an empty in-memory database. The caller must Close it.
func OpenSink(ctx context.Context) (*Sink, error) {
	ec := NewErrorContext("open database", "")
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, ec.Wrap(ErrDatabase, err)
	}
	// Every connection to :memory: is a different database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ec.Wrap(ErrDatabase, err)
	}
	return &Sink{db: db, logger: zap.NewNop()}, nil
}

// WithLogger sets the logger used by s and returns s.
func (s *Sink) WithLogger(l *zap.Logger) *Sink {
	if l != nil {
		s.logger = l
	}
	return s
}

// DB exposes the underlying handle for callers that need database/sql directly.
func (s *Sink) DB() *sql.DB {
	return s.db
}

// QueryContext runs a read query against the store.
func (s *Sink) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Close releases the database.
func (s *Sink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load replaces table with txns. Drop, create and inserts run in one
// transaction, so a failure leaves the previous contents in place.
func (s *Sink) Load(ctx context.Context, table string, txns []model.Transaction) (err error) {
	name := model.NewTableName(table).Sanitize().String()
	ec := NewErrorContext("load relation", "").WithTable(name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ec.Wrap(ErrDatabase, err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, ignoreTxDone(tx.Rollback()))
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, name)); err != nil {
		return ec.Wrap(ErrDatabase, err)
	}
	if _, err = tx.ExecContext(ctx, createTableSQL(name, model.TransactionSchema)); err != nil {
		return ec.Wrap(ErrDatabase, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(name, model.TransactionSchema))
	if err != nil {
		return ec.Wrap(ErrDatabase, err)
	}
	defer stmt.Close()

	for _, t := range txns {
		if _, err = stmt.ExecContext(ctx, t.Values()...); err != nil {
			return ec.WithDetails(fmt.Sprintf("line %d", t.Line)).Wrap(ErrDatabase, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return ec.Wrap(ErrDatabase, err)
	}

	s.logger.Info("relation loaded", zap.String("table", name), zap.Int("rows", len(txns)))
	return nil
}

// Count returns the number of rows in table.
func (s *Sink) Count(ctx context.Context, table string) (int64, error) {
	name := model.NewTableName(table).Sanitize().String()
	var n int64
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, name))
	if err := row.Scan(&n); err != nil {
		return 0, NewErrorContext("count", "").WithTable(name).Wrap(ErrDatabase, err)
	}
	return n, nil
}

// Columns returns the column names of table in declaration order.
func (s *Sink) Columns(ctx context.Context, table string) ([]string, error) {
	return tableColumns(ctx, s, model.NewTableName(table).Sanitize().String())
}

// tableColumns reads the column list of table through q.
func tableColumns(ctx context.Context, q Querier, table string) ([]string, error) {
	ec := NewErrorContext("read columns", "").WithTable(table)
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, table))
	if err != nil {
		return nil, ec.Wrap(ErrDatabase, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid       int
			name      string
			typ       string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &pk); err != nil {
			return nil, ec.Wrap(ErrDatabase, err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, ec.Wrap(ErrDatabase, err)
	}
	return cols, nil
}

func createTableSQL(table string, schema model.Schema) string {
	defs := make([]string, len(schema))
	for i, c := range schema {
		def := fmt.Sprintf(`"%s" %s`, c.Name, c.Type.String())
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return fmt.Sprintf(`CREATE TABLE "%s" (%s)`, table, strings.Join(defs, ", "))
}

func insertSQL(table string, schema model.Schema) string {
	cols := make([]string, len(schema))
	placeholders := make([]string, len(schema))
	for i, c := range schema {
		cols[i] = `"` + c.Name + `"`
		placeholders[i] = "?"
	}
	return fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`,
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

func ignoreTxDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
