// Package storage persists transactions, monthly incomes and the
// allocation-settings singleton in SQLite, keyed by user.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"bolso/internal/core"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// migrateUp applies any pending embedded schema migrations on the open
// connection. An already current schema is not an error. The migrate
// instance is never closed, closing it would close db too.
func migrateUp(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Transactions ---

// ListTransactions returns the full transaction snapshot for a user.
// Listeners always get the whole collection, never deltas.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, category, date, created_at_ms
		 FROM transactions WHERE user_id = ? ORDER BY date, created_at_ms`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// GetTransaction fetches one transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, description, amount_cents, category, date, created_at_ms
		 FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return t, err
}

// UpsertTransaction writes a transaction, replacing any record with
// the same id. Edits are whole-record overwrites.
func (r *SQLiteRepository) UpsertTransaction(ctx context.Context, userID string, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, description, amount_cents, category, date, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   description = excluded.description,
		   amount_cents = excluded.amount_cents,
		   category = excluded.category,
		   date = excluded.date`,
		t.ID, userID, t.Description, t.Amount.Cents, string(t.Category), t.Date.ISO(), t.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", t.ID,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"category", string(t.Category),
		"date", t.Date.ISO())

	return nil
}

// DeleteTransaction removes a transaction by id.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id)
	return nil
}

// --- Monthly incomes ---

// ListIncomes returns every income record for a user, keyed by month.
func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID string) (map[core.MonthKey]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month_key, salary_cents, advance_cents, extras_cents
		 FROM monthly_incomes WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	out := make(map[core.MonthKey]core.Income)
	for rows.Next() {
		var key string
		var salary, advance, extras int64
		if err := rows.Scan(&key, &salary, &advance, &extras); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out[core.MonthKey(key)] = core.Income{
			Salary:  core.Money{Cents: salary},
			Advance: core.Money{Cents: advance},
			Extras:  core.Money{Cents: extras},
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return out, nil
}

// GetIncome fetches one month's income. Absent months read as the
// zero value: income records are created lazily.
func (r *SQLiteRepository) GetIncome(ctx context.Context, userID string, month core.MonthKey) (core.Income, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT salary_cents, advance_cents, extras_cents
		 FROM monthly_incomes WHERE user_id = ? AND month_key = ?`, userID, string(month))

	var salary, advance, extras int64
	err := row.Scan(&salary, &advance, &extras)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, nil
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income: %w", err)
	}
	return core.Income{
		Salary:  core.Money{Cents: salary},
		Advance: core.Money{Cents: advance},
		Extras:  core.Money{Cents: extras},
	}, nil
}

// UpsertIncome overwrites a month's income record. Incomes are never
// deleted, only replaced.
func (r *SQLiteRepository) UpsertIncome(ctx context.Context, userID string, month core.MonthKey, income core.Income) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO monthly_incomes (user_id, month_key, salary_cents, advance_cents, extras_cents)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, month_key) DO UPDATE SET
		   salary_cents = excluded.salary_cents,
		   advance_cents = excluded.advance_cents,
		   extras_cents = excluded.extras_cents`,
		userID, string(month), income.Salary.Cents, income.Advance.Cents, income.Extras.Cents)
	if err != nil {
		return fmt.Errorf("upsert income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"month_key", string(month),
		"salary_cents", income.Salary.Cents,
		"advance_cents", income.Advance.Cents,
		"extras_cents", income.Extras.Cents)

	return nil
}

// --- Allocation settings ---

// GetSettings returns the user's allocation settings, or the defaults
// when none were persisted yet.
func (r *SQLiteRepository) GetSettings(ctx context.Context, userID string) (core.AllocationSettings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT fixed, comfort, goals, pleasures, freedom, knowledge
		 FROM allocation_settings WHERE user_id = ?`, userID)

	var fixed, comfort, goals, pleasures, freedom, knowledge int
	err := row.Scan(&fixed, &comfort, &goals, &pleasures, &freedom, &knowledge)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return core.AllocationSettings{
		core.CategoryFixed:     fixed,
		core.CategoryComfort:   comfort,
		core.CategoryGoals:     goals,
		core.CategoryPleasures: pleasures,
		core.CategoryFreedom:   freedom,
		core.CategoryKnowledge: knowledge,
	}, nil
}

// ReplaceSettings swaps the whole settings record in one statement.
// Callers must have validated the sum; this layer does not re-check.
func (r *SQLiteRepository) ReplaceSettings(ctx context.Context, userID string, s core.AllocationSettings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO allocation_settings (user_id, fixed, comfort, goals, pleasures, freedom, knowledge)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   fixed = excluded.fixed,
		   comfort = excluded.comfort,
		   goals = excluded.goals,
		   pleasures = excluded.pleasures,
		   freedom = excluded.freedom,
		   knowledge = excluded.knowledge`,
		userID,
		s[core.CategoryFixed], s[core.CategoryComfort], s[core.CategoryGoals],
		s[core.CategoryPleasures], s[core.CategoryFreedom], s[core.CategoryKnowledge])
	if err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}

	slog.InfoContext(ctx, "Allocation settings replaced", "user_id", userID)
	return nil
}

// EnsureDefaults seeds the settings singleton for a new user. Safe to
// call on every startup.
func (r *SQLiteRepository) EnsureDefaults(ctx context.Context, userID string) error {
	s := core.DefaultSettings()
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO allocation_settings (user_id, fixed, comfort, goals, pleasures, freedom, knowledge)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID,
		s[core.CategoryFixed], s[core.CategoryComfort], s[core.CategoryGoals],
		s[core.CategoryPleasures], s[core.CategoryFreedom], s[core.CategoryKnowledge])
	if err != nil {
		return fmt.Errorf("ensure defaults: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		category  string
		date      string
		createdMs int64
	)
	if err := row.Scan(&t.ID, &t.Description, &t.Amount.Cents, &category, &date, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	// Unknown categories must fail fast here rather than leak into
	// aggregation with a silent coercion.
	cat, err := core.ParseCategory(category)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Category = cat

	d, err := core.ParseISODate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Date = d
	t.CreatedAt = time.UnixMilli(createdMs).UTC()

	return t, nil
}
