// Package store persists contacts in a relational database through sqlx.
//
// MySQL (driver "mysql") is the default database, PostgreSQL is supported through pgx (driver
// "pgx"). All statements are written with '?' placeholders and rebound for the driver in use.
//
// Reads and single-statement changes run on the connection pool via Store. Changes that must
// become visible together run on an explicit transaction handle obtained from Store.Begin,
// which the caller commits or rolls back exactly once.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contact-manager/internal/model"
	"gitlab.com/dirk.krummacker/contact-manager/internal/pagination"
)

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// ErrNotFound is returned when no contact has the requested id.
var ErrNotFound = errors.New("contact not found")

const columns = "id, full_name, phone_number, email, address, company, notes, created_at, updated_at"

// Open creates a connection pool for one of the supported drivers. It does not connect yet.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver != DriverMySQL && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return sqlx.Open(driver, dsn)
}

// Store gives access to the contacts table.
type Store struct {
	queries
	db *sqlx.DB
}

// New creates a store on top of the database handle. The handle can be a real database for
// production use or a mock database within unit tests.
func New(db *sqlx.DB) *Store {
	return &Store{queries: queries{ext: db}, db: db}
}

// Ping verifies that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{queries: queries{ext: tx}, tx: tx}, nil
}

// Tx is a transaction on the contacts table. It offers the same operations as Store; none of
// its changes are visible to others before Commit.
type Tx struct {
	queries
	tx *sqlx.Tx
}

// Commit makes all changes of the transaction visible.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards all changes of the transaction. Calling it after Commit is a no-op, so it
// can be deferred right after Begin.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// Isolated runs fn so that a failing statement inside it leaves the rest of the transaction
// usable. PostgreSQL aborts the whole transaction on the first failed statement, so fn runs
// inside a savepoint there. MySQL only rolls back the failed statement itself.
func (t *Tx) Isolated(ctx context.Context, fn func() error) error {
	if t.tx.DriverName() != DriverPostgres {
		return fn()
	}
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT import_row"); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT import_row"); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT import_row"); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// queries implements the operations shared by Store and Tx.
type queries struct {
	ext sqlx.ExtContext
}

// Create inserts the contact and sets its Id to the newly assigned id.
func (q queries) Create(ctx context.Context, c *model.Contact) (int64, error) {
	const insert = `
		INSERT INTO contacts (full_name, phone_number, email, address, company, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{c.FullName, c.PhoneNumber, c.Email, c.Address, c.Company, c.Notes, c.CreatedAt, c.UpdatedAt}

	var id int64
	if q.ext.DriverName() == DriverPostgres {
		err := q.ext.QueryRowxContext(ctx, q.ext.Rebind(insert+" RETURNING id"), args...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert contact: %w", err)
		}
	} else {
		result, err := q.ext.ExecContext(ctx, insert, args...)
		if err != nil {
			return 0, fmt.Errorf("insert contact: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("insert contact: %w", err)
		}
	}
	c.Id = id
	return id, nil
}

// GetByID returns the contact with the id, or ErrNotFound.
func (q queries) GetByID(ctx context.Context, id int64) (model.Contact, error) {
	var c model.Contact
	err := sqlx.GetContext(ctx, q.ext, &c, q.ext.Rebind(`SELECT `+columns+` FROM contacts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("select contact %d: %w", id, err)
	}
	return c, nil
}

// FindByEmail returns the contact with the normalized email. Emails are not unique in the
// table; if several contacts share one, the oldest wins.
func (q queries) FindByEmail(ctx context.Context, email string) (model.Contact, bool, error) {
	var c model.Contact
	err := sqlx.GetContext(ctx, q.ext, &c, q.ext.Rebind(`
		SELECT `+columns+`
		FROM contacts
		WHERE email = ?
		ORDER BY id
		LIMIT 1`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, false, nil
	}
	if err != nil {
		return model.Contact{}, false, fmt.Errorf("select contact by email: %w", err)
	}
	return c, true, nil
}

// Update writes all user-editable values and UpdatedAt of the contact. It returns ErrNotFound
// if no contact has its id.
func (q queries) Update(ctx context.Context, c *model.Contact) error {
	result, err := q.ext.ExecContext(ctx, q.ext.Rebind(`
		UPDATE contacts
		SET full_name = ?, phone_number = ?, email = ?, address = ?, company = ?, notes = ?, updated_at = ?
		WHERE id = ?`),
		c.FullName, c.PhoneNumber, c.Email, c.Address, c.Company, c.Notes, c.UpdatedAt, c.Id)
	if err != nil {
		return fmt.Errorf("update contact %d: %w", c.Id, err)
	}
	return expectOneRow(result, c.Id)
}

// Delete removes the contact with the id. It returns ErrNotFound if there is none.
func (q queries) Delete(ctx context.Context, id int64) error {
	result, err := q.ext.ExecContext(ctx, q.ext.Rebind(`DELETE FROM contacts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete contact %d: %w", id, err)
	}
	return expectOneRow(result, id)
}

// Search returns all contacts whose full name or email contains the text, ignoring case, or
// whose phone number contains it literally. The result is ordered by full name.
func (q queries) Search(ctx context.Context, text string) ([]model.Contact, error) {
	pattern := "%" + escapeLike(text) + "%"
	lower := strings.ToLower(pattern)
	contacts := []model.Contact{}
	err := sqlx.SelectContext(ctx, q.ext, &contacts, q.ext.Rebind(`
		SELECT `+columns+`
		FROM contacts
		WHERE LOWER(full_name) LIKE ?
			OR phone_number LIKE ?
			OR LOWER(email) LIKE ?
		ORDER BY full_name, id`), lower, pattern, lower)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return contacts, nil
}

// List returns one page of contacts ordered by full name together with the total number of
// contacts. Pages are numbered from 1.
func (q queries) List(ctx context.Context, page, pageSize int) ([]model.Contact, int, error) {
	if page < 1 {
		page = 1
	}
	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	contacts := []model.Contact{}
	err = sqlx.SelectContext(ctx, q.ext, &contacts, q.ext.Rebind(`
		SELECT `+columns+`
		FROM contacts
		ORDER BY full_name, id
		LIMIT ?
		OFFSET ?`), pageSize, pagination.Offset(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, total, nil
}

// All returns every contact ordered by full name.
func (q queries) All(ctx context.Context) ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := sqlx.SelectContext(ctx, q.ext, &contacts, `SELECT `+columns+` FROM contacts ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("select all contacts: %w", err)
	}
	return contacts, nil
}

// Count returns the number of contacts.
func (q queries) Count(ctx context.Context) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, q.ext, &total, `SELECT COUNT(*) FROM contacts`); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return total, nil
}

func expectOneRow(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("contact %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally. Both MySQL and PostgreSQL use
// the backslash as default escape character.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Describe returns the message of a database error without driver codes, for showing it in an
// import report. Other errors are returned unchanged.
func Describe(err error) string {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Message
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	return err.Error()
}
