package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contact-manager/internal/model"
)

var (
	created = time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC)
	updated = time.Date(2024, time.March, 4, 12, 30, 0, 0, time.UTC)
)

var contactColumns = []string{
	"id", "full_name", "phone_number", "email", "address", "company", "notes", "created_at", "updated_at",
}

// createMockStore builds a store on a mock database handle for the driver and returns the mock
// object for defining our expected SQL calls.
func createMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return New(sqlx.NewDb(db, driver)), mock
}

// erikaRow returns mock rows holding a single contact.
func erikaRow(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows(contactColumns).
		AddRow(29, "Erika Mustermann", "+49 0815 4711", "erika@example.com", nil, "ACME", nil, created, updated)
}

// TestCreate expects an INSERT with all columns and the new id set on the contact.
func TestCreate(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	company := "ACME"
	c := model.Contact{
		FullName:    "Erika Mustermann",
		PhoneNumber: "+49 0815 4711",
		Email:       "erika@example.com",
		Company:     &company,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs("Erika Mustermann", "+49 0815 4711", "erika@example.com", nil, "ACME", nil, created, created).
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := s.Create(context.Background(), &c)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(42), c.Id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCreatePostgres expects that the id is read back with RETURNING on PostgreSQL.
func TestCreatePostgres(t *testing.T) {
	s, mock := createMockStore(t, DriverPostgres)
	c := model.NewContact(model.Fields{FullName: "Al", PhoneNumber: "0123456789", Email: "al@ex.com"}, created)
	mock.ExpectQuery(`INSERT INTO contacts (.+) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\) RETURNING id`).
		WithArgs("Al", "0123456789", "al@ex.com", nil, nil, nil, created, created).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(7))

	id, err := s.Create(context.Background(), &c)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestGetByID expects the contact with all its values, NULL columns as nil.
func TestGetByID(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = ").
		WithArgs(int64(29)).
		WillReturnRows(erikaRow(mock))

	c, err := s.GetByID(context.Background(), 29)
	require.NoError(t, err)
	assert.Equal(t, int64(29), c.Id)
	assert.Equal(t, "Erika Mustermann", c.FullName)
	assert.Equal(t, "+49 0815 4711", c.PhoneNumber)
	assert.Equal(t, "erika@example.com", c.Email)
	assert.Nil(t, c.Address)
	assert.Equal(t, "ACME", *c.Company)
	assert.Nil(t, c.Notes)
	assert.Equal(t, created, c.CreatedAt)
	assert.Equal(t, updated, c.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestGetByIDNotFound expects ErrNotFound for an unknown id.
func TestGetByIDNotFound(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = ").
		WithArgs(int64(9999)).
		WillReturnRows(mock.NewRows(contactColumns))

	_, err := s.GetByID(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestGetByIDDatabaseError expects that other errors are passed on, not mistaken for a missing row.
func TestGetByIDDatabaseError(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = ").
		WithArgs(int64(1)).
		WillReturnError(sql.ErrConnDone)

	_, err := s.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.False(t, errors.Is(err, ErrNotFound))
}

// TestFindByEmail expects a lookup by the exact normalized email.
func TestFindByEmail(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE email = (.+) ORDER BY id LIMIT 1").
		WithArgs("erika@example.com").
		WillReturnRows(erikaRow(mock))
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE email = (.+) ORDER BY id LIMIT 1").
		WithArgs("nobody@example.com").
		WillReturnRows(mock.NewRows(contactColumns))

	c, found, err := s.FindByEmail(context.Background(), "erika@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(29), c.Id)

	_, found, err = s.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestUpdate expects an UPDATE of all editable columns.
func TestUpdate(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	notes := "met at the stadium"
	c := model.Contact{
		Id:          17,
		FullName:    "Rudi Völler",
		PhoneNumber: "+49 1234567890",
		Email:       "rudi@example.com",
		Notes:       &notes,
		UpdatedAt:   updated,
	}
	mock.ExpectExec("UPDATE contacts SET (.+) WHERE id = ").
		WithArgs("Rudi Völler", "+49 1234567890", "rudi@example.com", nil, nil, "met at the stadium", updated, int64(17)).
		WillReturnResult(sqlmock.NewResult(-1, 1))

	require.NoError(t, s.Update(context.Background(), &c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestUpdateNotFound expects ErrNotFound when no row matched.
func TestUpdateNotFound(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectExec("UPDATE contacts").
		WillReturnResult(sqlmock.NewResult(-1, 0))

	err := s.Update(context.Background(), &model.Contact{Id: 9999})
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestDelete expects a DELETE by id, and ErrNotFound when nothing was deleted.
func TestDelete(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectExec("DELETE FROM contacts WHERE id = ").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(-1, 1))
	mock.ExpectExec("DELETE FROM contacts WHERE id = ").
		WithArgs(int64(9999)).
		WillReturnResult(sqlmock.NewResult(-1, 0))

	assert.NoError(t, s.Delete(context.Background(), 42))
	assert.ErrorIs(t, s.Delete(context.Background(), 9999), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSearch expects case-insensitive patterns for name and email and a literal pattern for
// the phone number.
func TestSearch(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectQuery(`SELECT (.+) FROM contacts WHERE LOWER\(full_name\) LIKE (.+) OR phone_number LIKE (.+) OR LOWER\(email\) LIKE (.+) ORDER BY full_name, id`).
		WithArgs("%smith%", "%Smith%", "%smith%").
		WillReturnRows(mock.NewRows(contactColumns).
			AddRow(3, "Anna Smith", "0123456789", "anna@ex.com", nil, nil, nil, created, created).
			AddRow(1, "John Smithers", "0123456780", "john@ex.com", nil, nil, nil, created, created))

	contacts, err := s.Search(context.Background(), "Smith")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Anna Smith", contacts[0].FullName)
	assert.Equal(t, "John Smithers", contacts[1].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSearchEscapesWildcards expects that LIKE wildcards in the search text match literally.
func TestSearchEscapesWildcards(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE").
		WithArgs(`%50\%\_off\\%`, `%50\%\_off\\%`, `%50\%\_off\\%`).
		WillReturnRows(mock.NewRows(contactColumns))

	contacts, err := s.Search(context.Background(), `50%_off\`)
	require.NoError(t, err)
	assert.Empty(t, contacts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestList expects the total count and a LIMIT/OFFSET query for the requested page.
func TestList(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contacts`).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery("SELECT (.+) FROM contacts ORDER BY full_name, id LIMIT (.+) OFFSET").
		WithArgs(10, 20).
		WillReturnRows(erikaRow(mock))

	contacts, total, err := s.List(context.Background(), 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, contacts, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestListHugePage expects an offset beyond every result instead of an overflowing one.
func TestListHugePage(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contacts`).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(25))
	mock.ExpectQuery("SELECT (.+) FROM contacts ORDER BY full_name, id LIMIT (.+) OFFSET").
		WithArgs(10, math.MaxInt64).
		WillReturnRows(mock.NewRows(contactColumns))

	contacts, total, err := s.List(context.Background(), 1000000000000000000, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Empty(t, contacts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestListPageBelowOne expects that the first page is returned for page numbers below 1.
func TestListPageBelowOne(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contacts`).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM contacts ORDER BY").
		WithArgs(10, 0).
		WillReturnRows(mock.NewRows(contactColumns))

	contacts, total, err := s.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
}

// TestTxCommit expects that statements of a transaction run between BEGIN and COMMIT and that a
// deferred Rollback after Commit is harmless.
func TestTxCommit(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM contacts").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(-1, 1))
	mock.ExpectCommit()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Delete(context.Background(), 1))
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestTxIsolatedMySQL expects no savepoints on MySQL.
func TestTxIsolatedMySQL(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	boom := errors.New("boom")
	err = tx.Isolated(context.Background(), func() error { return boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestTxIsolatedPostgres expects a savepoint that is released on success and rolled back to on
// failure.
func TestTxIsolatedPostgres(t *testing.T) {
	s, mock := createMockStore(t, DriverPostgres)
	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT import_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RELEASE SAVEPOINT import_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SAVEPOINT import_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ROLLBACK TO SAVEPOINT import_row").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	assert.NoError(t, tx.Isolated(context.Background(), func() error { return nil }))
	boom := errors.New("boom")
	assert.ErrorIs(t, tx.Isolated(context.Background(), func() error { return boom }), boom)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestOpenUnsupportedDriver expects an error for drivers other than MySQL and PostgreSQL.
func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("sqlite3", "contacts.db")
	assert.Error(t, err)
}

// TestDSN checks the data source names built for both drivers.
func TestDSN(t *testing.T) {
	dsn, err := DSN(DriverMySQL, "dirk", "bullo92", "localhost:3306", "contacts")
	require.NoError(t, err)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "dirk", cfg.User)
	assert.Equal(t, "bullo92", cfg.Passwd)
	assert.Equal(t, "localhost:3306", cfg.Addr)
	assert.Equal(t, "contacts", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)

	dsn, err = DSN(DriverPostgres, "dirk", "p@ss", "db:5432", "contacts")
	require.NoError(t, err)
	assert.Equal(t, "postgres://dirk:p%40ss@db:5432/contacts?sslmode=disable", dsn)

	_, err = DSN("oracle", "", "", "", "")
	assert.Error(t, err)
}

// TestDescribe expects driver codes to be stripped from database errors.
func TestDescribe(t *testing.T) {
	err := &mysql.MySQLError{Number: 1406, Message: "Data too long for column 'full_name' at row 1"}
	assert.Equal(t, "Data too long for column 'full_name' at row 1", Describe(err))
	assert.Equal(t, "boom", Describe(errors.New("boom")))
}

// TestEnsureSchema expects one statement for MySQL and the table plus two indexes for PostgreSQL.
func TestEnsureSchema(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS contacts`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, EnsureSchema(context.Background(), s.db))
	assert.NoError(t, mock.ExpectationsWereMet())

	s, mock = createMockStore(t, DriverPostgres)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS contacts`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS ix_contacts_full_name`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS ix_contacts_email`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, EnsureSchema(context.Background(), s.db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestResetSchema expects the table to be dropped before it is created again, and nothing to be
// created when the drop fails.
func TestResetSchema(t *testing.T) {
	s, mock := createMockStore(t, DriverMySQL)
	mock.ExpectExec(`DROP TABLE IF EXISTS contacts`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS contacts`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, ResetSchema(context.Background(), s.db))
	assert.NoError(t, mock.ExpectationsWereMet())

	s, mock = createMockStore(t, DriverMySQL)
	mock.ExpectExec(`DROP TABLE IF EXISTS contacts`).WillReturnError(errors.New("access denied"))
	assert.EqualError(t, ResetSchema(context.Background(), s.db), "drop schema: access denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}
