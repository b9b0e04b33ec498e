// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. It is the default driver for local runs and for the tests.
//
// Dates and timestamps are stored as TEXT (YYYY-MM-DD and RFC 3339 in
// UTC) so the driver never has to guess at time conversions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/qapabilities/students-api/internal/config"
	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/types"
)

// schema is idempotent — safe to run on every startup.
//
// The two partial unique indexes are the real guard for the "one active
// student per email / CPF" rule: the service checks first to produce a
// friendly message, but two concurrent creations can both pass that
// check, and only the index stops the second insert.
const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id         TEXT    PRIMARY KEY,
		name       TEXT    NOT NULL,
		email      TEXT    NOT NULL,
		cpf        TEXT    NOT NULL,
		birth_date TEXT    NOT NULL,
		phone      TEXT    NOT NULL,
		address    TEXT    NOT NULL,
		created_at TEXT    NOT NULL,
		updated_at TEXT,
		is_active  INTEGER NOT NULL DEFAULT 1
	);
	CREATE UNIQUE INDEX IF NOT EXISTS ux_students_active_email ON students (email) WHERE is_active = 1;
	CREATE UNIQUE INDEX IF NOT EXISTS ux_students_active_cpf   ON students (cpf)   WHERE is_active = 1;
	CREATE INDEX        IF NOT EXISTS ix_students_name         ON students (name);
`

const columns = "id, name, email, cpf, birth_date, phone, address, created_at, updated_at, is_active"

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at cfg.StoragePath, creates the students
// table and its indexes if they do not already exist, and returns a
// ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.StoragePath))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create schema: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// dsn adds a busy timeout so concurrent writers wait for the file lock
// instead of failing immediately with SQLITE_BUSY.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000"
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups
// ─────────────────────────────────────────────────────────────────────────────

func (s *SQLite) FindByID(ctx context.Context, id string) (*types.Student, error) {
	return s.findOne(ctx, "FindByID", "id = ?", id)
}

func (s *SQLite) FindByEmail(ctx context.Context, email string) (*types.Student, error) {
	return s.findOne(ctx, "FindByEmail", "email = ?", email)
}

func (s *SQLite) FindByCPF(ctx context.Context, cpf string) (*types.Student, error) {
	return s.findOne(ctx, "FindByCPF", "cpf = ?", cpf)
}

// findOne returns the single active student matching cond, or nil.
// sql.ErrNoRows is the sentinel for "nothing matched"; here it simply
// means absent, which is not an error.
func (s *SQLite) findOne(ctx context.Context, op, cond string, arg any) (*types.Student, error) {
	row := s.Db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM students WHERE "+cond+" AND is_active = 1 LIMIT 1",
		arg,
	)

	student, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: scan: %w", op, err)
	}
	return student, nil
}

func (s *SQLite) Exists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "Exists", "id = ?", id)
}

func (s *SQLite) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "EmailExists", "email = ?", email)
}

func (s *SQLite) CPFExists(ctx context.Context, cpf string) (bool, error) {
	return s.exists(ctx, "CPFExists", "cpf = ?", cpf)
}

func (s *SQLite) exists(ctx context.Context, op, cond string, arg any) (bool, error) {
	var found bool
	err := s.Db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM students WHERE "+cond+" AND is_active = 1)",
		arg,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("%s: scan: %w", op, err)
	}
	return found, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Search returns one page of active students ordered by name.
//
// Two queries run against the same filter: COUNT(*) for the total and a
// LIMIT/OFFSET select for the page itself. The search term is matched as
// a case-insensitive substring of name, email or CPF; LIKE wildcards in
// the term are escaped so "50%" means the literal text "50%".
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Search(ctx context.Context, pageNumber, pageSize int, searchTerm string) (types.Page[types.Student], error) {
	pageNumber, pageSize = storage.Normalize(pageNumber, pageSize)

	where := "is_active = 1"
	var args []any
	if term := strings.TrimSpace(searchTerm); term != "" {
		where += ` AND (lower(name) LIKE ? ESCAPE '\' OR lower(email) LIKE ? ESCAPE '\' OR cpf LIKE ? ESCAPE '\')`
		pattern := storage.LikePattern(term)
		args = append(args, pattern, pattern, pattern)
	}

	page := types.Page[types.Student]{
		Items:      make([]types.Student, 0),
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}

	if err := s.Db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM students WHERE "+where, args...,
	).Scan(&page.TotalCount); err != nil {
		return types.Page[types.Student]{}, fmt.Errorf("Search: count: %w", err)
	}

	rows, err := s.Db.QueryContext(ctx,
		"SELECT "+columns+" FROM students WHERE "+where+" ORDER BY name ASC, id ASC LIMIT ? OFFSET ?",
		append(args, pageSize, storage.Offset(pageNumber, pageSize))...,
	)
	if err != nil {
		return types.Page[types.Student]{}, fmt.Errorf("Search: query: %w", err)
	}
	defer rows.Close() // must close rows to free the DB connection

	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return types.Page[types.Student]{}, fmt.Errorf("Search: scan row: %w", err)
		}
		page.Items = append(page.Items, *student)
	}
	if err := rows.Err(); err != nil {
		return types.Page[types.Student]{}, fmt.Errorf("Search: rows iteration: %w", err)
	}

	return page, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Insert adds a new row. The student arrives fully stamped (id,
// created_at, is_active) by the service.
//
// Placeholders (?) keep user input out of the SQL text: the driver sends
// the query and the values separately, so a name like
// "'; DROP TABLE students; --" is stored as plain data.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Insert(ctx context.Context, student *types.Student) (*types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO students ("+columns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return nil, fmt.Errorf("Insert: prepare: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		student.ID,
		student.Name,
		student.Email,
		student.CPF,
		student.BirthDate.Format(types.DateLayout),
		student.Phone,
		student.Address,
		formatTime(student.CreatedAt),
		formatNullTime(student.UpdatedAt),
		student.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrConflict
		}
		return nil, fmt.Errorf("Insert: exec: %w", err)
	}

	return student, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Save writes the editable columns of an active row. id, cpf,
// birth_date, created_at and is_active are not part of the UPDATE, so
// they cannot change no matter what the caller put in the struct.
//
// "AND is_active = 1" makes a save that lost a race with a soft delete
// touch no rows; it reports ErrNotFound instead of reviving the student.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Save(ctx context.Context, student *types.Student) (*types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		UPDATE students
		SET name = ?, email = ?, phone = ?, address = ?, updated_at = ?
		WHERE id = ? AND is_active = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("Save: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx,
		student.Name,
		student.Email,
		student.Phone,
		student.Address,
		formatNullTime(student.UpdatedAt),
		student.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrConflict
		}
		return nil, fmt.Errorf("Save: exec: %w", err)
	}

	if err := requireOneRow(res, "Save"); err != nil {
		return nil, err
	}

	return student, nil
}

// Deactivate is the soft delete. Only an active row matches, so the
// second delete of the same id is ErrNotFound.
func (s *SQLite) Deactivate(ctx context.Context, id string, at time.Time) error {
	res, err := s.Db.ExecContext(ctx,
		"UPDATE students SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1",
		formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("Deactivate: exec: %w", err)
	}
	return requireOneRow(res, "Deactivate")
}

func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row mapping
// ─────────────────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanStudent reads the columns listed in `columns`, in that order.
func scanStudent(row scanner) (*types.Student, error) {
	var (
		student   types.Student
		birthDate string
		createdAt string
		updatedAt sql.NullString
	)

	if err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Email,
		&student.CPF,
		&birthDate,
		&student.Phone,
		&student.Address,
		&createdAt,
		&updatedAt,
		&student.IsActive,
	); err != nil {
		return nil, err
	}

	var err error
	if student.BirthDate, err = types.ParseDate(birthDate); err != nil {
		return nil, err
	}
	if student.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if updatedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, updatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		student.UpdatedAt = &t
	}

	return &student, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
