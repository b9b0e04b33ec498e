// Package postgres provides a PostgreSQL implementation of
// storage.Storage on top of a pgx connection pool.
//
// It mirrors the sqlite package: same schema shape, same partial unique
// indexes, same search semantics. Native types are used where Postgres
// has them (UUID, DATE, TIMESTAMPTZ, BOOLEAN).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/qapabilities/students-api/internal/config"
	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/types"
)

// schema is idempotent and runs on every New.
const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id         UUID         PRIMARY KEY,
		name       VARCHAR(100) NOT NULL,
		email      VARCHAR(100) NOT NULL,
		cpf        VARCHAR(11)  NOT NULL,
		birth_date DATE         NOT NULL,
		phone      VARCHAR(15)  NOT NULL,
		address    VARCHAR(200) NOT NULL,
		created_at TIMESTAMPTZ  NOT NULL,
		updated_at TIMESTAMPTZ,
		is_active  BOOLEAN      NOT NULL DEFAULT TRUE
	);
	CREATE UNIQUE INDEX IF NOT EXISTS ux_students_active_email ON students (email) WHERE is_active;
	CREATE UNIQUE INDEX IF NOT EXISTS ux_students_active_cpf   ON students (cpf)   WHERE is_active;
	CREATE INDEX        IF NOT EXISTS ix_students_name         ON students (name);
`

const columns = "id::text, name, email, cpf, birth_date, phone, address, created_at, updated_at, is_active"

// uniqueViolation is the SQLSTATE of unique_violation.
const uniqueViolation = "23505"

// Postgres implements storage.Storage.
type Postgres struct {
	pool *pgxpool.Pool
}

// New connects to cfg.DSN, pings the server and applies the schema.
func New(ctx context.Context, cfg config.Postgres) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOOKUPS
// ══════════════════════════════════════════════════════════════════════════════

func (p *Postgres) FindByID(ctx context.Context, id string) (*types.Student, error) {
	return p.findOne(ctx, "FindByID", "id = $1", id)
}

func (p *Postgres) FindByEmail(ctx context.Context, email string) (*types.Student, error) {
	return p.findOne(ctx, "FindByEmail", "email = $1", email)
}

func (p *Postgres) FindByCPF(ctx context.Context, cpf string) (*types.Student, error) {
	return p.findOne(ctx, "FindByCPF", "cpf = $1", cpf)
}

func (p *Postgres) findOne(ctx context.Context, op, cond string, arg any) (*types.Student, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+columns+" FROM students WHERE "+cond+" AND is_active LIMIT 1",
		arg,
	)

	student, err := scanStudent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return student, nil
}

func (p *Postgres) Exists(ctx context.Context, id string) (bool, error) {
	return p.exists(ctx, "Exists", "id = $1", id)
}

func (p *Postgres) EmailExists(ctx context.Context, email string) (bool, error) {
	return p.exists(ctx, "EmailExists", "email = $1", email)
}

func (p *Postgres) CPFExists(ctx context.Context, cpf string) (bool, error) {
	return p.exists(ctx, "CPFExists", "cpf = $1", cpf)
}

func (p *Postgres) exists(ctx context.Context, op, cond string, arg any) (bool, error) {
	var found bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM students WHERE "+cond+" AND is_active)",
		arg,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return found, nil
}

// Search runs the count and the page query concurrently on the pool.
// Matching is case-insensitive on name and email (ILIKE) and a plain
// substring match on CPF.
func (p *Postgres) Search(ctx context.Context, pageNumber, pageSize int, searchTerm string) (types.Page[types.Student], error) {
	pageNumber, pageSize = storage.Normalize(pageNumber, pageSize)

	where := "is_active"
	var args []any
	if term := strings.TrimSpace(searchTerm); term != "" {
		where += ` AND (name ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\' OR cpf LIKE $1 ESCAPE '\')`
		args = append(args, storage.LikePattern(term))
	}
	n := len(args)

	page := types.Page[types.Student]{
		Items:      make([]types.Student, 0),
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var total int64
		if err := p.pool.QueryRow(gctx, "SELECT COUNT(*) FROM students WHERE "+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("Search: count: %w", err)
		}
		page.TotalCount = int(total)
		return nil
	})

	g.Go(func() error {
		query := fmt.Sprintf(
			"SELECT %s FROM students WHERE %s ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d",
			columns, where, n+1, n+2,
		)
		pageArgs := append(append([]any{}, args...), pageSize, storage.Offset(pageNumber, pageSize))

		rows, err := p.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("Search: query: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			student, err := scanStudent(rows)
			if err != nil {
				return fmt.Errorf("Search: scan row: %w", err)
			}
			page.Items = append(page.Items, *student)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("Search: rows iteration: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return types.Page[types.Student]{}, err
	}
	return page, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITES
// ══════════════════════════════════════════════════════════════════════════════

func (p *Postgres) Insert(ctx context.Context, student *types.Student) (*types.Student, error) {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO students (id, name, email, cpf, birth_date, phone, address, created_at, updated_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		student.ID,
		student.Name,
		student.Email,
		student.CPF,
		student.BirthDate,
		student.Phone,
		student.Address,
		student.CreatedAt,
		student.UpdatedAt,
		student.IsActive,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, storage.ErrConflict
		}
		return nil, fmt.Errorf("Insert: %w", err)
	}
	return student, nil
}

// Save updates only the editable columns of an active row. A save that
// raced with a soft delete matches nothing and reports ErrNotFound.
func (p *Postgres) Save(ctx context.Context, student *types.Student) (*types.Student, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE students
		SET name = $1, email = $2, phone = $3, address = $4, updated_at = $5
		WHERE id = $6 AND is_active`,
		student.Name,
		student.Email,
		student.Phone,
		student.Address,
		student.UpdatedAt,
		student.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, storage.ErrConflict
		}
		return nil, fmt.Errorf("Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, storage.ErrNotFound
	}
	return student, nil
}

// Deactivate soft-deletes an active row.
func (p *Postgres) Deactivate(ctx context.Context, id string, at time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE students SET is_active = FALSE, updated_at = $1 WHERE id = $2 AND is_active`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func scanStudent(row pgx.Row) (*types.Student, error) {
	var student types.Student
	if err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Email,
		&student.CPF,
		&student.BirthDate,
		&student.Phone,
		&student.Address,
		&student.CreatedAt,
		&student.UpdatedAt,
		&student.IsActive,
	); err != nil {
		return nil, err
	}

	// pgx returns timestamptz in the local zone.
	student.BirthDate = student.BirthDate.UTC()
	student.CreatedAt = student.CreatedAt.UTC()
	if student.UpdatedAt != nil {
		t := student.UpdatedAt.UTC()
		student.UpdatedAt = &t
	}
	return &student, nil
}

// IsUniqueViolation checks if the error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
