package staff

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/truckops/truckops/internal/masterdata/shared"
	"github.com/truckops/truckops/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]Staff, int, error)
	Get(ctx context.Context, id int64) (Staff, error)
	GetByShortName(ctx context.Context, shortName string) (Staff, error)
	Create(ctx context.Context, s Staff) (Staff, error)
	Update(ctx context.Context, id int64, s Staff) (Staff, error)
	SetStatus(ctx context.Context, id int64, status Status) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const staffColumns = `id, full_name, short_name, phone, status, created_at, updated_at`

func scanStaff(row pgx.Row) (Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.FullName, &s.ShortName, &s.Phone, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Staff{}, ErrStaffNotFound
	}
	return s, err
}

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Staff, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (full_name ILIKE $` + n + ` OR short_name ILIKE $` + n + `)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM staff`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + staffColumns + ` FROM staff` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Staff, error) {
	return scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id))
}

func (r *repository) GetByShortName(ctx context.Context, shortName string) (Staff, error) {
	return scanStaff(r.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE short_name = $1`, shortName))
}

func (r *repository) Create(ctx context.Context, s Staff) (Staff, error) {
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx, `
		INSERT INTO staff (full_name, short_name, phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+staffColumns, s.FullName, s.ShortName, s.Phone, s.Status, now)
	created, err := scanStaff(row)
	if shared.IsUniqueViolation(err) {
		return Staff{}, ErrShortNameTaken
	}
	return created, shared.TranslateStoreError(err)
}

func (r *repository) Update(ctx context.Context, id int64, s Staff) (Staff, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE staff SET full_name = $1, short_name = $2, phone = $3, updated_at = $4
		WHERE id = $5
		RETURNING `+staffColumns, s.FullName, s.ShortName, s.Phone, time.Now().UTC(), id)
	updated, err := scanStaff(row)
	if shared.IsUniqueViolation(err) {
		return Staff{}, ErrShortNameTaken
	}
	return updated, shared.TranslateStoreError(err)
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE staff SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == mdshared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "short_name":
		return "short_name " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "full_name " + dir
	}
}
