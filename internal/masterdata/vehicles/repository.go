package vehicles

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
	List(ctx context.Context, filters mdshared.ListFilters) ([]Vehicle, int, error)
	Get(ctx context.Context, id int64) (Vehicle, error)
	Create(ctx context.Context, v Vehicle) (Vehicle, error)
	Update(ctx context.Context, id int64, v Vehicle) (Vehicle, error)
	SetStatus(ctx context.Context, id int64, status Status) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const vehicleColumns = `id, license_plate, description, status, created_at, updated_at`

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.LicensePlate, &v.Description, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vehicle{}, ErrVehicleNotFound
	}
	return v, err
}

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Vehicle, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND license_plate ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if filters.SortDir == mdshared.SortDesc {
		dir = "DESC"
	}
	query := `SELECT ` + vehicleColumns + ` FROM vehicles` + where + ` ORDER BY license_plate ` + dir
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Vehicle, error) {
	return scanVehicle(r.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, v Vehicle) (Vehicle, error) {
	now := time.Now().UTC()
	created, err := scanVehicle(r.db.QueryRow(ctx, `
		INSERT INTO vehicles (license_plate, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING `+vehicleColumns, v.LicensePlate, v.Description, v.Status, now))
	if shared.IsUniqueViolation(err) {
		return Vehicle{}, ErrPlateTaken
	}
	return created, shared.TranslateStoreError(err)
}

func (r *repository) Update(ctx context.Context, id int64, v Vehicle) (Vehicle, error) {
	updated, err := scanVehicle(r.db.QueryRow(ctx, `
		UPDATE vehicles SET license_plate = $1, description = $2, updated_at = $3
		WHERE id = $4
		RETURNING `+vehicleColumns, v.LicensePlate, v.Description, time.Now().UTC(), id))
	if shared.IsUniqueViolation(err) {
		return Vehicle{}, ErrPlateTaken
	}
	return updated, shared.TranslateStoreError(err)
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE vehicles SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVehicleNotFound
	}
	return nil
}
