package debt

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/truckops/truckops/internal/shared"
)

// Repository persists debts and payments.
type Repository interface {
	// Add increments the (customer, year) debt by delta atomically, creating
	// the row when missing.
	Add(ctx context.Context, customerID int64, year int, delta decimal.Decimal) (Debt, error)
	ListDebts(ctx context.Context, customerID *int64) ([]Debt, error)
	CreatePayment(ctx context.Context, p Payment) (Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	ListPayments(ctx context.Context, customerID *int64) ([]Payment, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL debt repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const (
	debtColumns    = `id, customer_id, year, amount, created_at, updated_at`
	paymentColumns = `id, customer_id, amount, payment_date, year, notes, created_at`
)

func scanDebt(row pgx.Row) (Debt, error) {
	var d Debt
	err := row.Scan(&d.ID, &d.CustomerID, &d.Year, &d.Amount, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.CustomerID, &p.Amount, &p.Date, &p.Year, &p.Notes, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

func (r *repository) Add(ctx context.Context, customerID int64, year int, delta decimal.Decimal) (Debt, error) {
	now := time.Now().UTC()
	d, err := scanDebt(r.db.QueryRow(ctx, `
		INSERT INTO debts (customer_id, year, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (customer_id, year)
		DO UPDATE SET amount = debts.amount + EXCLUDED.amount, updated_at = EXCLUDED.updated_at
		RETURNING `+debtColumns, customerID, year, delta, now))
	return d, shared.TranslateStoreError(err)
}

func (r *repository) ListDebts(ctx context.Context, customerID *int64) ([]Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts`
	args := []any{}
	if customerID != nil {
		args = append(args, *customerID)
		query += ` WHERE customer_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY customer_id, year DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) CreatePayment(ctx context.Context, p Payment) (Payment, error) {
	created, err := scanPayment(r.db.QueryRow(ctx, `
		INSERT INTO payments (customer_id, amount, payment_date, year, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns, p.CustomerID, p.Amount, p.Date, p.Year, p.Notes, time.Now().UTC()))
	return created, shared.TranslateStoreError(err)
}

func (r *repository) DeletePayment(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *repository) ListPayments(ctx context.Context, customerID *int64) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`
	args := []any{}
	if customerID != nil {
		args = append(args, *customerID)
		query += ` WHERE customer_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY payment_date DESC, id DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const fileColumns = `id, customer_id, year, file_name, content_type, size, notes, uploaded_by, uploaded_at`

func scanFile(row pgx.Row, extra ...any) (File, error) {
	var f File
	dest := append([]any{&f.ID, &f.CustomerID, &f.Year, &f.FileName, &f.ContentType, &f.Size, &f.Notes, &f.UploadedBy, &f.UploadedAt}, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return File{}, ErrFileNotFound
	}
	return f, err
}

type fileRepository struct {
	db *pgxpool.Pool
}

// NewFileRepository returns the PostgreSQL attachment repository. Bytes live
// in a bytea column next to the metadata.
func NewFileRepository(pool *pgxpool.Pool) FileRepository {
	return &fileRepository{db: pool}
}

func (r *fileRepository) CreateFile(ctx context.Context, f File, content []byte) (File, error) {
	created, err := scanFile(r.db.QueryRow(ctx, `
		INSERT INTO debt_files (customer_id, year, file_name, content_type, size, notes, uploaded_by, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+fileColumns,
		f.CustomerID, f.Year, f.FileName, f.ContentType, f.Size, f.Notes, f.UploadedBy, content))
	return created, shared.TranslateStoreError(err)
}

func (r *fileRepository) ListFiles(ctx context.Context, customerID int64, year *int) ([]File, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+fileColumns+` FROM debt_files
		WHERE customer_id = $1 AND ($2::int IS NULL OR year = $2)
		ORDER BY uploaded_at DESC, id DESC`, customerID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *fileRepository) GetFile(ctx context.Context, id int64) (File, []byte, error) {
	var content []byte
	f, err := scanFile(r.db.QueryRow(ctx, `SELECT `+fileColumns+`, content FROM debt_files WHERE id = $1`, id), &content)
	if err != nil {
		return File{}, nil, err
	}
	return f, content, nil
}

func (r *fileRepository) DeleteFile(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM debt_files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}
