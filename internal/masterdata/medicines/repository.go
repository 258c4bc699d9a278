package medicines

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/clinova/internal/masterdata/shared"
	"github.com/clinova/clinova/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters, lowStock bool) ([]Medicine, int, error)
	Get(ctx context.Context, id int64) (Medicine, error)
	ExpiringBatches(ctx context.Context, before time.Time) ([]Batch, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const medicineColumns = `id, name, strength, manufacturer, composition, form, hsn_code, mrp, min_stock_level, total_stock_units`

func (r *repository) List(ctx context.Context, filters shared.ListFilters, lowStock bool) ([]Medicine, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR composition ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if lowStock {
		where += ` AND total_stock_units <= min_stock_level`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM medicines`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + medicineColumns + ` FROM medicines` + where +
		` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, m)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Medicine, error) {
	row := r.db.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id)
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Medicine{}, httpx.ErrNotFound
		}
		return Medicine{}, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE medicine_id = $1 ORDER BY expiry_date, id`, id)
	if err != nil {
		return Medicine{}, err
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return Medicine{}, err
		}
		m.Batches = append(m.Batches, b)
	}
	return m, rows.Err()
}

const batchColumns = `id, medicine_id, batch_number, purchase_date, expiry_date, pack_quantity, pack_size, loose_quantity, purchase_rate, mrp, supplier_id`

// ExpiringBatches returns stocked batches expiring before the cutoff, soonest
// first.
func (r *repository) ExpiringBatches(ctx context.Context, before time.Time) ([]Batch, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+batchColumns+` FROM batches
		 WHERE expiry_date < $1 AND (pack_quantity > 0 OR loose_quantity > 0)
		 ORDER BY expiry_date, id`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Strength, &m.Manufacturer, &m.Composition,
		&m.Form, &m.HSNCode, &m.MRP, &m.MinStockLevel, &m.TotalStockUnits)
	return m, err
}

func scanBatch(row rowScanner) (Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.MedicineID, &b.BatchNumber, &b.PurchaseDate, &b.ExpiryDate,
		&b.PackQuantity, &b.PackSize, &b.LooseQuantity, &b.PurchaseRate, &b.MRP, &b.SupplierID)
	return b, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "name":
		return "name " + dir
	case "stock":
		return "total_stock_units " + dir
	default:
		return "name " + dir
	}
}
