package stockimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/clinova/clinova/internal/platform/db"
)

// RepositoryPort abstracts persistence for the import service.
type RepositoryPort interface {
	// LoadSnapshot captures existing inventory once at session start.
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	// GetTemplate loads a supplier's saved column mapping.
	GetTemplate(ctx context.Context, supplierID int64) (MappingTemplate, error)
	// SaveTemplate overwrites the supplier's mapping template.
	SaveTemplate(ctx context.Context, supplierID int64, columns ColumnMapping) error
	// ResolveSupplier matches a supplier name outside any transaction, used
	// for template lookup at session start.
	ResolveSupplier(ctx context.Context, name string) (int64, error)
	// WithTx runs the commit inside one all-or-nothing transaction.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside a commit transaction.
type TxRepository interface {
	ResolveSupplier(ctx context.Context, name string) (int64, error)
	InsertMedicine(ctx context.Context, m Medicine) (int64, error)
	InsertBatch(ctx context.Context, b Batch) (int64, error)
	ListBatches(ctx context.Context, medicineID int64) ([]Batch, error)
	UpdateMedicineStock(ctx context.Context, medicineID int64, totalUnits int) error
	GetMedicine(ctx context.Context, medicineID int64) (Medicine, error)
}

// Repository persists import data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const medicineColumns = `id, name, strength, manufacturer, composition, form, hsn_code, mrp, min_stock_level, total_stock_units`

// LoadSnapshot reads medicines and batch-number sets concurrently. The two
// reads are independent; a torn view between them is tolerated for the same
// reason the whole snapshot may go stale, commit is the conflict authority.
func (r *Repository) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Medicines:    make(map[string]Medicine),
		BatchNumbers: make(map[int64]map[string]struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, `SELECT `+medicineColumns+` FROM medicines`)
		if err != nil {
			return fmt.Errorf("stockimport: load medicines: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMedicine(rows)
			if err != nil {
				return err
			}
			snap.Medicines[NormalizeName(m.Name)] = m
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, `SELECT medicine_id, batch_number FROM batches`)
		if err != nil {
			return fmt.Errorf("stockimport: load batch numbers: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var medicineID int64
			var batchNumber string
			if err := rows.Scan(&medicineID, &batchNumber); err != nil {
				return err
			}
			set, ok := snap.BatchNumbers[medicineID]
			if !ok {
				set = make(map[string]struct{})
				snap.BatchNumbers[medicineID] = set
			}
			set[NormalizeName(batchNumber)] = struct{}{}
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (r *Repository) GetTemplate(ctx context.Context, supplierID int64) (MappingTemplate, error) {
	var raw []byte
	template := MappingTemplate{SupplierID: supplierID}
	err := r.pool.QueryRow(ctx,
		`SELECT columns, updated_at FROM import_mapping_templates WHERE supplier_id = $1`,
		supplierID,
	).Scan(&raw, &template.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MappingTemplate{}, ErrTemplateNotFound
		}
		return MappingTemplate{}, fmt.Errorf("stockimport: get template: %w", err)
	}
	if err := json.Unmarshal(raw, &template.Columns); err != nil {
		return MappingTemplate{}, fmt.Errorf("stockimport: decode template: %w", err)
	}
	return template, nil
}

func (r *Repository) SaveTemplate(ctx context.Context, supplierID int64, columns ColumnMapping) error {
	raw, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("stockimport: encode template: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO import_mapping_templates (supplier_id, columns, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (supplier_id) DO UPDATE SET columns = EXCLUDED.columns, updated_at = EXCLUDED.updated_at`,
		supplierID, raw, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("stockimport: save template: %w", err)
	}
	return nil
}

func (r *Repository) ResolveSupplier(ctx context.Context, name string) (int64, error) {
	return resolveSupplier(ctx, r.pool, name)
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) ResolveSupplier(ctx context.Context, name string) (int64, error) {
	return resolveSupplier(ctx, r.tx, name)
}

func (r *txRepo) InsertMedicine(ctx context.Context, m Medicine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO medicines (name, strength, manufacturer, composition, form, hsn_code, mrp, min_stock_level, total_stock_units)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
		 RETURNING id`,
		m.Name, m.Strength, m.Manufacturer, m.Composition, m.Form, m.HSNCode, m.MRP, m.MinStockLevel,
	).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err, "stockimport: insert medicine")
	}
	return id, nil
}

func (r *txRepo) InsertBatch(ctx context.Context, b Batch) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO batches (medicine_id, batch_number, purchase_date, expiry_date, pack_quantity, pack_size, loose_quantity, purchase_rate, mrp, supplier_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		b.MedicineID, b.BatchNumber, b.PurchaseDate, b.ExpiryDate, b.PackQuantity, b.PackSize, b.LooseQuantity, b.PurchaseRate, b.MRP, b.SupplierID,
	).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err, "stockimport: insert batch")
	}
	return id, nil
}

func (r *txRepo) ListBatches(ctx context.Context, medicineID int64) ([]Batch, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT id, medicine_id, batch_number, purchase_date, expiry_date, pack_quantity, pack_size, loose_quantity, purchase_rate, mrp, supplier_id
		 FROM batches WHERE medicine_id = $1 ORDER BY id`,
		medicineID,
	)
	if err != nil {
		return nil, fmt.Errorf("stockimport: list batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		err := rows.Scan(&b.ID, &b.MedicineID, &b.BatchNumber, &b.PurchaseDate, &b.ExpiryDate,
			&b.PackQuantity, &b.PackSize, &b.LooseQuantity, &b.PurchaseRate, &b.MRP, &b.SupplierID)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (r *txRepo) UpdateMedicineStock(ctx context.Context, medicineID int64, totalUnits int) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE medicines SET total_stock_units = $1 WHERE id = $2`,
		totalUnits, medicineID,
	)
	if err != nil {
		return fmt.Errorf("stockimport: update stock: %w", err)
	}
	return nil
}

func (r *txRepo) GetMedicine(ctx context.Context, medicineID int64) (Medicine, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, medicineID)
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Medicine{}, fmt.Errorf("stockimport: medicine %d vanished mid-commit", medicineID)
		}
		return Medicine{}, err
	}
	m.Batches, err = r.ListBatches(ctx, medicineID)
	return m, err
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

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Suppliers match by the same trim-and-lower rule medicines use.
func resolveSupplier(ctx context.Context, q querier, name string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx,
		`SELECT id FROM suppliers WHERE lower(trim(name)) = $1`,
		NormalizeName(name),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSupplierNotResolved
		}
		return 0, fmt.Errorf("stockimport: resolve supplier: %w", err)
	}
	return id, nil
}

func mapUniqueViolation(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateBatch
	}
	return fmt.Errorf("%s: %w", op, err)
}
