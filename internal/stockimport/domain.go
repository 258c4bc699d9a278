package stockimport

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Disposition classifies one import row after reconciliation.
type Disposition string

const (
	// DispositionNewMedicine means the row introduces a medicine not yet on file.
	DispositionNewMedicine Disposition = "new_medicine"
	// DispositionNewBatch means the row adds a batch to an existing medicine.
	DispositionNewBatch Disposition = "new_batch"
	// DispositionError means the row was rejected with a reason.
	DispositionError Disposition = "error"
)

// Field identifies one of the logical columns an import file must map to.
type Field string

const (
	FieldMedicineName Field = "medicineName"
	FieldStrength     Field = "strength"
	FieldManufacturer Field = "manufacturer"
	FieldComposition  Field = "composition"
	FieldForm         Field = "form"
	FieldHSNCode      Field = "hsnCode"
	FieldBatchNumber  Field = "batchNumber"
	FieldExpiryDate   Field = "expiryDate"
	FieldPackQuantity Field = "packQuantity"
	FieldUnitsPerPack Field = "unitsPerPack"
	FieldPurchaseRate Field = "purchaseRate"
	FieldMRP          Field = "mrp"
)

// AllFields lists every logical field in mapping order.
var AllFields = []Field{
	FieldMedicineName,
	FieldStrength,
	FieldManufacturer,
	FieldComposition,
	FieldForm,
	FieldHSNCode,
	FieldBatchNumber,
	FieldExpiryDate,
	FieldPackQuantity,
	FieldUnitsPerPack,
	FieldPurchaseRate,
	FieldMRP,
}

// fieldLabels are the user-facing canonical labels, also the auto-map anchors.
var fieldLabels = map[Field]string{
	FieldMedicineName: "Medicine Name",
	FieldStrength:     "Strength",
	FieldManufacturer: "Manufacturer",
	FieldComposition:  "Composition",
	FieldForm:         "Form",
	FieldHSNCode:      "HSN Code",
	FieldBatchNumber:  "Batch Number",
	FieldExpiryDate:   "Expiry Date",
	FieldPackQuantity: "Pack Quantity",
	FieldUnitsPerPack: "Units Per Pack",
	FieldPurchaseRate: "Purchase Rate",
	FieldMRP:          "MRP",
}

// Label returns the user-facing name of a field.
func (f Field) Label() string {
	if label, ok := fieldLabels[f]; ok {
		return label
	}
	return string(f)
}

// Medicine is identified by its trimmed, lower-cased name. No SKU exists at
// import time, so the normalized name is the only identity signal.
type Medicine struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Strength        string          `json:"strength"`
	Manufacturer    string          `json:"manufacturer"`
	Composition     string          `json:"composition"`
	Form            string          `json:"form"`
	HSNCode         string          `json:"hsnCode"`
	MRP             decimal.Decimal `json:"mrp"`
	MinStockLevel   int             `json:"minStockLevel"`
	TotalStockUnits int             `json:"totalStockInUnits"`
	Batches         []Batch         `json:"batches"`
}

// Batch is unique per (medicine, trimmed lower-cased batch number).
type Batch struct {
	ID            int64           `json:"id"`
	MedicineID    int64           `json:"medicineId"`
	BatchNumber   string          `json:"batchNumber"`
	PurchaseDate  time.Time       `json:"purchaseDate"`
	ExpiryDate    time.Time       `json:"expiryDate"`
	PackQuantity  int             `json:"packQuantity"`
	PackSize      int             `json:"packSize"`
	LooseQuantity int             `json:"looseQuantity"`
	PurchaseRate  decimal.Decimal `json:"purchaseRate"`
	MRP           decimal.Decimal `json:"mrp"`
	SupplierID    int64           `json:"supplierId"`
}

// TotalStockUnits derives a medicine's aggregate stock from its batch list.
// The aggregate is never authoritative on its own.
func TotalStockUnits(batches []Batch) int {
	total := 0
	for _, b := range batches {
		total += b.PackQuantity*b.PackSize + b.LooseQuantity
	}
	return total
}

// NormalizeName produces the identity key for medicines and batch numbers.
// This exact rule (trim, then lower-case) is a load-bearing business rule.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RowValues holds one row's raw cell values keyed by logical field. Key
// presence means the row explicitly supplied the value, even when it is an
// empty string; an explicit blank is honored during back-fill.
type RowValues map[Field]string

// ImportRow is the transient reconciliation result for one data row.
type ImportRow struct {
	Line        int         `json:"line"`
	Disposition Disposition `json:"disposition"`

	MedicineName string          `json:"medicineName"`
	Strength     string          `json:"strength"`
	Manufacturer string          `json:"manufacturer"`
	Composition  string          `json:"composition"`
	Form         string          `json:"form"`
	HSNCode      string          `json:"hsnCode"`
	BatchNumber  string          `json:"batchNumber"`
	ExpiryDate   time.Time       `json:"expiryDate"`
	PackQuantity int             `json:"packQuantity"`
	UnitsPerPack int             `json:"unitsPerPack"`
	PurchaseRate decimal.Decimal `json:"purchaseRate"`
	MRP          decimal.Decimal `json:"mrp"`

	// MedicineID references the matched medicine when the disposition is
	// new_batch.
	MedicineID int64 `json:"medicineId,omitempty"`
	// Error carries the rejection reason when the disposition is error.
	Error string `json:"error,omitempty"`

	// Raw keeps the mapped cell values so a single field can be edited and
	// the row reconciled again without re-reading the file.
	Raw RowValues `json:"-"`
}

// Accepted reports whether the row survives to commit.
func (r ImportRow) Accepted() bool {
	return r.Disposition == DispositionNewMedicine || r.Disposition == DispositionNewBatch
}

// Snapshot is the fixed view of existing inventory taken once per import
// session. Reconciliation is a pure function of (row, snapshot, supplier);
// the snapshot is never refreshed mid-session, so conflicts with concurrent
// writers surface only at commit.
type Snapshot struct {
	// Medicines indexes existing medicines by normalized name.
	Medicines map[string]Medicine
	// BatchNumbers indexes normalized batch-number sets by medicine ID.
	BatchNumbers map[int64]map[string]struct{}
}

// HasBatch reports whether a medicine already owns the given batch number.
func (s Snapshot) HasBatch(medicineID int64, batchNumber string) bool {
	set, ok := s.BatchNumbers[medicineID]
	if !ok {
		return false
	}
	_, ok = set[NormalizeName(batchNumber)]
	return ok
}

var (
	// ErrNotADate is returned when a string cannot be read as a calendar date.
	ErrNotADate = errors.New("stockimport: not a date")
	// ErrSessionNotFound indicates an unknown or expired import session.
	ErrSessionNotFound = errors.New("stockimport: import session not found")
	// ErrRowNotFound indicates an unknown line number within a session.
	ErrRowNotFound = errors.New("stockimport: import row not found")
	// ErrUnknownField indicates an edit against a field outside the logical set.
	ErrUnknownField = errors.New("stockimport: unknown field")
	// ErrNoAcceptedRows rejects a commit that would persist nothing.
	ErrNoAcceptedRows = errors.New("stockimport: no accepted rows to commit")
	// ErrSupplierNotResolved aborts the whole commit when the supplier name
	// does not match any supplier on file.
	ErrSupplierNotResolved = errors.New("stockimport: supplier could not be resolved")
	// ErrDuplicateBatch surfaces the store uniqueness constraint on
	// (medicine, batch number) hit by a concurrent commit.
	ErrDuplicateBatch = errors.New("stockimport: duplicate batch for medicine")
	// ErrTemplateNotFound indicates no saved mapping template for a supplier.
	ErrTemplateNotFound = errors.New("stockimport: mapping template not found")
	// ErrEmptyFile indicates an upload without a header row.
	ErrEmptyFile = errors.New("stockimport: file has no header row")
)
