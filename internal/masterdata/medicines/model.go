package medicines

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medicine is the catalog entry plus its stock aggregate. Rows are created
// by stock import commits; this module only reads them.
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
	Batches         []Batch         `json:"batches,omitempty"`
}

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
