package stockimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// presenceRequired are checked on every row regardless of medicine novelty.
var presenceRequired = []Field{
	FieldMedicineName,
	FieldBatchNumber,
	FieldExpiryDate,
	FieldPackQuantity,
	FieldUnitsPerPack,
}

// newMedicineRequired is the stricter set demanded when the medicine is not
// on file. Existing medicines can inherit these from their current record;
// brand-new ones cannot inherit anything.
var newMedicineRequired = []Field{
	FieldStrength,
	FieldManufacturer,
	FieldComposition,
	FieldForm,
	FieldHSNCode,
	FieldMRP,
}

// errInvalidFormat is deliberately generic: the numeric/date validation stage
// reports one message for whichever field failed, while the presence checks
// name the field. See DESIGN.md for the recorded decision.
const errInvalidFormat = "invalid number or date format"

// ReconcileRow classifies one mapped row against the session's inventory
// snapshot. It is a pure function of (row, snapshot, supplier) and mutates
// nothing, so an edited row can be re-reconciled in isolation.
func ReconcileRow(line int, values RowValues, snap Snapshot, supplierName string) ImportRow {
	row := ImportRow{Line: line, Raw: values}

	for _, field := range presenceRequired {
		if strings.TrimSpace(values[field]) == "" {
			return rejected(row, fmt.Sprintf("%s is required", field.Label()))
		}
	}

	row.MedicineName = strings.TrimSpace(values[FieldMedicineName])
	row.BatchNumber = strings.TrimSpace(values[FieldBatchNumber])

	packQty, err := parsePositiveInt(values[FieldPackQuantity])
	if err != nil {
		return rejected(row, errInvalidFormat)
	}
	unitsPerPack, err := parsePositiveInt(values[FieldUnitsPerPack])
	if err != nil {
		return rejected(row, errInvalidFormat)
	}
	row.PackQuantity = packQty
	row.UnitsPerPack = unitsPerPack

	if raw := strings.TrimSpace(values[FieldMRP]); raw != "" {
		mrp, err := parseAmount(raw)
		if err != nil {
			return rejected(row, errInvalidFormat)
		}
		row.MRP = mrp
	}

	expiry, err := ParseDate(values[FieldExpiryDate])
	if err != nil {
		return rejected(row, errInvalidFormat)
	}
	row.ExpiryDate = expiry

	existing, exists := snap.Medicines[NormalizeName(row.MedicineName)]

	row.Strength = backfill(values, FieldStrength, existing.Strength, exists)
	row.Manufacturer = backfill(values, FieldManufacturer, existing.Manufacturer, exists)
	row.Composition = backfill(values, FieldComposition, existing.Composition, exists)
	row.Form = backfill(values, FieldForm, existing.Form, exists)
	row.HSNCode = backfill(values, FieldHSNCode, existing.HSNCode, exists)

	if raw, supplied := values[FieldPurchaseRate]; supplied {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			rate, err := parseAmount(trimmed)
			if err != nil {
				return rejected(row, errInvalidFormat)
			}
			row.PurchaseRate = rate
		}
	} else if exists {
		row.PurchaseRate = lastPurchaseRate(existing)
	}

	if exists {
		if snap.HasBatch(existing.ID, row.BatchNumber) {
			return rejected(row, "duplicate batch for existing medicine")
		}
		row.Disposition = DispositionNewBatch
		row.MedicineID = existing.ID
		return row
	}

	for _, field := range newMedicineRequired {
		if field == FieldMRP {
			if row.MRP.IsZero() && strings.TrimSpace(values[FieldMRP]) == "" {
				return rejected(row, fmt.Sprintf("%s is required for a new medicine", field.Label()))
			}
			continue
		}
		if strings.TrimSpace(values[field]) == "" {
			return rejected(row, fmt.Sprintf("%s is required for a new medicine", field.Label()))
		}
	}
	row.Disposition = DispositionNewMedicine
	return row
}

// DedupeRows catches duplicate (medicine, batch) pairs introduced within the
// same file, which the per-row check against existing inventory cannot see.
// The earlier occurrence keeps whatever disposition it already had; only
// later duplicates are downgraded, a deterministic first-wins tie-break.
func DedupeRows(rows []*ImportRow) {
	seen := make(map[string]int, len(rows))
	for _, row := range rows {
		if row.Disposition == DispositionError {
			continue
		}
		key := dedupeKey(row.MedicineName, row.BatchNumber)
		if first, ok := seen[key]; ok {
			*row = rejected(*row, fmt.Sprintf("duplicate in file: same medicine and batch as line %d", first))
			continue
		}
		seen[key] = row.Line
	}
}

// duplicateOfEarlier reports the line of an earlier accepted row sharing this
// row's (medicine, batch) pair, for single-row re-validation after an edit.
func duplicateOfEarlier(row ImportRow, others []*ImportRow) (int, bool) {
	key := dedupeKey(row.MedicineName, row.BatchNumber)
	for _, other := range others {
		if other.Line >= row.Line || other.Disposition == DispositionError {
			continue
		}
		if dedupeKey(other.MedicineName, other.BatchNumber) == key {
			return other.Line, true
		}
	}
	return 0, false
}

func dedupeKey(medicineName, batchNumber string) string {
	return NormalizeName(medicineName) + "\x00" + NormalizeName(batchNumber)
}

func rejected(row ImportRow, reason string) ImportRow {
	row.Disposition = DispositionError
	row.Error = reason
	row.MedicineID = 0
	return row
}

// backfill honors an explicitly supplied value, blank included, before
// falling back to the matched medicine's current attribute.
func backfill(values RowValues, field Field, existing string, matched bool) string {
	if raw, supplied := values[field]; supplied {
		return strings.TrimSpace(raw)
	}
	if matched {
		return existing
	}
	return ""
}

func lastPurchaseRate(m Medicine) decimal.Decimal {
	if len(m.Batches) == 0 {
		return decimal.Zero
	}
	return m.Batches[len(m.Batches)-1].PurchaseRate
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("stockimport: %d is not positive", n)
	}
	return n, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
}
