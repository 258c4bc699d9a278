package stockimport

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func snapshotWith(medicines ...Medicine) Snapshot {
	snap := Snapshot{
		Medicines:    make(map[string]Medicine),
		BatchNumbers: make(map[int64]map[string]struct{}),
	}
	for _, m := range medicines {
		snap.Medicines[NormalizeName(m.Name)] = m
		set := make(map[string]struct{})
		for _, b := range m.Batches {
			set[NormalizeName(b.BatchNumber)] = struct{}{}
		}
		snap.BatchNumbers[m.ID] = set
	}
	return snap
}

func paracetamolRow() RowValues {
	return RowValues{
		FieldMedicineName: "Paracetamol 500mg",
		FieldBatchNumber:  "P001",
		FieldExpiryDate:   "2025-09-30",
		FieldPackQuantity: "15",
		FieldUnitsPerPack: "10",
		FieldMRP:          "30",
	}
}

func TestReconcileNewBatchForExistingMedicine(t *testing.T) {
	snap := snapshotWith(Medicine{ID: 7, Name: "paracetamol 500mg", Strength: "500mg", Manufacturer: "Acme"})

	row := ReconcileRow(2, paracetamolRow(), snap, "MediSupply")
	require.Equal(t, DispositionNewBatch, row.Disposition)
	require.EqualValues(t, 7, row.MedicineID)
	require.Equal(t, 15, row.PackQuantity)
	require.Equal(t, 10, row.UnitsPerPack)
	require.Equal(t, "2025-09-30", CanonicalDate(row.ExpiryDate))
	// Attributes the row never supplied are inherited from the match.
	require.Equal(t, "500mg", row.Strength)
	require.Equal(t, "Acme", row.Manufacturer)
}

func TestReconcileDuplicateBatchAgainstInventory(t *testing.T) {
	snap := snapshotWith(Medicine{
		ID:      7,
		Name:    "paracetamol 500mg",
		Batches: []Batch{{BatchNumber: "P001"}},
	})

	row := ReconcileRow(2, paracetamolRow(), snap, "MediSupply")
	require.Equal(t, DispositionError, row.Disposition)
	require.Equal(t, "duplicate batch for existing medicine", row.Error)
}

func TestReconcileNewMedicineDemandsFullAttributes(t *testing.T) {
	values := paracetamolRow()
	values[FieldManufacturer] = "Acme"
	values[FieldComposition] = "Paracetamol"
	values[FieldForm] = "Tablet"
	values[FieldHSNCode] = "3004"
	// Strength deliberately absent.

	row := ReconcileRow(2, values, snapshotWith(), "MediSupply")
	require.Equal(t, DispositionError, row.Disposition)
	require.Contains(t, row.Error, "Strength")
}

func TestReconcileNewMedicineComplete(t *testing.T) {
	values := paracetamolRow()
	values[FieldStrength] = "500mg"
	values[FieldManufacturer] = "Acme"
	values[FieldComposition] = "Paracetamol"
	values[FieldForm] = "Tablet"
	values[FieldHSNCode] = "3004"

	row := ReconcileRow(2, values, snapshotWith(), "MediSupply")
	require.Equal(t, DispositionNewMedicine, row.Disposition)
	require.Zero(t, row.MedicineID)
}

func TestReconcileMissingRequiredFieldNamesIt(t *testing.T) {
	values := paracetamolRow()
	delete(values, FieldBatchNumber)

	row := ReconcileRow(2, values, snapshotWith(), "MediSupply")
	require.Equal(t, DispositionError, row.Disposition)
	require.Equal(t, "Batch Number is required", row.Error)
}

func TestReconcileBadNumberOrDateIsGeneric(t *testing.T) {
	bad := []RowValues{}

	v := paracetamolRow()
	v[FieldPackQuantity] = "fifteen"
	bad = append(bad, v)

	v = paracetamolRow()
	v[FieldUnitsPerPack] = "0"
	bad = append(bad, v)

	v = paracetamolRow()
	v[FieldMRP] = "thirty"
	bad = append(bad, v)

	v = paracetamolRow()
	v[FieldExpiryDate] = "31-02-2025"
	bad = append(bad, v)

	for i, values := range bad {
		row := ReconcileRow(2, values, snapshotWith(), "MediSupply")
		require.Equal(t, DispositionError, row.Disposition, "case %d", i)
		require.Equal(t, "invalid number or date format", row.Error, "case %d", i)
	}
}

func TestReconcileHonorsExplicitBlank(t *testing.T) {
	snap := snapshotWith(Medicine{ID: 7, Name: "paracetamol 500mg", Manufacturer: "Acme", Strength: "500mg"})

	values := paracetamolRow()
	values[FieldManufacturer] = "" // explicit blank, must not be replaced

	row := ReconcileRow(2, values, snap, "MediSupply")
	require.Equal(t, DispositionNewBatch, row.Disposition)
	require.Empty(t, row.Manufacturer)
	require.Equal(t, "500mg", row.Strength)
}

func TestReconcileInheritsPurchaseRate(t *testing.T) {
	rate := decimal.RequireFromString("42.50")
	snap := snapshotWith(Medicine{
		ID:      7,
		Name:    "paracetamol 500mg",
		Batches: []Batch{{BatchNumber: "OLD1", PurchaseRate: rate}},
	})

	row := ReconcileRow(2, paracetamolRow(), snap, "MediSupply")
	require.Equal(t, DispositionNewBatch, row.Disposition)
	require.True(t, row.PurchaseRate.Equal(rate))
}

func TestDedupeRowsFirstWins(t *testing.T) {
	snap := snapshotWith(Medicine{ID: 7, Name: "paracetamol 500mg"})

	first := ReconcileRow(2, paracetamolRow(), snap, "MediSupply")
	duplicate := paracetamolRow()
	duplicate[FieldBatchNumber] = " p001 " // normalizes to the same batch
	second := ReconcileRow(3, duplicate, snap, "MediSupply")
	other := paracetamolRow()
	other[FieldBatchNumber] = "P002"
	third := ReconcileRow(4, other, snap, "MediSupply")

	rows := []*ImportRow{&first, &second, &third}
	DedupeRows(rows)

	require.Equal(t, DispositionNewBatch, first.Disposition)
	require.Equal(t, DispositionError, second.Disposition)
	require.Contains(t, second.Error, "line 2")
	require.Equal(t, DispositionNewBatch, third.Disposition)
}

func TestDedupeSkipsErrorRows(t *testing.T) {
	snap := snapshotWith()

	bad := paracetamolRow()
	delete(bad, FieldExpiryDate)
	errored := ReconcileRow(2, bad, snap, "MediSupply")

	good := paracetamolRow()
	good[FieldStrength] = "500mg"
	good[FieldManufacturer] = "Acme"
	good[FieldComposition] = "Paracetamol"
	good[FieldForm] = "Tablet"
	good[FieldHSNCode] = "3004"
	accepted := ReconcileRow(3, good, snap, "MediSupply")

	rows := []*ImportRow{&errored, &accepted}
	DedupeRows(rows)

	// The errored row never claims the (medicine, batch) pair.
	require.Equal(t, DispositionNewMedicine, accepted.Disposition)
}

func TestDispositionIsExactlyOne(t *testing.T) {
	snap := snapshotWith(Medicine{ID: 7, Name: "paracetamol 500mg"})
	inputs := []RowValues{
		paracetamolRow(),
		{},
		{FieldMedicineName: "New Med", FieldBatchNumber: "B1", FieldExpiryDate: "2025-01-01", FieldPackQuantity: "1", FieldUnitsPerPack: "1"},
	}
	for i, values := range inputs {
		row := ReconcileRow(2, values, snap, "MediSupply")
		switch row.Disposition {
		case DispositionNewMedicine, DispositionNewBatch:
			require.Empty(t, row.Error, "case %d", i)
		case DispositionError:
			require.NotEmpty(t, row.Error, "case %d", i)
		default:
			t.Fatalf("case %d: unexpected disposition %q", i, row.Disposition)
		}
	}
}
