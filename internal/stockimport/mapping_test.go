package stockimport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAutoMapMatchesHeaderVariants(t *testing.T) {
	headers := []string{
		"Medicine Name", "MFG", "Batch No.", "Expiry", "Qty Packs",
		"units_per_pack", "Purchase Rate (Rs)", "M.R.P", "HSN",
	}
	mapping := AutoMap(headers)

	require.Equal(t, "Medicine Name", mapping[FieldMedicineName])
	require.Equal(t, "units_per_pack", mapping[FieldUnitsPerPack])
	require.Equal(t, "Purchase Rate (Rs)", mapping[FieldPurchaseRate])
	require.Equal(t, "M.R.P", mapping[FieldMRP])
	require.Equal(t, "HSN", mapping[FieldHSNCode])
	require.Empty(t, mapping[FieldComposition])
}

func TestAutoMapContainment(t *testing.T) {
	// "Batch" is contained by the label "Batch Number", and the header
	// "Expiry Date of Stock" contains the label "Expiry Date".
	mapping := AutoMap([]string{"Batch", "Expiry Date of Stock"})
	require.Equal(t, "Batch", mapping[FieldBatchNumber])
	require.Equal(t, "Expiry Date of Stock", mapping[FieldExpiryDate])
}

func TestApplyTemplate(t *testing.T) {
	template := ColumnMapping{
		FieldMedicineName: "Item",
		FieldBatchNumber:  "Lot",
		FieldExpiryDate:   "Exp",
		FieldPackQuantity: "Cartons",
	}
	headers := []string{"Item", "Lot", "Exp"}

	mapping := ApplyTemplate(template, headers)
	require.Equal(t, "Item", mapping[FieldMedicineName])
	require.Equal(t, "Lot", mapping[FieldBatchNumber])
	require.Equal(t, "Exp", mapping[FieldExpiryDate])
	// The template's column is absent this time: the field stays unmapped.
	require.Empty(t, mapping[FieldPackQuantity])
}

func TestApplyTemplateIdempotent(t *testing.T) {
	template := ColumnMapping{FieldMedicineName: "Item", FieldBatchNumber: "Lot"}
	headers := []string{"Item", "Lot", "Extra"}

	first := ApplyTemplate(template, headers)
	second := ApplyTemplate(template, headers)
	require.Equal(t, first, second)
}

func TestMappingComplete(t *testing.T) {
	mapping := ColumnMapping{
		FieldMedicineName: "A",
		FieldBatchNumber:  "B",
		FieldExpiryDate:   "C",
		FieldPackQuantity: "D",
	}
	require.False(t, mapping.Complete())
	mapping[FieldUnitsPerPack] = "E"
	require.True(t, mapping.Complete())
}
