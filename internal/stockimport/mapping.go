package stockimport

import (
	"strings"
	"time"
	"unicode"
)

// ColumnMapping assigns each logical field the header of the column that
// feeds it. An absent or empty entry means the field is unmapped this import.
type ColumnMapping map[Field]string

// MappingTemplate is a saved per-supplier column assignment, reused on later
// imports from the same supplier so the user can skip manual remapping.
type MappingTemplate struct {
	SupplierID int64         `json:"supplierId"`
	Columns    ColumnMapping `json:"columns"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// AutoMap matches file headers to logical fields heuristically: both sides
// are stripped of whitespace and punctuation and lower-cased, then a field is
// assigned the first header whose normalized form contains, or is contained
// by, the field's normalized label.
func AutoMap(headers []string) ColumnMapping {
	mapping := make(ColumnMapping, len(AllFields))
	for _, field := range AllFields {
		label := normalizeToken(field.Label())
		for _, header := range headers {
			name := normalizeToken(header)
			if name == "" {
				continue
			}
			if strings.Contains(name, label) || strings.Contains(label, name) {
				mapping[field] = header
				break
			}
		}
	}
	return mapping
}

// ApplyTemplate maps fields from a saved template. Each field gets the column
// the template recorded, provided that column is present in this file's
// header row; otherwise the field stays unmapped.
func ApplyTemplate(template ColumnMapping, headers []string) ColumnMapping {
	present := make(map[string]string, len(headers))
	for _, header := range headers {
		present[normalizeToken(header)] = header
	}
	mapping := make(ColumnMapping, len(AllFields))
	for _, field := range AllFields {
		column := template[field]
		if column == "" {
			continue
		}
		if header, ok := present[normalizeToken(column)]; ok {
			mapping[field] = header
		}
	}
	return mapping
}

// Complete reports whether every field the reconciler insists on is mapped.
// The remaining fields may legitimately stay unmapped for suppliers whose
// files omit them.
func (m ColumnMapping) Complete() bool {
	for _, field := range []Field{FieldMedicineName, FieldBatchNumber, FieldExpiryDate, FieldPackQuantity, FieldUnitsPerPack} {
		if m[field] == "" {
			return false
		}
	}
	return true
}

func normalizeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
