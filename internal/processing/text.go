package processing

import (
	"strings"

	"github.com/fleetsight/fleetsight-go/internal/domain"
)

// Free-text fields handled by CleanTextFields.
const (
	FieldMerchantName     = "merchant_name"
	FieldMerchantCategory = "merchant_category"
	FieldNotes            = "notes"
)

// NormalizeText lowercases, trims and collapses internal whitespace runs of
// every string value in fields. Non-string values are copied unchanged; nil
// values and empty strings are dropped. The input map is not modified.
func NormalizeText(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
		case string:
			if val == "" {
				continue
			}
			out[k] = strings.Join(strings.Fields(strings.ToLower(val)), " ")
		default:
			out[k] = v
		}
	}
	return out
}

// CleanTextFields normalizes the free-text fields present on tx. Its output
// is not part of ProcessedTransaction.
func CleanTextFields(tx *domain.Transaction) map[string]any {
	raw := make(map[string]any, 3)
	if tx.MerchantName != nil {
		raw[FieldMerchantName] = *tx.MerchantName
	}
	if tx.MerchantCategory != nil {
		raw[FieldMerchantCategory] = *tx.MerchantCategory
	}
	if tx.Notes != nil {
		raw[FieldNotes] = *tx.Notes
	}
	return NormalizeText(raw)
}
