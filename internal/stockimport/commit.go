package stockimport

import (
	"context"
	"log/slog"
	"time"
)

// Commit persists every accepted row of a session as one all-or-nothing
// transaction. The supplier is resolved first inside the transaction, so an
// unresolvable name aborts with zero effect. Each affected medicine's stock
// aggregate is recomputed from its full, now-updated batch list before the
// transaction commits. On success the session is consumed and the resulting
// state of every affected medicine is returned so callers can refresh their
// view without re-querying.
func (s *Service) Commit(ctx context.Context, id string) ([]Medicine, error) {
	var accepted []ImportRow
	var supplierName string
	if err := s.sessions.With(id, func(session *Session) error {
		accepted = session.AcceptedRows()
		supplierName = session.SupplierName
		return nil
	}); err != nil {
		return nil, err
	}
	if len(accepted) == 0 {
		return nil, ErrNoAcceptedRows
	}

	purchaseDate := s.now().UTC().Truncate(24 * time.Hour)

	var result []Medicine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		supplierID, err := tx.ResolveSupplier(ctx, supplierName)
		if err != nil {
			return err
		}

		var affected []int64
		seen := make(map[int64]struct{})
		touch := func(medicineID int64) {
			if _, ok := seen[medicineID]; !ok {
				seen[medicineID] = struct{}{}
				affected = append(affected, medicineID)
			}
		}

		for _, row := range accepted {
			medicineID := row.MedicineID
			if row.Disposition == DispositionNewMedicine {
				medicineID, err = tx.InsertMedicine(ctx, Medicine{
					Name:         row.MedicineName,
					Strength:     row.Strength,
					Manufacturer: row.Manufacturer,
					Composition:  row.Composition,
					Form:         row.Form,
					HSNCode:      row.HSNCode,
					MRP:          row.MRP,
				})
				if err != nil {
					return err
				}
			}
			if _, err := tx.InsertBatch(ctx, Batch{
				MedicineID:   medicineID,
				BatchNumber:  row.BatchNumber,
				PurchaseDate: purchaseDate,
				ExpiryDate:   row.ExpiryDate,
				PackQuantity: row.PackQuantity,
				PackSize:     row.UnitsPerPack,
				PurchaseRate: row.PurchaseRate,
				MRP:          row.MRP,
				SupplierID:   supplierID,
			}); err != nil {
				return err
			}
			touch(medicineID)
		}

		for _, medicineID := range affected {
			batches, err := tx.ListBatches(ctx, medicineID)
			if err != nil {
				return err
			}
			if err := tx.UpdateMedicineStock(ctx, medicineID, TotalStockUnits(batches)); err != nil {
				return err
			}
			medicine, err := tx.GetMedicine(ctx, medicineID)
			if err != nil {
				return err
			}
			result = append(result, medicine)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sessions.Delete(id)
	s.logger.Info("stock import committed",
		slog.String("session_id", id),
		slog.Int("rows", len(accepted)),
		slog.Int("medicines", len(result)))
	return result, nil
}
