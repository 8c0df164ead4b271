// Package reconciler performs the outer join of the two normalized
// extracts and classifies every joined row into a reconciliation
// status.
//
// The join key is (TAS, USSGL account). Every key present in either
// source produces exactly one output row. A balance absent from one
// source, or one that failed numeric coercion, compares as zero: the
// engine cannot distinguish "explicitly zero" from "absent" once
// joined. Presence flags are recorded per row for a stricter future
// classifier but do not influence the status today.
//
// Duplicate keys within the ERP extract collapse to their first
// occurrence; later occurrences are logged and ignored.
package reconciler

import (
	"github.com/shopspring/decimal"

	"gtas-reconciliation-service/internal/models"
	"gtas-reconciliation-service/internal/normalizer"
	"gtas-reconciliation-service/pkg/logger"
)

// Tolerance is the absolute balance difference below which a pair of
// balances is considered matched.
var Tolerance = decimal.NewFromFloat(0.01)

// Reconcile outer-joins the two sources and classifies every row.
// Output order is deterministic: GTAS rows in file order, then
// ERP-only keys in file order.
func Reconcile(gtas, erp *normalizer.Source) []*models.ReconciledRow {
	log := logger.WithComponent("reconciler")

	erpIndex := make(map[string][]normalizer.Row, len(erp.Rows))
	erpOrder := make([]string, 0, len(erp.Rows))
	for _, row := range erp.Rows {
		key := models.JoinKey(row.TAS, row.USSGLAccount)
		if _, seen := erpIndex[key]; !seen {
			erpOrder = append(erpOrder, key)
		}
		erpIndex[key] = append(erpIndex[key], row)
	}

	for _, key := range erpOrder {
		if dupes := erpIndex[key]; len(dupes) > 1 {
			log.WithFields(logger.Fields{
				"tas":         dupes[0].TAS,
				"ussgl":       dupes[0].USSGLAccount,
				"occurrences": len(dupes),
			}).Warn("Duplicate ERP key; only the first occurrence is used")
		}
	}

	matched := make(map[string]bool, len(erpIndex))
	rows := make([]*models.ReconciledRow, 0, len(gtas.Rows)+len(erp.Rows))

	for _, gtasRow := range gtas.Rows {
		key := models.JoinKey(gtasRow.TAS, gtasRow.USSGLAccount)

		row := &models.ReconciledRow{
			Seq:          len(rows),
			RowID:        gtasRow.RowID,
			TAS:          gtasRow.TAS,
			USSGLAccount: gtasRow.USSGLAccount,
			GtasBalance:  gtasRow.Balance,
			NetBalance:   models.ZeroAmount(),
			InGtas:       true,
			Extra:        mergeExtra(nil, gtasRow.Extra),
		}

		if erpRows, ok := erpIndex[key]; ok {
			matched[key] = true
			erpRow := erpRows[0]
			row.NetBalance = erpRow.Balance
			row.Fund = erpRow.Fund
			row.InErp = true
			row.Extra = mergeExtra(row.Extra, erpRow.Extra)
		}

		classify(row)
		rows = append(rows, row)
	}

	for _, key := range erpOrder {
		if matched[key] {
			continue
		}
		erpRow := erpIndex[key][0]

		row := &models.ReconciledRow{
			Seq:          len(rows),
			RowID:        erpRow.RowID,
			TAS:          erpRow.TAS,
			USSGLAccount: erpRow.USSGLAccount,
			Fund:         erpRow.Fund,
			GtasBalance:  models.ZeroAmount(),
			NetBalance:   erpRow.Balance,
			InErp:        true,
			Extra:        mergeExtra(nil, erpRow.Extra),
		}

		classify(row)
		rows = append(rows, row)
	}

	log.WithFields(logger.Fields{
		"gtas_rows":   len(gtas.Rows),
		"erp_rows":    len(erp.Rows),
		"joined_rows": len(rows),
	}).Info("Reconciliation join complete")

	return rows
}

// classify computes the signed difference and the status. The order of
// the checks is load-bearing: a row with one balance zero and the
// other non-zero is always "missing", never "Mismatch", regardless of
// how small the difference is; a row with both balances zero is
// Matched.
func classify(row *models.ReconciledRow) {
	gtasVal := comparableValue(row.GtasBalance)
	netVal := comparableValue(row.NetBalance)

	row.Difference = gtasVal.Sub(netVal)

	switch {
	case gtasVal.IsZero() && !netVal.IsZero():
		row.Status = models.StatusMissingInGTAS
	case netVal.IsZero() && !gtasVal.IsZero():
		row.Status = models.StatusMissingInERP
	case row.Difference.Abs().GreaterThan(Tolerance):
		row.Status = models.StatusMismatch
	default:
		row.Status = models.StatusMatched
	}
}

// comparableValue treats invalid (non-numeric) balances as zero for
// status purposes; the coercion failure itself is reported as a fatal
// finding by the baseline edits.
func comparableValue(a models.Amount) decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Value
}

func mergeExtra(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
	return dst
}
