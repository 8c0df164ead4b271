package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gtas-reconciliation-service/internal/models"
)

// Fixed journal segments for the correcting-journal interface. Only
// the account, fund and TAS segments vary per line.
const (
	journalStatusCode    = "NEW"
	journalLedgerID      = 1
	journalEffectiveDate = "2025-06-30"
	journalSource        = "FedReconcile"
	journalCategory      = "Reconciliation"
	journalCurrency      = "USD"
	journalActualFlag    = "A"
	journalSegment1      = "101"
	journalSegment2      = "Finance"
	journalReference1    = "FedReconcile Correction"
)

// EmitCorrections derives correcting-journal records from the
// exception set. Only rows whose status is Mismatch or Missing in GTAS
// are eligible for automated correction; Missing in ERP rows and rows
// carrying only advisory notes require manual review and are excluded.
func EmitCorrections(exceptions []*models.ReconciledRow, now time.Time) []models.CorrectionRecord {
	var records []models.CorrectionRecord

	for _, row := range exceptions {
		if row.Status != models.StatusMismatch && row.Status != models.StatusMissingInGTAS {
			continue
		}

		amount := row.Difference.Neg()

		reference := fmt.Sprintf("Correcting %s", row.Status)
		if row.FatalError != "" {
			reference = fmt.Sprintf("%s (%s)", reference, row.FatalError)
		}

		records = append(records, models.CorrectionRecord{
			StatusCode:          journalStatusCode,
			LedgerID:            journalLedgerID,
			EffectiveDate:       journalEffectiveDate,
			JournalSource:       journalSource,
			JournalCategory:     journalCategory,
			CurrencyCode:        journalCurrency,
			CreationDate:        now.Format("2006-01-02"),
			ActualFlag:          journalActualFlag,
			Segment1:            journalSegment1,
			Segment2:            journalSegment2,
			Segment3:            row.USSGLAccount,
			Segment4:            row.Fund,
			Segment5:            row.TAS,
			EnteredDebitAmount:  decimal.Max(decimal.Zero, amount),
			EnteredCreditAmount: decimal.Max(decimal.Zero, amount.Neg()),
			Reference1:          journalReference1,
			Reference2:          reference,
		})
	}

	return records
}
