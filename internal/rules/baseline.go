package rules

import (
	"strings"

	"gtas-reconciliation-service/internal/models"
)

// Baseline messages. These predate the rule catalog and carry no rule
// id; the aggregator appends them bare.
const (
	msgNonNumericBalance = "Non-numeric GTAS balance"
	msgMissingRequired   = "Missing required field: TAS or USSGL"
	msgCanceledTAS       = "Canceled TAS must have 0 balance for USSGL 101000"
	msgLiabilitySeries   = "210000 series should net to zero"
	msg445000Nonzero     = "445000 should typically be zero"
	msgBudgetaryNegative = "Negative balance for budgetary account"
	msgShortTAS          = "TAS format may be invalid or too short"
)

// ApplyBaseline runs the zero-configuration edit set against every
// row. It always runs, whether or not a rule catalog is loaded; the
// catalog extends it, never replaces it. The returned ConditionSet
// records what was reported per row so catalog checks do not report
// the same condition again.
//
// A row whose GTAS balance failed numeric coercion gets exactly one
// fatal finding for that and is skipped by every numeric-dependent
// check; the non-numeric checks still run for it.
func ApplyBaseline(rows []*models.ReconciledRow) ([]models.Finding, *ConditionSet) {
	var findings []models.Finding
	reported := NewConditionSet()

	emit := func(row *models.ReconciledRow, condition Condition, severity models.Severity, message string) {
		reported.Mark(row.Seq, condition)
		findings = append(findings, models.Finding{
			Row:      row.Seq,
			Severity: severity,
			Message:  message,
		})
	}

	for _, row := range rows {
		numericOK := row.GtasBalance.Valid

		if !numericOK {
			emit(row, ConditionNonNumericBalance, models.SeverityFatal, msgNonNumericBalance)
		}

		if row.TAS == "" || row.USSGLAccount == "" {
			emit(row, ConditionMissingRequired, models.SeverityFatal, msgMissingRequired)
		}

		if strings.HasPrefix(row.TAS, "X") && row.USSGLAccount == "101000" &&
			numericOK && !row.GtasBalance.Value.IsZero() {
			emit(row, ConditionCanceledTAS, models.SeverityFatal, msgCanceledTAS)
		}

		if strings.HasPrefix(row.USSGLAccount, "210") &&
			numericOK && !row.GtasBalance.Value.IsZero() {
			emit(row, ConditionLiabilitySeries, models.SeverityAdvisory, msgLiabilitySeries)
		}

		if row.USSGLAccount == "445000" &&
			numericOK && !row.GtasBalance.Value.IsZero() {
			emit(row, Condition445000Nonzero, models.SeverityAdvisory, msg445000Nonzero)
		}

		if strings.HasPrefix(row.USSGLAccount, "4") &&
			numericOK && row.GtasBalance.Value.IsNegative() {
			emit(row, ConditionBudgetaryNegative, models.SeverityAdvisory, msgBudgetaryNegative)
		}

		if len(row.TAS) < 5 {
			emit(row, ConditionShortTAS, models.SeverityAdvisory, msgShortTAS)
		}
	}

	return findings, reported
}
