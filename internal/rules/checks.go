package rules

import (
	"strings"

	"gtas-reconciliation-service/internal/models"
)

// checkMissingRequiredFields implements edit 3: rows where TAS or the
// USSGL account is empty.
func checkMissingRequiredFields(rows []models.ReconciledRow, rule models.ValidationRule) []models.Finding {
	var findings []models.Finding
	for _, row := range rows {
		if row.TAS == "" || row.USSGLAccount == "" {
			findings = append(findings, ruleFinding(row, rule))
		}
	}
	return findings
}

// checkCanceledTASBalance implements edit 4: a canceled appropriation
// (TAS starting with "X") must carry a zero balance in USSGL 101000.
// Any nonzero value after numeric coercion flags; rows whose balance
// failed coercion are excluded here because the coercion failure is
// already a fatal finding of its own.
func checkCanceledTASBalance(rows []models.ReconciledRow, rule models.ValidationRule) []models.Finding {
	var findings []models.Finding
	for _, row := range rows {
		if !strings.HasPrefix(row.TAS, "X") || row.USSGLAccount != "101000" {
			continue
		}
		if !row.GtasBalance.Valid {
			continue
		}
		if !row.GtasBalance.Value.IsZero() {
			findings = append(findings, ruleFinding(row, rule))
		}
	}
	return findings
}

// checkLiabilityAdvisory implements edit 5: every row whose USSGL
// account is in the 210 liability series is flagged, regardless of
// balance value.
func checkLiabilityAdvisory(rows []models.ReconciledRow, rule models.ValidationRule) []models.Finding {
	var findings []models.Finding
	for _, row := range rows {
		if strings.HasPrefix(row.USSGLAccount, "210") {
			findings = append(findings, ruleFinding(row, rule))
		}
	}
	return findings
}

func ruleFinding(row models.ReconciledRow, rule models.ValidationRule) models.Finding {
	return models.Finding{
		Row:      row.Seq,
		RuleID:   rule.RuleID,
		Severity: rule.Severity,
		Message:  rule.Message,
	}
}
