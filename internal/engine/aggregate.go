package engine

import (
	"strings"

	"gtas-reconciliation-service/internal/models"
)

const findingSeparator = "; "

// Aggregate folds findings into the rows' accumulated text fields.
// Each finding appends to FatalError or AdvisoryNote (selected by
// severity) in evaluation order; fields are only ever appended to, so
// multiple findings on one row are all preserved. Rows are matched to
// findings by their join ordinal (Seq), never by the file-line row id,
// which can collide between the two sources.
func Aggregate(rows []*models.ReconciledRow, findings []models.Finding) {
	index := make(map[int]*models.ReconciledRow, len(rows))
	for _, row := range rows {
		index[row.Seq] = row
	}

	for _, finding := range findings {
		row, ok := index[finding.Row]
		if !ok {
			continue
		}

		if finding.Severity == models.SeverityFatal {
			row.FatalError = appendFinding(row.FatalError, finding.FormattedMessage())
		} else {
			row.AdvisoryNote = appendFinding(row.AdvisoryNote, finding.FormattedMessage())
		}
	}
}

func appendFinding(accumulated, message string) string {
	message = strings.Trim(message, findingSeparator)
	if accumulated == "" {
		return message
	}
	return accumulated + findingSeparator + message
}

// Exceptions derives the exception set: exactly the rows whose status
// is not Matched or that carry at least one fatal finding.
func Exceptions(rows []*models.ReconciledRow) []*models.ReconciledRow {
	var exceptions []*models.ReconciledRow
	for _, row := range rows {
		if row.IsException() {
			exceptions = append(exceptions, row)
		}
	}
	return exceptions
}
