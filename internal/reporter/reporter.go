// Package reporter serializes a run's results into the two delivery
// artifacts: the human-readable exception report workbook and the
// machine-readable FBDI correcting-journal file.
package reporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"gtas-reconciliation-service/internal/models"
	"gtas-reconciliation-service/pkg/errors"
	"gtas-reconciliation-service/pkg/logger"
)

// exceptionSheet is the single worksheet of the exception report
const exceptionSheet = "Discrepancies"

// exceptionColumns is the fixed column order of the exception report
var exceptionColumns = []string{
	"STATUS",
	"TAS",
	"USSGL_ACCOUNT",
	"GTAS_BALANCE",
	"NET_BALANCE",
	"DIFFERENCE",
	"GTAS_FATAL_ERROR",
	"GTAS_ADVISORY_NOTE",
}

// WriteExceptionReport writes the exception rows to an XLSX workbook,
// grouped by status then TAS. An empty exception set still produces a
// workbook with the header row so downstream consumers always get a
// file.
func WriteExceptionReport(exceptions []*models.ReconciledRow, path string) error {
	log := logger.WithComponent("reporter")

	sorted := make([]*models.ReconciledRow, len(exceptions))
	copy(sorted, exceptions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Status != sorted[j].Status {
			return sorted[i].Status < sorted[j].Status
		}
		return sorted[i].TAS < sorted[j].TAS
	})

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exceptionSheet)
	if err != nil {
		return errors.InternalError("creating report sheet", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.InternalError("removing default sheet", err)
	}

	widths := make([]int, len(exceptionColumns))
	for col, header := range exceptionColumns {
		if err := setCell(f, col, 0, header); err != nil {
			return err
		}
		widths[col] = len(header)
	}

	for rowIdx, row := range sorted {
		values := []string{
			row.Status.String(),
			row.TAS,
			row.USSGLAccount,
			row.GtasBalance.String(),
			row.NetBalance.String(),
			row.Difference.String(),
			row.FatalError,
			row.AdvisoryNote,
		}

		for col, value := range values {
			if err := setCell(f, col, rowIdx+1, value); err != nil {
				return err
			}
			if len(value) > widths[col] {
				widths[col] = len(value)
			}
		}
	}

	for col := range exceptionColumns {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return errors.InternalError("sizing report columns", err)
		}
		if err := f.SetColWidth(exceptionSheet, name, name, float64(widths[col]+2)); err != nil {
			return errors.InternalError("sizing report columns", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	log.WithFields(logger.Fields{
		"file":       path,
		"exceptions": len(sorted),
	}).Info("Exception report written")

	return nil
}

func setCell(f *excelize.File, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return errors.InternalError("addressing report cell", err)
	}
	if err := f.SetCellValue(exceptionSheet, cell, value); err != nil {
		return errors.InternalError("writing report cell", err)
	}
	return nil
}

// fbdiHeader is the fixed column order of the correcting-journal file
var fbdiHeader = []string{
	"STATUS_CODE",
	"LEDGER_ID",
	"EFFECTIVE_DATE",
	"JOURNAL_SOURCE",
	"JOURNAL_CATEGORY",
	"CURRENCY_CODE",
	"JOURNAL_ENTRY_CREATION_DATE",
	"ACTUAL_FLAG",
	"SEGMENT1",
	"SEGMENT2",
	"SEGMENT3",
	"SEGMENT4",
	"SEGMENT5",
	"ENTERED_DEBIT_AMOUNT",
	"ENTERED_CREDIT_AMOUNT",
	"REFERENCE_COLUMN_1",
	"REFERENCE_COLUMN_2",
	"GROUP_ID",
}

// WriteFBDIJournal writes the correction records as a delimited-text
// correcting-journal file. All lines of one run share a generated
// batch group id. An empty record set produces a file holding only
// the header.
func WriteFBDIJournal(records []models.CorrectionRecord, path string) error {
	log := logger.WithComponent("reporter")

	file, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(fbdiHeader); err != nil {
		return errors.InternalError("writing journal header", err)
	}

	groupID := uuid.NewString()

	for _, record := range records {
		line := []string{
			record.StatusCode,
			fmt.Sprintf("%d", record.LedgerID),
			record.EffectiveDate,
			record.JournalSource,
			record.JournalCategory,
			record.CurrencyCode,
			record.CreationDate,
			record.ActualFlag,
			record.Segment1,
			record.Segment2,
			record.Segment3,
			record.Segment4,
			record.Segment5,
			record.EnteredDebitAmount.String(),
			record.EnteredCreditAmount.String(),
			record.Reference1,
			record.Reference2,
			groupID,
		}

		if err := writer.Write(line); err != nil {
			return errors.InternalError("writing journal line", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.InternalError("flushing journal file", err)
	}

	log.WithFields(logger.Fields{
		"file":     path,
		"records":  len(records),
		"group_id": groupID,
	}).Info("FBDI journal written")

	return nil
}
