package reporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"gtas-reconciliation-service/internal/engine"
	"gtas-reconciliation-service/internal/models"
)

func exceptionRow(tas, ussgl string, status models.ReconciliationStatus) *models.ReconciledRow {
	return &models.ReconciledRow{
		RowID:        2,
		TAS:          tas,
		USSGLAccount: ussgl,
		GtasBalance:  models.ParseAmount("100"),
		NetBalance:   models.ParseAmount("50"),
		Difference:   decimal.NewFromInt(50),
		Status:       status,
	}
}

func TestWriteExceptionReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exception_report.xlsx")

	exceptions := []*models.ReconciledRow{
		exceptionRow("97-0200", "610000", models.StatusMissingInGTAS),
		exceptionRow("97-0100", "445000", models.StatusMismatch),
		exceptionRow("97-0300", "210000", models.StatusMismatch),
	}
	exceptions[1].FatalError = "Canceled TAS must have 0 balance for USSGL 101000"

	if err := WriteExceptionReport(exceptions, path); err != nil {
		t.Fatalf("WriteExceptionReport failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening written report: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Discrepancies")
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("sheet rows = %d, want header + 3", len(rows))
	}

	if rows[0][0] != "STATUS" || rows[0][6] != "GTAS_FATAL_ERROR" {
		t.Errorf("header row = %v", rows[0])
	}

	// Sorted by status then TAS: the two Mismatch rows first
	// (by TAS), then Missing in GTAS
	wantOrder := [][2]string{
		{"Mismatch", "97-0100"},
		{"Mismatch", "97-0300"},
		{"Missing in GTAS", "97-0200"},
	}
	for i, want := range wantOrder {
		if rows[i+1][0] != want[0] || rows[i+1][1] != want[1] {
			t.Errorf("row %d = %v, want %v", i+1, rows[i+1][:2], want)
		}
	}

	if rows[1][6] != "Canceled TAS must have 0 balance for USSGL 101000" {
		t.Errorf("fatal column = %q", rows[1][6])
	}
}

func TestWriteExceptionReportEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.xlsx")

	if err := WriteExceptionReport(nil, path); err != nil {
		t.Fatalf("WriteExceptionReport failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("empty exception set must still produce a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Discrepancies")
	if err != nil {
		t.Fatalf("reading sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %d, want header only", len(rows))
	}
}

func TestWriteFBDIJournal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fbdi.csv")

	exceptions := []*models.ReconciledRow{
		{
			RowID: 2, TAS: "97-0100", USSGLAccount: "610000", Fund: "F100",
			Status:     models.StatusMismatch,
			Difference: decimal.NewFromFloat(0.02),
		},
	}
	records := engine.EmitCorrections(exceptions, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))

	if err := WriteFBDIJournal(records, path); err != nil {
		t.Fatalf("WriteFBDIJournal failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening journal: %v", err)
	}
	defer file.Close()

	lines, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("reading journal: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1", len(lines))
	}

	header := lines[0]
	if header[0] != "STATUS_CODE" || header[len(header)-1] != "GROUP_ID" {
		t.Errorf("header = %v", header)
	}

	line := lines[1]
	if line[0] != "NEW" || line[1] != "1" || line[3] != "FedReconcile" {
		t.Errorf("journal constants = %v", line[:4])
	}
	if line[13] != "0" || line[14] != "0.02" {
		t.Errorf("debit/credit = %s/%s, want 0/0.02", line[13], line[14])
	}
	if line[12] != "97-0100" {
		t.Errorf("TAS segment = %q", line[12])
	}
	if line[len(line)-1] == "" {
		t.Error("group id missing")
	}
}

func TestWriteFBDIJournalEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fbdi.csv")

	if err := WriteFBDIJournal(nil, path); err != nil {
		t.Fatalf("WriteFBDIJournal failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening journal: %v", err)
	}
	defer file.Close()

	lines, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("reading journal: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("lines = %d, want header only", len(lines))
	}
}
