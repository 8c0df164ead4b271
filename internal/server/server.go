// Package server exposes the reconciliation engine over HTTP. The
// surface mirrors the upstream deployment: one POST endpoint taking
// base64-encoded input files in a JSON body and returning the two
// generated artifacts base64-encoded in the response.
//
// Handlers are synchronous; one request is one complete engine run.
package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gtas-reconciliation-service/internal/engine"
	"gtas-reconciliation-service/internal/reporter"
	"gtas-reconciliation-service/internal/tabular"
	"gtas-reconciliation-service/pkg/logger"
)

const (
	defaultGtasFileName = "gtas_report.csv"
	defaultErpFileName  = "erp_balances.csv"

	exceptionReportName = "exception_report.xlsx"
	fbdiJournalName     = "fbdi_journal_corrections.csv"
)

// Server handles HTTP requests for the reconciliation service
type Server struct {
	engine *engine.Engine
	log    logger.Logger
}

// New creates a Server around a configured engine
func New(eng *engine.Engine) *Server {
	return &Server{
		engine: eng,
		log:    logger.WithComponent("server"),
	}
}

// Handler returns the http.Handler for the service
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleValidate)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// validateRequest is the JSON body of a validation request
type validateRequest struct {
	GtasFileB64  string `json:"gtas_file_b64"`
	ErpFileB64   string `json:"erp_file_b64"`
	GtasFileName string `json:"gtas_file_name"`
	ErpFileName  string `json:"erp_file_name"`
}

// validateResponse is the JSON body of a validation response
type validateResponse struct {
	Success                 bool   `json:"success"`
	Message                 string `json:"message"`
	ExceptionReportB64      string `json:"exceptionReportB64,omitempty"`
	FbdiJournalB64          string `json:"fbdiJournalB64,omitempty"`
	ExceptionReportFileName string `json:"exceptionReportFileName,omitempty"`
	FbdiJournalFileName     string `json:"fbdiJournalFileName,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respond(w, http.StatusMethodNotAllowed, validateResponse{
			Success: false,
			Message: "Method Not Allowed. Use POST.",
		})
		return
	}

	var request validateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respond(w, http.StatusBadRequest, validateResponse{
			Success: false,
			Message: "Invalid JSON in request body.",
		})
		return
	}

	if request.GtasFileB64 == "" || request.ErpFileB64 == "" {
		s.respond(w, http.StatusBadRequest, validateResponse{
			Success: false,
			Message: "Both gtas_file_b64 and erp_file_b64 are required.",
		})
		return
	}

	gtasData, err := base64.StdEncoding.DecodeString(request.GtasFileB64)
	if err != nil {
		s.respond(w, http.StatusBadRequest, validateResponse{
			Success: false,
			Message: "gtas_file_b64 is not valid base64.",
		})
		return
	}

	erpData, err := base64.StdEncoding.DecodeString(request.ErpFileB64)
	if err != nil {
		s.respond(w, http.StatusBadRequest, validateResponse{
			Success: false,
			Message: "erp_file_b64 is not valid base64.",
		})
		return
	}

	gtasName := request.GtasFileName
	if gtasName == "" {
		gtasName = defaultGtasFileName
	}
	erpName := request.ErpFileName
	if erpName == "" {
		erpName = defaultErpFileName
	}

	s.log.WithFields(logger.Fields{
		"gtas_file": gtasName,
		"erp_file":  erpName,
	}).Info("Validation request received")

	gtasTable, err := tabular.Parse(bytes.NewReader(gtasData), gtasName)
	if err != nil {
		s.respond(w, http.StatusInternalServerError, validateResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	erpTable, err := tabular.Parse(bytes.NewReader(erpData), erpName)
	if err != nil {
		s.respond(w, http.StatusInternalServerError, validateResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	result := s.engine.RunTables(gtasTable, erpTable, time.Time{})
	if !result.Success {
		s.respond(w, http.StatusInternalServerError, validateResponse{
			Success: false,
			Message: result.Message,
		})
		return
	}

	tmpDir, err := os.MkdirTemp("", "gtasrecon")
	if err != nil {
		s.respond(w, http.StatusInternalServerError, validateResponse{
			Success: false,
			Message: "Internal server error: could not allocate temporary storage.",
		})
		return
	}
	defer os.RemoveAll(tmpDir)

	reportPath := filepath.Join(tmpDir, exceptionReportName)
	journalPath := filepath.Join(tmpDir, fbdiJournalName)

	if err := reporter.WriteExceptionReport(result.Exceptions, reportPath); err != nil {
		s.respond(w, http.StatusInternalServerError, validateResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	if err := reporter.WriteFBDIJournal(result.Corrections, journalPath); err != nil {
		s.respond(w, http.StatusInternalServerError, validateResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	reportB64, err := encodeFile(reportPath)
	if err != nil {
		s.respond(w, http.StatusInternalServerError, validateResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	journalB64, err := encodeFile(journalPath)
	if err != nil {
		s.respond(w, http.StatusInternalServerError, validateResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	s.respond(w, http.StatusOK, validateResponse{
		Success:                 true,
		Message:                 result.Message,
		ExceptionReportB64:      reportB64,
		FbdiJournalB64:          journalB64,
		ExceptionReportFileName: exceptionReportName,
		FbdiJournalFileName:     fbdiJournalName,
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, body validateResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}

func encodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
