package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gtas-reconciliation-service/internal/engine"
)

func testServer() *Server {
	return New(engine.New(nil))
}

func postJSON(t *testing.T, handler http.Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}

	request := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestHandleValidate(t *testing.T) {
	gtasCSV := "TAS,USSGL_ACCOUNT,GTAS_BALANCE\n97-0100,610000,1000.00\nX1234,101000,50\n"
	erpCSV := "TAS,USSGL_ACCOUNT,FUND,NET_BALANCE\n97-0100,610000,F100,999.98\n"

	recorder := postJSON(t, testServer().Handler(), map[string]string{
		"gtas_file_b64": base64.StdEncoding.EncodeToString([]byte(gtasCSV)),
		"erp_file_b64":  base64.StdEncoding.EncodeToString([]byte(erpCSV)),
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var response struct {
		Success                 bool   `json:"success"`
		Message                 string `json:"message"`
		ExceptionReportB64      string `json:"exceptionReportB64"`
		FbdiJournalB64          string `json:"fbdiJournalB64"`
		ExceptionReportFileName string `json:"exceptionReportFileName"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if !response.Success {
		t.Fatalf("success = false: %s", response.Message)
	}
	if response.ExceptionReportB64 == "" || response.FbdiJournalB64 == "" {
		t.Error("artifacts missing from response")
	}
	if response.ExceptionReportFileName != "exception_report.xlsx" {
		t.Errorf("report file name = %q", response.ExceptionReportFileName)
	}

	journal, err := base64.StdEncoding.DecodeString(response.FbdiJournalB64)
	if err != nil {
		t.Fatalf("journal is not valid base64: %v", err)
	}
	if !strings.Contains(string(journal), "FedReconcile") {
		t.Error("journal content missing expected source")
	}
}

func TestHandleValidateMethodNotAllowed(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()
	testServer().Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", recorder.Code)
	}
}

func TestHandleValidateBadJSON(t *testing.T) {
	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	recorder := httptest.NewRecorder()
	testServer().Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
}

func TestHandleValidateMissingFiles(t *testing.T) {
	recorder := postJSON(t, testServer().Handler(), map[string]string{
		"gtas_file_b64": base64.StdEncoding.EncodeToString([]byte("TAS\nX")),
	})

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if response.Success {
		t.Error("success = true for missing input")
	}
}

func TestHandleValidateSchemaErrorReturns500(t *testing.T) {
	gtasCSV := "TAS,WRONG\n97-0100,x\n"
	erpCSV := "TAS,USSGL_ACCOUNT,FUND,NET_BALANCE\n97-0100,610000,F100,100\n"

	recorder := postJSON(t, testServer().Handler(), map[string]string{
		"gtas_file_b64": base64.StdEncoding.EncodeToString([]byte(gtasCSV)),
		"erp_file_b64":  base64.StdEncoding.EncodeToString([]byte(erpCSV)),
	})

	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", recorder.Code)
	}
}

func TestHealthz(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	testServer().Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", recorder.Code)
	}
}
