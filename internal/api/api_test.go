package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pengajuan-konten-api/internal/api"
	"github.com/pengajuan-konten-api/internal/auth"
	"github.com/pengajuan-konten-api/internal/config"
	"github.com/pengajuan-konten-api/internal/export"
	"github.com/pengajuan-konten-api/internal/filter"
	"github.com/pengajuan-konten-api/internal/mocks"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/service"
	"github.com/pengajuan-konten-api/internal/validation"
	"github.com/pengajuan-konten-api/internal/wizard"
	"github.com/rs/zerolog"
)

const testPassword = "rahasia-admin"

type fixture struct {
	router     *gin.Engine
	submission *mocks.MockSubmissionService
	review     *mocks.MockReviewService
	export     *mocks.MockExportService
	imports    *mocks.MockImportService
	jobs       *mocks.MockJobService
	sessions   *auth.Manager
}

func setupTestRouter(t *testing.T, opts ...func(*config.Config)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		submission: mocks.NewMockSubmissionService(),
		review:     mocks.NewMockReviewService(),
		export:     mocks.NewMockExportService(),
		imports:    mocks.NewMockImportService(),
		jobs:       mocks.NewMockJobService(),
	}

	services := &service.Services{
		Submission: f.submission,
		Review:     f.review,
		Export:     f.export,
		Import:     f.imports,
		Job:        f.jobs,
	}

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	f.sessions = auth.NewManager("admin", hash, "test-secret", time.Hour)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080", Timezone: "UTC"},
		Import: config.ImportConfig{
			BatchSize:     500,
			MaxUploadSize: 10 * 1024 * 1024,
			UploadDir:     t.TempDir(),
		},
		Upload: config.UploadConfig{
			MaxFileSize:    1024 * 1024,
			MaxRequestSize: 4 * 1024 * 1024,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	f.router = api.NewRouter(services, f.sessions, cfg, zerolog.Nop())
	return f
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	token, _, err := f.sessions.Login("admin", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return "Bearer " + token
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) admin(t *testing.T, method, url string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", f.token(t))
	return f.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	f := setupTestRouter(t)

	w := f.do(httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "pengajuan-konten-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupTestRouter(t)
	f.export.Count = 42

	w := f.do(httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	store := decode(t, w)["store"].(map[string]interface{})
	if store["submissions"].(float64) != 42 {
		t.Errorf("Expected 42 submissions, got %v", store["submissions"])
	}
}

func TestCreatePengajuan_JSON(t *testing.T) {
	f := setupTestRouter(t)

	var gotKey string
	var got *models.Submission
	f.submission.CreateFunc = func(ctx context.Context, sub *models.Submission, key string) (*models.Submission, bool, error) {
		gotKey, got = key, sub
		sub.ID = 7
		sub.WorkflowStage = "submitted"
		return sub, key == "replay", nil
	}

	body := `{"noComtab":"0001/IKP/08/2025","pin":"1234","judul":"Sosialisasi Vaksin","contentItems":"[{\"nama\":\"Poster\",\"jenisKonten\":\"infografis\"}]"}`
	req := httptest.NewRequest("POST", "/api/pengajuan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "first")
	w := f.do(req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotKey != "first" {
		t.Errorf("Expected idempotency key to be passed, got %q", gotKey)
	}
	if got.Judul != "Sosialisasi Vaksin" || len(got.ContentItems) != 1 || got.ContentItems[0].Nama != "Poster" {
		t.Errorf("Unexpected decoded submission: %+v", got)
	}

	response := decode(t, w)
	if response["no_comtab"] != "0001/IKP/08/2025" || response["pin_sandi"] != "1234" {
		t.Errorf("Expected credentials in response, got %v", response)
	}

	req = httptest.NewRequest("POST", "/api/pengajuan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "replay")
	if w := f.do(req); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for replayed request, got %d", w.Code)
	}
}

func TestCreatePengajuan_Multipart(t *testing.T) {
	f := setupTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.WriteField("judul", "Hari Pangan")
	writer.WriteField("contentItems[0][nama]", "Video Pendek")
	writer.WriteField("contentItems[0][jenisKonten]", "video")
	part, _ := writer.CreateFormFile("suratPermohonan", "surat.pdf")
	part.Write([]byte("%PDF-1.4 surat"))
	writer.Close()

	req := httptest.NewRequest("POST", "/api/pengajuan", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := f.do(req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(f.submission.Created) != 1 {
		t.Fatalf("Expected one created submission, got %d", len(f.submission.Created))
	}
	sub := f.submission.Created[0]
	if sub.Judul != "Hari Pangan" {
		t.Errorf("Expected judul, got %q", sub.Judul)
	}
	if len(sub.ContentItems) != 1 || sub.ContentItems[0].JenisKonten != "video" {
		t.Errorf("Expected one video item, got %+v", sub.ContentItems)
	}
	if sub.SuratPermohonan == nil || sub.SuratPermohonan.Name() != "surat.pdf" {
		t.Errorf("Expected surat attachment, got %+v", sub.SuratPermohonan)
	}
}

func TestCreatePengajuan_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		err            error
		expectedStatus int
	}{
		{
			name:           "malformed body",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation failure",
			body: `{"judul":""}`,
			err: &service.ValidationFailedError{Errors: []validation.ValidationError{
				{Field: "judul", Message: "Judul wajib diisi"},
			}},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "store failure",
			body:           `{"judul":"x"}`,
			err:            io.ErrUnexpectedEOF,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestRouter(t)
			f.submission.CreateFunc = func(ctx context.Context, sub *models.Submission, key string) (*models.Submission, bool, error) {
				return nil, false, tt.err
			}

			req := httptest.NewRequest("POST", "/api/pengajuan", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := f.do(req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusUnprocessableEntity {
				errs := decode(t, w)["errors"].([]interface{})
				if len(errs) != 1 {
					t.Errorf("Expected 1 field error, got %v", errs)
				}
			}
		})
	}
}

func TestUpdatePengajuan(t *testing.T) {
	f := setupTestRouter(t)
	f.submission.Submissions[3] = &models.Submission{ID: 3, NoComtab: "0003/IKP/08/2025", Pin: "4321"}

	var gotPin string
	f.submission.UpdateFunc = func(ctx context.Context, id int64, pin string, sub *models.Submission) (*models.Submission, error) {
		gotPin = pin
		if pin != "4321" {
			return nil, service.ErrInvalidPin
		}
		sub.ID = id
		return sub, nil
	}

	tests := []struct {
		name           string
		url            string
		pin            string
		expectedStatus int
	}{
		{"invalid id", "/api/pengajuan/abc", "4321", http.StatusBadRequest},
		{"missing pin", "/api/pengajuan/3", "", http.StatusUnauthorized},
		{"wrong pin", "/api/pengajuan/3", "0000", http.StatusForbidden},
		{"correct pin", "/api/pengajuan/3", "4321", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("PUT", tt.url, strings.NewReader(`{"judul":"Revisi"}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.pin != "" {
				req.Header.Set("X-Pin", tt.pin)
			}
			w := f.do(req)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
	if gotPin != "4321" {
		t.Errorf("Expected last pin 4321, got %q", gotPin)
	}
}

func TestLookup(t *testing.T) {
	f := setupTestRouter(t)
	f.submission.Submissions[1] = &models.Submission{ID: 1, NoComtab: "0001/IKP/08/2025", Pin: "1234", Judul: "Lama"}

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"missing pin", `{"noComtab":"0001/IKP/08/2025"}`, http.StatusBadRequest},
		{"wrong pin", `{"noComtab":"0001/IKP/08/2025","pin":"9999"}`, http.StatusForbidden},
		{"unknown code", `{"noComtab":"9999/IKP/08/2025","pin":"1234"}`, http.StatusForbidden},
		{"match", `{"noComtab":"0001/IKP/08/2025","pin":"1234"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/pengajuan/lookup", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := f.do(req)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGenerateCredentials(t *testing.T) {
	f := setupTestRouter(t)

	w := f.do(httptest.NewRequest("POST", "/api/pengajuan/credentials", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["noComtab"] != "0001/IKP/08/2025" || response["pin"] != "1234" {
		t.Errorf("Unexpected credentials: %v", response)
	}
}

func TestValidateStep(t *testing.T) {
	f := setupTestRouter(t)
	f.submission.ValidateFunc = func(ctx context.Context, sub *models.Submission, step wizard.Step, isNew bool) ([]validation.ValidationError, error) {
		if isNew {
			return []validation.ValidationError{{Field: "judul", Message: "Judul wajib diisi"}}, nil
		}
		return nil, nil
	}

	req := httptest.NewRequest("POST", "/api/pengajuan/validate?step=1", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	response := decode(t, f.do(req))
	if response["valid"] != false {
		t.Errorf("Expected invalid step, got %v", response)
	}

	req = httptest.NewRequest("POST", "/api/pengajuan/validate?step=1&mode=edit", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	response = decode(t, f.do(req))
	if response["valid"] != true {
		t.Errorf("Expected valid step in edit mode, got %v", response)
	}

	req = httptest.NewRequest("POST", "/api/pengajuan/validate?mode=draft", strings.NewReader(`{}`))
	if w := f.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown mode, got %d", w.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	f := setupTestRouter(t)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"garbage token", "Bearer not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/submissions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := f.do(req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", w.Code)
			}
		})
	}
}

func TestLoginAndSession(t *testing.T) {
	f := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/v1/auth/login", strings.NewReader(`{"username":"admin","password":"salah"}`))
	req.Header.Set("Content-Type", "application/json")
	if w := f.do(req); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for wrong password, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/v1/auth/login", strings.NewReader(`{"username":"admin","password":"`+testPassword+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatal("Expected a token")
	}

	req = httptest.NewRequest("GET", "/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["username"] != "admin" {
		t.Errorf("Expected admin session, got %v", response)
	}
	if response["remaining_seconds"].(float64) <= 0 {
		t.Errorf("Expected positive remaining time, got %v", response["remaining_seconds"])
	}
}

func TestListSubmissions_BindsFilters(t *testing.T) {
	f := setupTestRouter(t)

	w := f.admin(t, "GET", "/v1/submissions?search=vaksin&status=review&period=7days&content_type=video", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	want := filter.State{Search: "vaksin", Status: "review", Period: "7days", ContentType: "video"}
	if f.submission.LastFilter != want {
		t.Errorf("Expected filter %+v, got %+v", want, f.submission.LastFilter)
	}

	if w := f.admin(t, "GET", "/v1/submissions?status=archived", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown status, got %d", w.Code)
	}
}

func TestSubmissionDetail(t *testing.T) {
	f := setupTestRouter(t)
	f.submission.Submissions[5] = &models.Submission{ID: 5, NoComtab: "0005/IKP/08/2025", Judul: "Detail"}

	if w := f.admin(t, "GET", "/v1/submissions/5", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := f.admin(t, "GET", "/v1/submissions/6", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestReviewItem(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
	}{
		{"unknown status", `{"status":"maybe"}`, nil, http.StatusBadRequest},
		{"invalid link", `{"status":"approved","hasilProdukLink":"not a url"}`, nil, http.StatusBadRequest},
		{"not confirmed", `{"status":"approved"}`, service.ErrNotConfirmed, http.StatusConflict},
		{"already decided", `{"status":"rejected","alasanPenolakan":"x"}`, service.ErrInvalidTransition, http.StatusConflict},
		{"approved", `{"status":"approved","hasilProdukLink":"https://drive.example.go.id/hasil"}`, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestRouter(t)
			f.review.Err = tt.serviceErr

			w := f.admin(t, "POST", "/v1/submissions/1/items/item-1/review", strings.NewReader(tt.body))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				call := f.review.Calls[0]
				if call.ItemID != "item-1" || call.Username != "admin" || call.Item.Status != models.ItemApproved {
					t.Errorf("Unexpected review call: %+v", call)
				}
			}
		})
	}
}

func TestValidatePublication(t *testing.T) {
	f := setupTestRouter(t)

	if w := f.admin(t, "POST", "/v1/submissions/1/items/item-1/publication", strings.NewReader(`{}`)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without isTayang, got %d", w.Code)
	}

	w := f.admin(t, "POST", "/v1/submissions/1/items/item-1/publication", strings.NewReader(`{"isTayang":false,"alasanTidakTayang":"Jadwal bergeser"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	call := f.review.Calls[0]
	if call.Publication.IsTayang == nil || *call.Publication.IsTayang {
		t.Errorf("Expected isTayang=false, got %+v", call.Publication)
	}
}

func TestConfirmAndOutputValidation(t *testing.T) {
	f := setupTestRouter(t)

	if w := f.admin(t, "POST", "/v1/submissions/2/confirm", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for confirm, got %d", w.Code)
	}
	if w := f.admin(t, "POST", "/v1/submissions/2/output-validation", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for output validation, got %d", w.Code)
	}
	if len(f.review.Calls) != 2 || f.review.Calls[0].Action != "confirm" || f.review.Calls[1].Action != "output" {
		t.Errorf("Unexpected calls: %+v", f.review.Calls)
	}
}

func TestExportRecap(t *testing.T) {
	f := setupTestRouter(t)

	var gotFormat export.Format
	var gotState filter.State
	f.export.WriteRecapFunc = func(ctx context.Context, w io.Writer, format export.Format, state filter.State) (int, error) {
		gotFormat, gotState = format, state
		io.WriteString(w, "No,Tanggal Submit\n1,14 Agt 2025\n")
		return 1, nil
	}

	w := f.admin(t, "GET", "/v1/exports?format=csv&status=completed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotFormat != export.FormatCSV || gotState.Status != "completed" {
		t.Errorf("Unexpected export call: %s %+v", gotFormat, gotState)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "rekap-data-detail-") || !strings.HasSuffix(cd, ".csv") {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Expected text/csv, got %q", ct)
	}
	if w.Header().Get("X-Export-Rows") != "1" {
		t.Errorf("Expected row count header, got %q", w.Header().Get("X-Export-Rows"))
	}
}

func TestExport_ValidationErrors(t *testing.T) {
	f := setupTestRouter(t)

	tests := []struct {
		name          string
		url           string
		expectedError string
	}{
		{"invalid format", "/v1/exports?format=xml", "format must be one of"},
		{"invalid period", "/v1/exports?format=xlsx&period=1year", "invalid period"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.admin(t, "GET", tt.url, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
			if !bytes.Contains(w.Body.Bytes(), []byte(tt.expectedError)) {
				t.Errorf("Expected error %q in response, got: %s", tt.expectedError, w.Body.String())
			}
		})
	}
}

func TestExportSnapshot(t *testing.T) {
	f := setupTestRouter(t)

	var gotFormat string
	f.export.StreamSnapshotFunc = func(ctx context.Context, w http.ResponseWriter, format string) error {
		gotFormat = format
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"id":1}`+"\n")
		return nil
	}

	w := f.admin(t, "GET", "/v1/exports?format=ndjson", nil)
	if w.Code != http.StatusOK || gotFormat != "ndjson" {
		t.Errorf("Expected ndjson snapshot, got status %d format %q", w.Code, gotFormat)
	}
}

func TestGetImportStatus(t *testing.T) {
	f := setupTestRouter(t)

	f.jobs.Jobs["job-123"] = &models.JobResponse{
		Job: models.Job{
			ID:              "job-123",
			Type:            models.JobTypeImport,
			Resource:        models.ResourceSubmissions,
			Status:          models.JobStatusCompleted,
			TotalRecords:    10,
			SuccessfulCount: 9,
			FailedCount:     1,
			CreatedAt:       time.Now(),
		},
		ErrorCount: 1,
	}

	w := f.admin(t, "GET", "/v1/imports/job-123", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response models.JobResponse
	json.Unmarshal(w.Body.Bytes(), &response)
	if response.Job.ID != "job-123" || response.Job.TotalRecords != 10 {
		t.Errorf("Unexpected job: %+v", response.Job)
	}

	if w := f.admin(t, "GET", "/v1/imports/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetImportErrors_CSV(t *testing.T) {
	f := setupTestRouter(t)
	f.jobs.Errors["job-with-errors"] = []models.RecordError{
		{Line: 2, Field: "noComtab", Message: "No Comtab sudah digunakan", Value: "0001/IKP/08/2025"},
	}

	w := f.admin(t, "GET", "/v1/imports/job-with-errors/errors?format=csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("Expected text/csv, got %s", w.Header().Get("Content-Type"))
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("record,field,message,value")) {
		t.Error("CSV should contain header row")
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("0001/IKP/08/2025")) {
		t.Errorf("CSV should contain error data, got: %s", w.Body.String())
	}
}

func snapshotUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(content))
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestCreateImport(t *testing.T) {
	f := setupTestRouter(t)

	body, contentType := snapshotUpload(t, "snapshot.ndjson", `{"noComtab":"0001/IKP/08/2025"}`+"\n")
	req := httptest.NewRequest("POST", "/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", f.token(t))
	w := f.do(req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(f.imports.Requests) != 1 || f.imports.Requests[0].RequestedBy != "admin" {
		t.Errorf("Expected job requested by admin, got %+v", f.imports.Requests)
	}
}

func TestImportWithWrongFileExtension(t *testing.T) {
	f := setupTestRouter(t)

	body, contentType := snapshotUpload(t, "snapshot.csv", "a,b\n")
	req := httptest.NewRequest("POST", "/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", f.token(t))
	w := f.do(req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if len(f.imports.CreatedJobs) != 0 {
		t.Error("No job should be created for a rejected upload")
	}
}

func TestImportIdempotencyKey(t *testing.T) {
	f := setupTestRouter(t)
	f.jobs.Jobs["existing-job"] = &models.JobResponse{
		Job: models.Job{
			ID:             "existing-job",
			Resource:       models.ResourceSubmissions,
			Status:         models.JobStatusCompleted,
			IdempotencyKey: "unique-key",
		},
	}

	body, contentType := snapshotUpload(t, "snapshot.json", `[]`)
	req := httptest.NewRequest("POST", "/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", f.token(t))
	req.Header.Set("Idempotency-Key", "unique-key")
	w := f.do(req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 (existing job), got %d", w.Code)
	}
	if len(f.imports.CreatedJobs) != 0 {
		t.Error("Existing job should be returned without creating a new one")
	}
}

func TestCORSHeaders(t *testing.T) {
	f := setupTestRouter(t)

	w := f.do(httptest.NewRequest("OPTIONS", "/api/pengajuan/3", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for OPTIONS, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin '*', got '%s'", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "X-Pin") {
		t.Errorf("Expected X-Pin to be allowed, got %q", w.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestRateLimit_PinAndLogin(t *testing.T) {
	f := setupTestRouter(t, func(cfg *config.Config) {
		cfg.Server.AttemptsPerMinute = 2
	})

	tests := []struct {
		name string
		ip   string
		url  string
		body string
	}{
		{"lookup", "10.0.0.1", "/api/pengajuan/lookup", `{"noComtab":"0001/IKP/08/2025","pin":"0000"}`},
		{"login", "10.0.0.2", "/v1/auth/login", `{"username":"admin","password":"salah"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send := func(ip string) *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, tt.url, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
				req.RemoteAddr = ip + ":40000"
				return f.do(req)
			}

			for i := 0; i < 2; i++ {
				if w := send(tt.ip); w.Code == http.StatusTooManyRequests {
					t.Fatalf("attempt %d rejected early", i+1)
				}
			}
			w := send(tt.ip)
			if w.Code != http.StatusTooManyRequests {
				t.Fatalf("Expected status 429, got %d", w.Code)
			}
			if w.Header().Get("Retry-After") == "" {
				t.Error("Expected Retry-After header")
			}
			if body := decode(t, w); body["error"] == nil {
				t.Errorf("Expected error message, got %v", body)
			}

			if w := send(tt.ip + "0"); w.Code == http.StatusTooManyRequests {
				t.Error("Expected another IP to keep its own budget")
			}
		})
	}
}
