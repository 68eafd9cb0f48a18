// Package client talks to the pengajuan API over HTTP
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/intake"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/pengajuan-konten-api/internal/validation"
	"github.com/pengajuan-konten-api/internal/wizard"
)

// Error is a non-2xx API response
type Error struct {
	StatusCode int
	Message    string
	Fields     []validation.ValidationError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, e.Message, strings.Join(parts, "; "))
}

// Receipt is returned after a pengajuan is stored
type Receipt struct {
	ID            int64  `json:"id"`
	NoComtab      string `json:"no_comtab"`
	Pin           string `json:"pin_sandi"`
	WorkflowStage string `json:"workflowStage"`
	// Replayed is set when the server answered with an earlier submission for the same idempotency key
	Replayed bool `json:"-"`
}

// SubmitOptions selects the request encoding
type SubmitOptions struct {
	Multipart      bool
	IdempotencyKey string
}

// Client is a thin API client
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New creates a client for the given base URL. A nil http.Client gets a 60s timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// SetToken sets the admin bearer token sent with /v1 requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login exchanges admin credentials for a session token and keeps it on the client
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/login", bytes.NewReader(body), "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	c.token = out.Token
	return out.Token, nil
}

// Credentials asks the server for an unused noComtab and a PIN
func (c *Client) Credentials(ctx context.Context) (wizard.Credentials, error) {
	var creds wizard.Credentials
	resp, err := c.do(ctx, http.MethodPost, "/api/pengajuan/credentials", nil, "", nil)
	if err != nil {
		return creds, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}

// Submit posts a new pengajuan. In JSON mode raw file attachments are sent inline as
// data URLs; in multipart mode they are sent as file parts.
func (c *Client) Submit(ctx context.Context, sub *models.Submission, opts SubmitOptions) (*Receipt, error) {
	var (
		buf         bytes.Buffer
		contentType string
	)
	if opts.Multipart {
		mw := multipart.NewWriter(&buf)
		if err := intake.EncodeMultipart(mw, sub); err != nil {
			return nil, fmt.Errorf("failed to encode submission: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		contentType = mw.FormDataContentType()
	} else {
		inline, err := inlineAttachments(sub)
		if err != nil {
			return nil, err
		}
		if err := intake.EncodeJSON(&buf, inline); err != nil {
			return nil, fmt.Errorf("failed to encode submission: %w", err)
		}
		contentType = "application/json"
	}

	header := http.Header{}
	if opts.IdempotencyKey != "" {
		header.Set("Idempotency-Key", opts.IdempotencyKey)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/pengajuan", &buf, contentType, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %w", err)
	}
	receipt.Replayed = resp.StatusCode == http.StatusOK
	return &receipt, nil
}

// Export downloads the recap (or snapshot) into w and returns the server's filename
func (c *Client) Export(ctx context.Context, w io.Writer, format string, query url.Values) (string, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("format", format)
	resp, err := c.do(ctx, http.MethodGet, "/v1/exports?"+query.Encode(), nil, "", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("failed to read export: %w", err)
	}
	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return filename, nil
}

// LoadFile reads a local file into a raw attachment
func LoadFile(path string, maxSize int64) (*models.Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return attachment.FromReader(f, path, "", maxSize)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" && strings.HasPrefix(path, "/v1/") {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Error  string                       `json:"error"`
		Errors []validation.ValidationError `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		apiErr.Fields = body.Errors
	}
	return apiErr
}

// inlineAttachments returns a copy of sub with raw files turned into data URL previews
func inlineAttachments(sub *models.Submission) (*models.Submission, error) {
	m := &attachment.Materializer{}
	out := *sub

	slots := []**models.Attachment{&out.UploadedBuktiMengetahui, &out.SuratPermohonan, &out.ProposalKegiatan}
	for _, slot := range slots {
		a, err := m.Materialize(*slot)
		if err != nil {
			return nil, err
		}
		*slot = a
	}
	if len(sub.DokumenPendukung) > 0 {
		out.DokumenPendukung = make([]*models.Attachment, len(sub.DokumenPendukung))
		for i, doc := range sub.DokumenPendukung {
			a, err := m.Materialize(doc)
			if err != nil {
				return nil, err
			}
			out.DokumenPendukung[i] = a
		}
	}
	return &out, nil
}
