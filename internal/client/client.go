// Package client talks to the REST backend on behalf of the portal pages.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/sma-teacher-portal/internal/dto"
	"github.com/noah-isme/sma-teacher-portal/internal/models"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// Client is a thin JSON/multipart client for the e-book and grade endpoints.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New builds a client for baseURL. A zero timeout leaves requests unbounded.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	return &Client{baseURL: u, http: &http.Client{Timeout: timeout}}, nil
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// FileUpload is a PDF chosen for an e-book form.
type FileUpload struct {
	Name    string
	Content []byte
}

// EBookForm is the multipart payload of create and update.
type EBookForm struct {
	Title   string
	Author  string
	Subject string
	Class   string
	File    *FileUpload
}

// ListEBooks fetches every e-book.
func (c *Client) ListEBooks(ctx context.Context) ([]models.EBook, error) {
	var books []models.EBook
	if err := c.getList(ctx, "/api/ebooks", &books); err != nil {
		return nil, err
	}
	return books, nil
}

// CreateEBook posts a new e-book.
func (c *Client) CreateEBook(ctx context.Context, form EBookForm) error {
	return c.sendForm(ctx, http.MethodPost, "/api/ebooks", form)
}

// UpdateEBook replaces the fields of an e-book; the stored file changes only when form.File is set.
func (c *Client) UpdateEBook(ctx context.Context, id string, form EBookForm) error {
	return c.sendForm(ctx, http.MethodPut, "/api/ebooks/"+url.PathEscape(id), form)
}

// DeleteEBook removes an e-book.
func (c *Client) DeleteEBook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/ebooks/"+url.PathEscape(id), nil, "", nil)
}

// FetchFile opens a stored file. fileURL may be absolute or relative to the backend.
// The caller closes the body.
func (c *Client) FetchFile(ctx context.Context, fileURL string) (io.ReadCloser, string, error) {
	ref, err := url.Parse(fileURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse file url: %w", err)
	}
	target := c.baseURL.ResolveReference(ref).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", target, err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// ListStudents fetches the students of a class.
func (c *Client) ListStudents(ctx context.Context, className string) ([]models.StudentGrade, error) {
	var rows []models.StudentGrade
	if err := c.getList(ctx, "/grades/"+url.PathEscape(className), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateStudent posts a new student row.
func (c *Client) CreateStudent(ctx context.Context, req dto.CreateGradeRequest) error {
	return c.sendJSON(ctx, http.MethodPost, "/grades", req)
}

// UpdateStudent sends new marks and class for a student.
func (c *Client) UpdateStudent(ctx context.Context, id string, req dto.UpdateGradeRequest) error {
	return c.sendJSON(ctx, http.MethodPut, "/grades/"+url.PathEscape(id), req)
}

// DeleteStudent removes a student row.
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/grades/"+url.PathEscape(id), nil, "", nil)
}

func (c *Client) getList(ctx context.Context, path string, dest interface{}) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, "", &raw); err != nil {
		return err
	}
	if err := decodeList(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// decodeList accepts either a bare array or an object carrying the array under "data".
func decodeList(raw []byte, dest interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return err
		}
		trimmed = bytes.TrimSpace(wrapped.Data)
	}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("[]")
	}
	return json.Unmarshal(trimmed, dest)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}
	return c.do(ctx, method, path, bytes.NewReader(body), "application/json", nil)
}

func (c *Client) sendForm(ctx context.Context, method, path string, form EBookForm) error {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fields := [][2]string{{"title", form.Title}, {"author", form.Author}, {"subject", form.Subject}, {"class", form.Class}}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("write form field %s: %w", f[0], err)
		}
	}
	if form.File != nil {
		part, err := w.CreateFormFile("pdf", form.File.Name)
		if err != nil {
			return fmt.Errorf("create pdf part: %w", err)
		}
		if _, err := part.Write(form.File.Content); err != nil {
			return fmt.Errorf("write pdf part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}
	return c.do(ctx, method, path, body, w.FormDataContentType(), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, dest interface{}) error {
	target := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, target, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}
}
