package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-teacher-portal/internal/dto"
	"github.com/noah-isme/sma-teacher-portal/internal/models"
	"github.com/noah-isme/sma-teacher-portal/internal/service"
	appErrors "github.com/noah-isme/sma-teacher-portal/pkg/errors"
)

type ebookServiceMock struct {
	books      []models.EBook
	lastReq    dto.EBookRequest
	lastID     string
	lastUpload []byte
	gotUpload  bool
	err        error
	deleted    string
	file       *os.File
	fileBook   *models.EBook
}

func (m *ebookServiceMock) List(ctx context.Context) ([]models.EBook, error) {
	return m.books, m.err
}

func (m *ebookServiceMock) record(req dto.EBookRequest, file *service.Upload) {
	m.lastReq = req
	m.gotUpload = file != nil
	if file != nil {
		m.lastUpload, _ = io.ReadAll(file.Reader)
	}
}

func (m *ebookServiceMock) Create(ctx context.Context, req dto.EBookRequest, file *service.Upload) (*models.EBook, error) {
	m.record(req, file)
	if m.err != nil {
		return nil, m.err
	}
	return &models.EBook{ID: "b-1", Title: req.Title}, nil
}

func (m *ebookServiceMock) Update(ctx context.Context, id string, req dto.EBookRequest, file *service.Upload) (*models.EBook, error) {
	m.lastID = id
	m.record(req, file)
	if m.err != nil {
		return nil, m.err
	}
	return &models.EBook{ID: id, Title: req.Title}, nil
}

func (m *ebookServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return m.err
}

func (m *ebookServiceMock) OpenFile(ctx context.Context, id, token string) (*models.EBook, *os.File, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.fileBook, m.file, nil
}

func multipartBody(t *testing.T, fields map[string]string, pdf []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if pdf != nil {
		part, err := w.CreateFormFile("pdf", "book.pdf")
		require.NoError(t, err)
		_, err = part.Write(pdf)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

var bookFields = map[string]string{"title": "Algebra", "author": "Sharma", "subject": "Math", "class": "10A"}

func TestEBookHandlerListUsesEnvelope(t *testing.T) {
	svc := &ebookServiceMock{books: []models.EBook{{ID: "b-1", Title: "Algebra", FileSize: "1.2 MB"}}}
	r := newTestRouter(t, svc, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/ebooks", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
	assert.Equal(t, "b-1", payload.Data[0]["_id"])
	assert.Equal(t, "1.2 MB", payload.Data[0]["fileSize"])
}

func TestEBookHandlerCreateMultipart(t *testing.T) {
	svc := &ebookServiceMock{}
	r := newTestRouter(t, svc, nil)

	body, contentType := multipartBody(t, bookFields, []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/ebooks", body)
	req.Header.Set("Content-Type", contentType)

	w := serve(r, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Algebra", svc.lastReq.Title)
	assert.Equal(t, "10A", svc.lastReq.Class)
	assert.True(t, svc.gotUpload)
	assert.Equal(t, []byte("%PDF-1.4"), svc.lastUpload)
}

func TestEBookHandlerUpdateWithoutFile(t *testing.T) {
	svc := &ebookServiceMock{}
	r := newTestRouter(t, svc, nil)

	body, contentType := multipartBody(t, bookFields, nil)
	req := httptest.NewRequest(http.MethodPut, "/api/ebooks/b-9", body)
	req.Header.Set("Content-Type", contentType)

	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b-9", svc.lastID)
	assert.False(t, svc.gotUpload)
}

func TestEBookHandlerRejectsOversizedBody(t *testing.T) {
	svc := &ebookServiceMock{}
	r := newTestRouter(t, svc, nil)

	body, contentType := multipartBody(t, bookFields, bytes.Repeat([]byte("x"), 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/api/ebooks", body)
	req.Header.Set("Content-Type", contentType)

	w := serve(r, req)
	assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
	assert.False(t, svc.gotUpload)
}

func TestEBookHandlerServiceErrors(t *testing.T) {
	svc := &ebookServiceMock{err: appErrors.Clone(appErrors.ErrUnsupportedMedia, "only PDF files are allowed")}
	r := newTestRouter(t, svc, nil)

	body, contentType := multipartBody(t, bookFields, []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/ebooks", body)
	req.Header.Set("Content-Type", contentType)
	assert.Equal(t, http.StatusUnsupportedMediaType, serve(r, req).Code)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "ebook not found")
	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodDelete, "/api/ebooks/b-1", nil)).Code)
}

func TestEBookHandlerDelete(t *testing.T) {
	svc := &ebookServiceMock{}
	r := newTestRouter(t, svc, nil)

	w := serve(r, httptest.NewRequest(http.MethodDelete, "/api/ebooks/b-3", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "b-3", svc.deleted)
}

func TestEBookHandlerDownloadSetsFilename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stored.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)

	svc := &ebookServiceMock{file: f, fileBook: &models.EBook{ID: "b-1", Title: `My "Best" Book`}}
	r := newTestRouter(t, svc, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/ebooks/b-1/download?token=t", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="My \"Best\" Book.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 body", w.Body.String())
}
