package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-teacher-portal/internal/dto"
	"github.com/noah-isme/sma-teacher-portal/internal/models"
	appErrors "github.com/noah-isme/sma-teacher-portal/pkg/errors"
	"github.com/noah-isme/sma-teacher-portal/pkg/jobs"
)

// JobTypeFileCleanup removes a stored PDF that no record references any more.
const JobTypeFileCleanup = "ebook.file_cleanup"

const pdfMIME = "application/pdf"

// sniffLen is how much of an upload is buffered for content detection.
const sniffLen = 3072

type ebookRepository interface {
	List(ctx context.Context) ([]models.EBook, error)
	FindByID(ctx context.Context, id string) (*models.EBook, error)
	Create(ctx context.Context, book *models.EBook) error
	Update(ctx context.Context, book *models.EBook) error
	Delete(ctx context.Context, id string) error
}

type fileStore interface {
	SaveStream(name string, r io.Reader) (int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type downloadSigner interface {
	Sign(id, name string) (string, error)
	Verify(token, id, name string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// EBookConfig carries the settings the e-book service needs from config.
type EBookConfig struct {
	PublicBaseURL string
	MaxFileSize   int64
}

// Upload is the optional PDF part of an e-book form.
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// EBookService manages e-book records and their PDF files.
type EBookService struct {
	repo      ebookRepository
	files     fileStore
	signer    downloadSigner
	cleanup   jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       EBookConfig
}

// NewEBookService wires the service. cleanup may be nil, in which case stale files are removed inline.
func NewEBookService(repo ebookRepository, files fileStore, signer downloadSigner, cleanup jobEnqueuer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg EBookConfig) *EBookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 25 * 1024 * 1024
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &EBookService{
		repo:      repo,
		files:     files,
		signer:    signer,
		cleanup:   cleanup,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// List returns every e-book with display fields populated.
func (s *EBookService) List(ctx context.Context) ([]models.EBook, error) {
	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ebooks")
	}
	for i := range books {
		s.decorate(&books[i])
	}
	return books, nil
}

// Create stores a new e-book, with its PDF when one is uploaded.
func (s *EBookService) Create(ctx context.Context, req dto.EBookRequest, file *Upload) (*models.EBook, error) {
	req = req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	book := &models.EBook{Title: req.Title, Author: req.Author, Subject: req.Subject, Class: req.Class}
	if file != nil {
		if err := s.storeFile(book, file); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, book); err != nil {
		s.discard(book.FilePath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create ebook")
	}
	s.decorate(book)
	return book, nil
}

// Update rewrites the text fields and replaces the PDF only when a new one is uploaded.
func (s *EBookService) Update(ctx context.Context, id string, req dto.EBookRequest, file *Upload) (*models.EBook, error) {
	req = req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err)
	}
	book.Title, book.Author, book.Subject, book.Class = req.Title, req.Author, req.Subject, req.Class

	var previous *string
	if file != nil {
		previous = book.FilePath
		if err := s.storeFile(book, file); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, book); err != nil {
		if file != nil {
			s.discard(book.FilePath)
		}
		return nil, s.lookupError(err)
	}
	s.scheduleCleanup(book.ID, previous)
	s.decorate(book)
	return book, nil
}

// Delete removes the record; its PDF is removed in the background.
func (s *EBookService) Delete(ctx context.Context, id string) error {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.lookupError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(err)
	}
	s.scheduleCleanup(id, book.FilePath)
	return nil
}

// OpenFile checks a download token and opens the stored PDF. The caller closes the file.
func (s *EBookService) OpenFile(ctx context.Context, id, token string) (*models.EBook, *os.File, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, s.lookupError(err)
	}
	if !book.HasFile() {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no file attached")
	}
	if err := s.signer.Verify(token, book.ID, *book.FilePath); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download link")
	}
	f, err := s.files.Open(*book.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file missing")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return book, f, nil
}

// CleanupHandler is the jobs.Handler removing a stored file named by the job payload.
func (s *EBookService) CleanupHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		err := s.files.Delete(job.Payload)
		s.metrics.RecordFileCleanup(err)
		return err
	}
}

// storeFile sniffs, size-checks and saves the upload, pointing book at the new file.
func (s *EBookService) storeFile(book *models.EBook, file *Upload) error {
	if file.Size > s.cfg.MaxFileSize {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("pdf exceeds %d bytes", s.cfg.MaxFileSize))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return appErrors.Clone(appErrors.ErrValidation, "pdf file is empty")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	head = head[:n]
	if mt := mimetype.Detect(head); !mt.Is(pdfMIME) {
		return appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("only PDF files are allowed, got %s", mt.String()))
	}

	name := uuid.NewString() + ".pdf"
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), file.Reader), s.cfg.MaxFileSize+1)
	written, err := s.files.SaveStream(name, body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pdf")
	}
	if written > s.cfg.MaxFileSize {
		_ = s.files.Delete(name)
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("pdf exceeds %d bytes", s.cfg.MaxFileSize))
	}

	mime := pdfMIME
	book.FilePath = &name
	book.MimeType = &mime
	book.SizeBytes = written
	s.metrics.RecordUpload(written)
	return nil
}

func (s *EBookService) scheduleCleanup(id string, path *string) {
	if path == nil || *path == "" {
		return
	}
	if s.cleanup != nil {
		err := s.cleanup.Enqueue(jobs.Job{ID: id + ":" + *path, Type: JobTypeFileCleanup, Payload: *path})
		if err == nil {
			return
		}
		s.logger.Warn("enqueue file cleanup failed, deleting inline", zap.String("path", *path), zap.Error(err))
	}
	s.discard(path)
}

func (s *EBookService) discard(path *string) {
	if path == nil || *path == "" {
		return
	}
	err := s.files.Delete(*path)
	s.metrics.RecordFileCleanup(err)
	if err != nil {
		s.logger.Warn("delete stored file failed", zap.String("path", *path), zap.Error(err))
	}
}

func (s *EBookService) decorate(book *models.EBook) {
	if !book.UploadedAt.IsZero() {
		book.UploadDate = book.UploadedAt.Format("2006-01-02")
	}
	if !book.HasFile() {
		return
	}
	book.FileSize = humanSize(book.SizeBytes)
	token, err := s.signer.Sign(book.ID, *book.FilePath)
	if err != nil {
		s.logger.Warn("sign download url failed", zap.String("ebook_id", book.ID), zap.Error(err))
		return
	}
	book.PDFURL = fmt.Sprintf("%s/api/ebooks/%s/download?token=%s", s.cfg.PublicBaseURL, url.PathEscape(book.ID), url.QueryEscape(token))
}

func (s *EBookService) lookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "ebook not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist ebook")
}

// humanSize formats a byte count the way the listing shows it, e.g. "1.2 MB".
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
