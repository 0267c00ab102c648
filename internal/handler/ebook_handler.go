package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-teacher-portal/internal/dto"
	"github.com/noah-isme/sma-teacher-portal/internal/models"
	"github.com/noah-isme/sma-teacher-portal/internal/service"
	appErrors "github.com/noah-isme/sma-teacher-portal/pkg/errors"
	"github.com/noah-isme/sma-teacher-portal/pkg/response"
)

// pdfFormField is the multipart part carrying the optional PDF.
const pdfFormField = "pdf"

// multipartOverhead is the slack allowed on top of the file limit for the text fields and boundaries.
const multipartOverhead = 1 << 20

type ebookService interface {
	List(ctx context.Context) ([]models.EBook, error)
	Create(ctx context.Context, req dto.EBookRequest, file *service.Upload) (*models.EBook, error)
	Update(ctx context.Context, id string, req dto.EBookRequest, file *service.Upload) (*models.EBook, error)
	Delete(ctx context.Context, id string) error
	OpenFile(ctx context.Context, id, token string) (*models.EBook, *os.File, error)
}

// EBookHandler serves /api/ebooks.
type EBookHandler struct {
	ebooks      ebookService
	maxFileSize int64
}

// NewEBookHandler constructs the handler.
func NewEBookHandler(ebooks ebookService, maxFileSize int64) *EBookHandler {
	if maxFileSize <= 0 {
		maxFileSize = 25 * 1024 * 1024
	}
	return &EBookHandler{ebooks: ebooks, maxFileSize: maxFileSize}
}

// List godoc
// @Summary List e-books
// @Tags EBooks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/ebooks [get]
func (h *EBookHandler) List(c *gin.Context) {
	books, err := h.ebooks.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, books)
}

// Create godoc
// @Summary Create e-book
// @Tags EBooks
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param author formData string true "Author"
// @Param subject formData string true "Subject"
// @Param class formData string true "Class"
// @Param pdf formData file false "PDF file"
// @Success 201 {object} response.Envelope
// @Router /api/ebooks [post]
func (h *EBookHandler) Create(c *gin.Context) {
	req, upload, cleanup, err := h.bindForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cleanup()

	book, err := h.ebooks.Create(c.Request.Context(), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, book)
}

// Update godoc
// @Summary Update e-book
// @Tags EBooks
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "E-book ID"
// @Param title formData string true "Title"
// @Param author formData string true "Author"
// @Param subject formData string true "Subject"
// @Param class formData string true "Class"
// @Param pdf formData file false "Replacement PDF"
// @Success 200 {object} response.Envelope
// @Router /api/ebooks/{id} [put]
func (h *EBookHandler) Update(c *gin.Context) {
	req, upload, cleanup, err := h.bindForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cleanup()

	book, err := h.ebooks.Update(c.Request.Context(), c.Param("id"), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book)
}

// Delete godoc
// @Summary Delete e-book
// @Tags EBooks
// @Param id path string true "E-book ID"
// @Success 204
// @Router /api/ebooks/{id} [delete]
func (h *EBookHandler) Delete(c *gin.Context) {
	if err := h.ebooks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download e-book PDF
// @Tags EBooks
// @Produce application/pdf
// @Param id path string true "E-book ID"
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /api/ebooks/{id}/download [get]
func (h *EBookHandler) Download(c *gin.Context) {
	book, file, err := h.ebooks.OpenFile(c.Request.Context(), c.Param("id"), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", attachment(book.Title+".pdf"))
	http.ServeContent(c.Writer, c.Request, book.Title+".pdf", info.ModTime(), file)
}

// bindForm reads the text fields and the optional PDF part. The returned cleanup closes the part.
func (h *EBookHandler) bindForm(c *gin.Context) (dto.EBookRequest, *service.Upload, func(), error) {
	noop := func() {}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+multipartOverhead)

	var req dto.EBookRequest
	if err := c.ShouldBind(&req); err != nil {
		return req, nil, noop, bindError(err)
	}

	header, err := c.FormFile(pdfFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return req, nil, noop, nil
		}
		return req, nil, noop, bindError(err)
	}
	return openUpload(req, header)
}

func openUpload(req dto.EBookRequest, header *multipart.FileHeader) (dto.EBookRequest, *service.Upload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return req, nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable pdf part")
	}
	upload := &service.Upload{Filename: header.Filename, Size: header.Size, Reader: f}
	return req, upload, func() { _ = f.Close() }, nil
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("request exceeds %d bytes", tooLarge.Limit))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid form payload")
}

// attachment builds a Content-Disposition value with the quotes of name escaped.
func attachment(name string) string {
	name = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "").Replace(name)
	return fmt.Sprintf(`attachment; filename="%s"`, name)
}
