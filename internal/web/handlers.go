// Package web serves the teacher portal as server-rendered pages backed by the portal page stores.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-teacher-portal/internal/models"
	"github.com/noah-isme/sma-teacher-portal/internal/portal"
	"github.com/noah-isme/sma-teacher-portal/pkg/logger"
	reqidmiddleware "github.com/noah-isme/sma-teacher-portal/pkg/middleware/requestid"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageEBooks  = "ebooks"
	pageReports = "reports"

	pdfFormField      = "pdf"
	multipartOverhead = 1 << 20
	maxFieldBytes     = 64 << 10
)

// AlertFileTooLarge is shown when the chosen PDF exceeds the upload limit. The typed fields are kept.
const AlertFileTooLarge = "The selected file is too large."

// FileFetcher downloads a stored PDF from the backend.
type FileFetcher interface {
	FetchFile(ctx context.Context, fileURL string) (io.ReadCloser, string, error)
}

type subjectColumn struct {
	Key   string
	Label string
}

var subjectColumns = []subjectColumn{
	{Key: models.SubjectMath, Label: "Math"},
	{Key: models.SubjectEnglish, Label: "English"},
	{Key: models.SubjectScience, Label: "Science"},
	{Key: models.SubjectSocialStudies, Label: "Social Studies"},
	{Key: models.SubjectComputer, Label: "Computer"},
	{Key: models.SubjectHindi, Label: "Hindi"},
}

type pageData struct {
	Title    string
	Active   string
	Notice   string
	EBooks   *portal.EBookState
	Reports  *portal.ReportsState
	Subjects []subjectColumn
}

// Handler renders both portal pages.
type Handler struct {
	sessions  *SessionStore
	files     FileFetcher
	logger    *zap.Logger
	maxUpload int64
	pages     map[string]*template.Template
}

// NewHandler parses the embedded templates.
func NewHandler(sessions *SessionStore, files FileFetcher, maxUpload int64, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = 25 * 1024 * 1024
	}
	funcs := template.FuncMap{
		"mark": func(m models.Marks, subject string) string {
			return formatScore(m.Get(subject))
		},
		"score":   formatScore,
		"compute": portal.Compute,
	}
	pages := make(map[string]*template.Template, 2)
	for _, name := range []string{pageEBooks, pageReports} {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Handler{sessions: sessions, files: files, logger: logger, maxUpload: maxUpload, pages: pages}, nil
}

// NewRouter builds the portal engine.
func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	h.Register(r)
	return r
}

// Register mounts the page routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/ebooks") })
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	ebooks := r.Group("/ebooks")
	ebooks.GET("", h.EBooks)
	ebooks.POST("/form/open", h.OpenEBookForm)
	ebooks.POST("/submit", h.SubmitEBook)
	ebooks.POST("/cancel", h.CancelEBook)
	ebooks.POST("/:id/edit", h.EditEBook)
	ebooks.POST("/:id/delete", h.DeleteEBook)
	ebooks.GET("/:id/download", h.DownloadEBook)

	reports := r.Group("/reports")
	reports.GET("", h.Reports)
	reports.POST("/add/open", h.OpenAdd)
	reports.POST("/add/close", h.CloseAdd)
	reports.POST("/add", h.AddStudent)
	reports.POST("/edit/close", h.CloseEdit)
	reports.POST("/edit", h.SaveEdit)
	reports.POST("/:id/edit", h.OpenEdit)
	reports.POST("/:id/delete", h.DeleteStudent)
}

// EBooks renders the e-book manager. Entering the page re-lists the books.
func (h *Handler) EBooks(c *gin.Context) {
	sess := h.sessions.Get(c)
	if !sess.takeSettled(pageEBooks) {
		sess.EBooks.Load(c.Request.Context())
	}
	state := sess.EBooks.State()
	h.render(c, pageEBooks, pageData{Title: "E-Books", Active: pageEBooks, Notice: sess.TakeNotice(), EBooks: &state})
}

func (h *Handler) OpenEBookForm(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.EBooks.OpenForm()
	h.back(c, sess, pageEBooks)
}

// SubmitEBook applies the posted form. A rejected or oversized file stops the submission and keeps
// the typed fields.
func (h *Handler) SubmitEBook(c *gin.Context) {
	sess := h.sessions.Get(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)

	fields, sel, err := h.readUpload(c)
	sess.EBooks.SetFields(fields)
	switch {
	case errors.Is(err, errFileTooLarge):
		h.logger.Warn("upload exceeds limit", zap.Int64("limit", h.maxUpload))
		sess.Flash(AlertFileTooLarge)
		h.back(c, sess, pageEBooks)
		return
	case err != nil:
		h.logger.Error("Upload failed", zap.Error(err))
		h.back(c, sess, pageEBooks)
		return
	}

	if sel != nil {
		if alert := sess.EBooks.SelectFile(*sel); alert != "" {
			sess.Flash(alert)
			h.back(c, sess, pageEBooks)
			return
		}
	}

	sess.Flash(sess.EBooks.Submit(c.Request.Context()))
	h.back(c, sess, pageEBooks)
}

func (h *Handler) CancelEBook(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.EBooks.Cancel()
	h.back(c, sess, pageEBooks)
}

func (h *Handler) EditEBook(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.EBooks.Edit(c.Param("id"))
	h.back(c, sess, pageEBooks)
}

func (h *Handler) DeleteEBook(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.EBooks.Delete(c.Request.Context(), c.Param("id"))
	h.back(c, sess, pageEBooks)
}

// DownloadEBook streams the attached PDF named after the book title.
func (h *Handler) DownloadEBook(c *gin.Context) {
	sess := h.sessions.Get(c)
	dl, alert := sess.EBooks.Download(c.Param("id"))
	if alert != "" {
		sess.Flash(alert)
		h.back(c, sess, pageEBooks)
		return
	}

	body, contentType, err := h.files.FetchFile(c.Request.Context(), dl.URL)
	if err != nil {
		h.logger.Error("Download failed", zap.String("ebook_id", c.Param("id")), zap.Error(err))
		h.back(c, sess, pageEBooks)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/pdf"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", attachment(dl.Filename))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.logger.Warn("download interrupted", zap.String("ebook_id", c.Param("id")), zap.Error(err))
	}
}

// Reports renders the grade report manager. A changed ?class re-lists that class; entering the
// page re-lists the selected one.
func (h *Handler) Reports(c *gin.Context) {
	sess := h.sessions.Get(c)
	ctx := c.Request.Context()
	settled := sess.takeSettled(pageReports)

	if class, ok := c.GetQuery("class"); ok && class != sess.Reports.State().SelectedClass {
		sess.Reports.SelectClass(ctx, class)
	} else if !settled {
		sess.Reports.Load(ctx)
	}

	state := sess.Reports.State()
	h.render(c, pageReports, pageData{
		Title:    "Reports",
		Active:   pageReports,
		Notice:   sess.TakeNotice(),
		Reports:  &state,
		Subjects: subjectColumns,
	})
}

func (h *Handler) OpenAdd(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.Reports.OpenAdd()
	h.back(c, sess, pageReports)
}

func (h *Handler) CloseAdd(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.Reports.CloseAdd()
	h.back(c, sess, pageReports)
}

func (h *Handler) AddStudent(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.Reports.SetDraft(portal.StudentDraft{
		Name:   c.PostForm("name"),
		RollNo: c.PostForm("rollNo"),
		Marks:  postedMarks(c),
	})
	sess.Flash(sess.Reports.Add(c.Request.Context()))
	h.back(c, sess, pageReports)
}

func (h *Handler) OpenEdit(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.Reports.OpenEdit(c.Param("id"))
	h.back(c, sess, pageReports)
}

func (h *Handler) CloseEdit(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.Reports.CloseEdit()
	h.back(c, sess, pageReports)
}

func (h *Handler) SaveEdit(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.Reports.SetEditMarks(postedMarks(c))
	sess.Reports.SaveEdit(c.Request.Context())
	h.back(c, sess, pageReports)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	sess := h.sessions.Get(c)
	sess.Reports.Delete(c.Request.Context(), c.Param("id"))
	h.back(c, sess, pageReports)
}

// back redirects to the page after an action. The action already re-listed when it needed to,
// so the following render skips its own fetch.
func (h *Handler) back(c *gin.Context, sess *Session, page string) {
	sess.settle(page)
	c.Redirect(http.StatusSeeOther, "/"+page)
}

func (h *Handler) render(c *gin.Context, page string, data pageData) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := h.pages[page].ExecuteTemplate(c.Writer, "layout.html", data); err != nil {
		h.logger.Error("render page", zap.String("page", page), zap.Error(err))
	}
}

var errFileTooLarge = errors.New("pdf exceeds upload limit")

// readUpload streams the upload form. Text parts arrive before the file in browser submissions, so
// the fields read so far are returned even when the file turns out too large. A part without a
// chosen file yields a nil selection.
func (h *Handler) readUpload(c *gin.Context) (portal.EBookFields, *portal.FileSelection, error) {
	var fields portal.EBookFields
	reader, err := c.Request.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return postedFields(c), nil, nil
		}
		return fields, nil, err
	}

	var sel *portal.FileSelection
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return fields, sel, nil
		}
		if err != nil {
			return fields, nil, tooLarge(err)
		}

		if part.FormName() == pdfFormField {
			if part.FileName() == "" {
				continue
			}
			content, err := io.ReadAll(io.LimitReader(part, h.maxUpload+1))
			if err != nil {
				return fields, nil, tooLarge(err)
			}
			if int64(len(content)) > h.maxUpload {
				return fields, nil, errFileTooLarge
			}
			sel = &portal.FileSelection{Name: part.FileName(), ContentType: part.Header.Get("Content-Type"), Content: content}
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
		if err != nil {
			return fields, nil, tooLarge(err)
		}
		switch part.FormName() {
		case "title":
			fields.Title = string(value)
		case "author":
			fields.Author = string(value)
		case "subject":
			fields.Subject = string(value)
		case "class":
			fields.Class = string(value)
		}
	}
}

func postedFields(c *gin.Context) portal.EBookFields {
	return portal.EBookFields{
		Title:   c.PostForm("title"),
		Author:  c.PostForm("author"),
		Subject: c.PostForm("subject"),
		Class:   c.PostForm("class"),
	}
}

func tooLarge(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errFileTooLarge
	}
	return err
}

func postedMarks(c *gin.Context) models.Marks {
	var m models.Marks
	for _, col := range subjectColumns {
		m.Set(col.Key, portal.ParseMark(c.PostForm(col.Key)))
	}
	return m
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func attachment(filename string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(filename)
	return fmt.Sprintf(`attachment; filename="%s"`, escaped)
}
