// Package portal holds the per-session state of the teacher pages and the operations a user
// triggers on them. Network failures are logged and otherwise ignored; every successful mutation
// is followed by a full re-list.
package portal

import (
	"context"
	"mime"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-teacher-portal/internal/client"
	"github.com/noah-isme/sma-teacher-portal/internal/models"
)

// Alerts shown to the user by the e-book page.
const (
	AlertOnlyPDF         = "Only PDF files are allowed."
	AlertNoFile          = "No file attached."
	AlertMissingBookInfo = "Please fill in title, author, subject and class."
)

const pdfMIME = "application/pdf"

// EBookAPI is the backend surface used by EBookPage.
type EBookAPI interface {
	ListEBooks(ctx context.Context) ([]models.EBook, error)
	CreateEBook(ctx context.Context, form client.EBookForm) error
	UpdateEBook(ctx context.Context, id string, form client.EBookForm) error
	DeleteEBook(ctx context.Context, id string) error
}

// EBookFields are the text inputs of the upload form.
type EBookFields struct {
	Title   string
	Author  string
	Subject string
	Class   string
}

func (f EBookFields) complete() bool {
	return f.Title != "" && f.Author != "" && f.Subject != "" && f.Class != ""
}

// FileSelection is a file picked in the browser.
type FileSelection struct {
	Name        string
	ContentType string
	Content     []byte
}

// EBookState is a snapshot of the page for rendering.
type EBookState struct {
	Books        []models.EBook
	FormVisible  bool
	Fields       EBookFields
	SelectedFile string
	Rejection    string
	EditMode     bool
	EditID       string
}

// Download tells the browser what to fetch and how to name it.
type Download struct {
	URL      string
	Filename string
}

// EBookPage is the e-book manager of one browser session.
type EBookPage struct {
	api    EBookAPI
	logger *zap.Logger

	mu          sync.Mutex
	books       []models.EBook
	formVisible bool
	fields      EBookFields
	file        *client.FileUpload
	rejection   string
	editMode    bool
	editID      string
}

// NewEBookPage builds an empty page.
func NewEBookPage(api EBookAPI, logger *zap.Logger) *EBookPage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EBookPage{api: api, logger: logger.With(zap.String("page", "ebooks"))}
}

// Load replaces the book list with a fresh fetch. The list is left untouched on failure.
func (p *EBookPage) Load(ctx context.Context) {
	books, err := p.api.ListEBooks(ctx)
	if err != nil {
		p.logger.Error("Failed to fetch books", zap.Error(err))
		return
	}
	p.mu.Lock()
	p.books = books
	p.mu.Unlock()
}

// OpenForm shows the upload form.
func (p *EBookPage) OpenForm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.formVisible = true
}

// SetFields replaces the text inputs.
func (p *EBookPage) SetFields(fields EBookFields) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields = fields
}

// SelectFile accepts a PDF as the pending upload. Anything else is rejected and the previous
// selection is kept.
func (p *EBookPage) SelectFile(sel FileSelection) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !isPDF(sel) {
		p.rejection = AlertOnlyPDF
		return AlertOnlyPDF
	}
	p.file = &client.FileUpload{Name: sel.Name, Content: sel.Content}
	p.rejection = ""
	return ""
}

// Submit creates or updates the book from the form. It returns an alert when a field is empty.
func (p *EBookPage) Submit(ctx context.Context) string {
	p.mu.Lock()
	fields, file, editMode, editID := p.fields, p.file, p.editMode, p.editID
	p.mu.Unlock()

	if !fields.complete() {
		return AlertMissingBookInfo
	}

	form := client.EBookForm{Title: fields.Title, Author: fields.Author, Subject: fields.Subject, Class: fields.Class, File: file}
	var err error
	if editMode {
		err = p.api.UpdateEBook(ctx, editID, form)
	} else {
		err = p.api.CreateEBook(ctx, form)
	}
	if err != nil {
		p.logger.Error("Upload failed", zap.Bool("edit", editMode), zap.String("ebook_id", editID), zap.Error(err))
		return ""
	}

	p.Cancel()
	p.Load(ctx)
	return ""
}

// Delete removes a book and re-lists.
func (p *EBookPage) Delete(ctx context.Context, id string) {
	if err := p.api.DeleteEBook(ctx, id); err != nil {
		p.logger.Error("Delete failed", zap.String("ebook_id", id), zap.Error(err))
		return
	}
	p.Load(ctx)
}

// Edit fills the form from a listed book without fetching anything.
func (p *EBookPage) Edit(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	book, ok := p.find(id)
	if !ok {
		return false
	}
	p.fields = EBookFields{Title: book.Title, Author: book.Author, Subject: book.Subject, Class: book.Class}
	p.editID = book.ID
	p.editMode = true
	p.formVisible = true
	return true
}

// Cancel resets the form to its initial hidden state.
func (p *EBookPage) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields = EBookFields{}
	p.file = nil
	p.rejection = ""
	p.editMode = false
	p.editID = ""
	p.formVisible = false
}

// Download resolves the file of a listed book, or returns AlertNoFile.
func (p *EBookPage) Download(id string) (*Download, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	book, ok := p.find(id)
	if !ok || book.PDFURL == "" {
		return nil, AlertNoFile
	}
	return &Download{URL: book.PDFURL, Filename: book.Title + ".pdf"}, ""
}

// State returns a copy of the page state.
func (p *EBookPage) State() EBookState {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := EBookState{
		Books:       append([]models.EBook(nil), p.books...),
		FormVisible: p.formVisible,
		Fields:      p.fields,
		Rejection:   p.rejection,
		EditMode:    p.editMode,
		EditID:      p.editID,
	}
	if p.file != nil {
		state.SelectedFile = p.file.Name
	}
	return state
}

func (p *EBookPage) find(id string) (models.EBook, bool) {
	for _, b := range p.books {
		if b.ID == id {
			return b, true
		}
	}
	return models.EBook{}, false
}

// isPDF trusts a declared content type and sniffs the bytes when none was sent.
func isPDF(sel FileSelection) bool {
	if sel.ContentType != "" && sel.ContentType != "application/octet-stream" {
		mediaType, _, err := mime.ParseMediaType(sel.ContentType)
		return err == nil && mediaType == pdfMIME
	}
	return len(sel.Content) > 0 && mimetype.Detect(sel.Content).Is(pdfMIME)
}
