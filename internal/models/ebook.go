package models

import "time"

// EBook is one library entry with an optional stored PDF.
//
// Storage columns are hidden from JSON; FileSize, UploadDate and PDFURL are display values filled
// in by the service before a record leaves the API.
type EBook struct {
	ID         string    `db:"id" json:"_id"`
	Title      string    `db:"title" json:"title"`
	Author     string    `db:"author" json:"author"`
	Subject    string    `db:"subject" json:"subject"`
	Class      string    `db:"class_name" json:"class"`
	FilePath   *string   `db:"file_path" json:"-"`
	MimeType   *string   `db:"mime_type" json:"-"`
	SizeBytes  int64     `db:"size_bytes" json:"-"`
	UploadedAt time.Time `db:"uploaded_at" json:"-"`
	UpdatedAt  time.Time `db:"updated_at" json:"-"`

	FileSize   string `db:"-" json:"fileSize,omitempty"`
	UploadDate string `db:"-" json:"uploadDate,omitempty"`
	PDFURL     string `db:"-" json:"pdfUrl,omitempty"`
}

// HasFile reports whether a PDF is stored for the record.
func (b *EBook) HasFile() bool {
	return b.FilePath != nil && *b.FilePath != ""
}
