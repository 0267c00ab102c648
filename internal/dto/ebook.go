package dto

import "strings"

// EBookRequest carries the text fields of the e-book multipart form.
type EBookRequest struct {
	Title   string `form:"title" json:"title" validate:"required"`
	Author  string `form:"author" json:"author" validate:"required"`
	Subject string `form:"subject" json:"subject" validate:"required"`
	Class   string `form:"class" json:"class" validate:"required"`
}

// Normalize trims surrounding whitespace from every field.
func (r EBookRequest) Normalize() EBookRequest {
	return EBookRequest{
		Title:   strings.TrimSpace(r.Title),
		Author:  strings.TrimSpace(r.Author),
		Subject: strings.TrimSpace(r.Subject),
		Class:   strings.TrimSpace(r.Class),
	}
}
