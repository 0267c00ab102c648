package dto

import "github.com/noah-isme/sma-teacher-portal/internal/models"

// GradeScores are the six subject scores accepted by the grades API.
type GradeScores struct {
	Math          float64 `json:"math" validate:"gte=0,lte=100"`
	English       float64 `json:"english" validate:"gte=0,lte=100"`
	Science       float64 `json:"science" validate:"gte=0,lte=100"`
	SocialStudies float64 `json:"socialStudies" validate:"gte=0,lte=100"`
	Computer      float64 `json:"computer" validate:"gte=0,lte=100"`
	Hindi         float64 `json:"hindi" validate:"gte=0,lte=100"`
}

// ScoresFromMarks copies model marks into the request shape.
func ScoresFromMarks(m models.Marks) GradeScores {
	return GradeScores(m)
}

// Marks converts the scores to the model type.
func (s GradeScores) Marks() models.Marks {
	return models.Marks(s)
}

// ClientDerived holds the derived values a client computed before sending. They are optional
// because only the portal sends them.
type ClientDerived struct {
	TotalMarks *float64 `json:"totalMarks,omitempty"`
	Average    *int     `json:"average,omitempty"`
	Grade      string   `json:"grade,omitempty"`
}

// DerivedFrom wraps computed values for sending.
func DerivedFrom(d models.Derived) ClientDerived {
	total := d.TotalMarks
	avg := d.Average
	return ClientDerived{TotalMarks: &total, Average: &avg, Grade: d.Grade}
}

// Matches reports whether every value the client sent equals the computed one.
func (c ClientDerived) Matches(d models.Derived) bool {
	if c.TotalMarks != nil && *c.TotalMarks != d.TotalMarks {
		return false
	}
	if c.Average != nil && *c.Average != d.Average {
		return false
	}
	if c.Grade != "" && c.Grade != d.Grade {
		return false
	}
	return true
}

// CreateGradeRequest is the payload of POST /grades.
type CreateGradeRequest struct {
	Name   string `json:"name" validate:"required"`
	RollNo string `json:"rollNo" validate:"required"`
	Class  string `json:"class" validate:"required"`
	GradeScores
	ClientDerived
}

// UpdateGradeRequest is the payload of PUT /grades/:id.
type UpdateGradeRequest struct {
	Class string `json:"class" validate:"required"`
	GradeScores
	ClientDerived
}
