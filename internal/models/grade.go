package models

import "time"

// Subject keys in display order.
const (
	SubjectMath          = "math"
	SubjectEnglish       = "english"
	SubjectScience       = "science"
	SubjectSocialStudies = "socialStudies"
	SubjectComputer      = "computer"
	SubjectHindi         = "hindi"
)

// Subjects lists the six scored subjects in the order they are shown and summed.
var Subjects = []string{
	SubjectMath,
	SubjectEnglish,
	SubjectScience,
	SubjectSocialStudies,
	SubjectComputer,
	SubjectHindi,
}

// Marks holds the six subject scores of a student.
type Marks struct {
	Math          float64 `db:"math" json:"math"`
	English       float64 `db:"english" json:"english"`
	Science       float64 `db:"science" json:"science"`
	SocialStudies float64 `db:"social_studies" json:"socialStudies"`
	Computer      float64 `db:"computer" json:"computer"`
	Hindi         float64 `db:"hindi" json:"hindi"`
}

// Values returns the scores in Subjects order.
func (m Marks) Values() []float64 {
	return []float64{m.Math, m.English, m.Science, m.SocialStudies, m.Computer, m.Hindi}
}

// Get returns the score for a subject key; unknown keys yield 0.
func (m Marks) Get(subject string) float64 {
	switch subject {
	case SubjectMath:
		return m.Math
	case SubjectEnglish:
		return m.English
	case SubjectScience:
		return m.Science
	case SubjectSocialStudies:
		return m.SocialStudies
	case SubjectComputer:
		return m.Computer
	case SubjectHindi:
		return m.Hindi
	}
	return 0
}

// Set stores a score for a subject key and reports whether the key is known.
func (m *Marks) Set(subject string, value float64) bool {
	switch subject {
	case SubjectMath:
		m.Math = value
	case SubjectEnglish:
		m.English = value
	case SubjectScience:
		m.Science = value
	case SubjectSocialStudies:
		m.SocialStudies = value
	case SubjectComputer:
		m.Computer = value
	case SubjectHindi:
		m.Hindi = value
	default:
		return false
	}
	return true
}

// Derived carries the values computed from Marks.
type Derived struct {
	TotalMarks float64 `db:"total_marks" json:"totalMarks"`
	Average    int     `db:"average" json:"average"`
	Grade      string  `db:"grade" json:"grade"`
}

// StudentGrade is a student's report row for one class.
type StudentGrade struct {
	ID     string `db:"id" json:"_id"`
	Name   string `db:"name" json:"name"`
	RollNo string `db:"roll_no" json:"rollNo"`
	Class  string `db:"class_name" json:"class"`
	Marks
	Derived
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}
