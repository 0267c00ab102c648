package portal

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-teacher-portal/internal/dto"
	"github.com/noah-isme/sma-teacher-portal/internal/grading"
	"github.com/noah-isme/sma-teacher-portal/internal/models"
)

// AlertMissingStudent is shown when the add dialog lacks a name or roll number.
const AlertMissingStudent = "Please enter student's name and roll number."

// GradesAPI is the backend surface used by ReportsPage.
type GradesAPI interface {
	ListStudents(ctx context.Context, className string) ([]models.StudentGrade, error)
	CreateStudent(ctx context.Context, req dto.CreateGradeRequest) error
	UpdateStudent(ctx context.Context, id string, req dto.UpdateGradeRequest) error
	DeleteStudent(ctx context.Context, id string) error
}

// StudentDraft holds the inputs of the add dialog.
type StudentDraft struct {
	Name   string
	RollNo string
	Marks  models.Marks
}

// ReportsState is a snapshot of the page for rendering.
type ReportsState struct {
	Classes       []string
	SelectedClass string
	Students      []models.StudentGrade
	EditOpen      bool
	Editing       *models.StudentGrade
	EditMarks     models.Marks
	AddOpen       bool
	Draft         StudentDraft
}

// ReportsPage is the grade report manager of one browser session.
type ReportsPage struct {
	api     GradesAPI
	logger  *zap.Logger
	classes []string

	mu            sync.Mutex
	selectedClass string
	students      []models.StudentGrade
	editOpen      bool
	editing       *models.StudentGrade
	editMarks     models.Marks
	addOpen       bool
	draft         StudentDraft
}

// NewReportsPage builds a page showing defaultClass.
func NewReportsPage(api GradesAPI, classes []string, defaultClass string, logger *zap.Logger) *ReportsPage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportsPage{
		api:           api,
		logger:        logger.With(zap.String("page", "reports")),
		classes:       append([]string(nil), classes...),
		selectedClass: defaultClass,
	}
}

// Compute derives total, average and letter grade from the marks.
func Compute(m models.Marks) models.Derived {
	return grading.Compute(m)
}

// ParseMark converts a raw input to a score; anything unparsable counts as 0.
func ParseMark(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Load re-fetches the students of the selected class.
func (p *ReportsPage) Load(ctx context.Context) {
	p.mu.Lock()
	class := p.selectedClass
	p.mu.Unlock()

	students, err := p.api.ListStudents(ctx, class)
	if err != nil {
		p.logger.Error("Failed to fetch students", zap.String("class", class), zap.Error(err))
		return
	}
	p.mu.Lock()
	p.students = students
	p.mu.Unlock()
}

// SelectClass switches class and re-fetches when it actually changed.
func (p *ReportsPage) SelectClass(ctx context.Context, class string) {
	p.mu.Lock()
	changed := class != p.selectedClass
	p.selectedClass = class
	p.mu.Unlock()
	if changed {
		p.Load(ctx)
	}
}

// OpenEdit opens the edit dialog for a listed student with its current marks.
func (p *ReportsPage) OpenEdit(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.students {
		if p.students[i].ID == id {
			student := p.students[i]
			p.editing = &student
			p.editMarks = student.Marks
			p.editOpen = true
			return true
		}
	}
	return false
}

// SetEditMark stores one draft score of the edit dialog.
func (p *ReportsPage) SetEditMark(subject, raw string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.editMarks.Set(subject, ParseMark(raw))
}

// SetEditMarks replaces every draft score of the edit dialog.
func (p *ReportsPage) SetEditMarks(m models.Marks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editMarks = m
}

// CloseEdit hides the edit dialog.
func (p *ReportsPage) CloseEdit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editOpen = false
	p.editing = nil
}

// SaveEdit sends the edited marks, tagged with the selected class. The dialog closes only on success.
func (p *ReportsPage) SaveEdit(ctx context.Context) {
	p.mu.Lock()
	editing, marks, class := p.editing, p.editMarks, p.selectedClass
	p.mu.Unlock()
	if editing == nil {
		return
	}

	req := dto.UpdateGradeRequest{
		Class:         class,
		GradeScores:   dto.ScoresFromMarks(marks),
		ClientDerived: dto.DerivedFrom(Compute(marks)),
	}
	if err := p.api.UpdateStudent(ctx, editing.ID, req); err != nil {
		p.logger.Error("Update failed", zap.String("student_id", editing.ID), zap.Error(err))
		return
	}
	p.CloseEdit()
	p.Load(ctx)
}

// OpenAdd shows the add dialog.
func (p *ReportsPage) OpenAdd() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addOpen = true
}

// CloseAdd hides the add dialog and keeps the draft.
func (p *ReportsPage) CloseAdd() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addOpen = false
}

// SetDraft replaces the add dialog inputs.
func (p *ReportsPage) SetDraft(d StudentDraft) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft = d
}

// Add creates a student in the selected class. Without a name or roll number it returns
// AlertMissingStudent and sends nothing.
func (p *ReportsPage) Add(ctx context.Context) string {
	p.mu.Lock()
	draft, class := p.draft, p.selectedClass
	p.mu.Unlock()

	if draft.Name == "" || draft.RollNo == "" {
		return AlertMissingStudent
	}

	req := dto.CreateGradeRequest{
		Name:          draft.Name,
		RollNo:        draft.RollNo,
		Class:         class,
		GradeScores:   dto.ScoresFromMarks(draft.Marks),
		ClientDerived: dto.DerivedFrom(Compute(draft.Marks)),
	}
	if err := p.api.CreateStudent(ctx, req); err != nil {
		p.logger.Error("Failed to add student", zap.String("class", class), zap.Error(err))
		return ""
	}

	p.mu.Lock()
	p.addOpen = false
	p.draft = StudentDraft{}
	p.mu.Unlock()
	p.Load(ctx)
	return ""
}

// Delete removes a student and re-lists.
func (p *ReportsPage) Delete(ctx context.Context, id string) {
	if err := p.api.DeleteStudent(ctx, id); err != nil {
		p.logger.Error("Delete failed", zap.String("student_id", id), zap.Error(err))
		return
	}
	p.Load(ctx)
}

// State returns a copy of the page state.
func (p *ReportsPage) State() ReportsState {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := ReportsState{
		Classes:       append([]string(nil), p.classes...),
		SelectedClass: p.selectedClass,
		Students:      append([]models.StudentGrade(nil), p.students...),
		EditOpen:      p.editOpen,
		EditMarks:     p.editMarks,
		AddOpen:       p.addOpen,
		Draft:         p.draft,
	}
	if p.editing != nil {
		editing := *p.editing
		state.Editing = &editing
	}
	return state
}
