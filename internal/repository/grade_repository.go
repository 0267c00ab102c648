package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-teacher-portal/internal/models"
)

const gradeColumns = `id, name, roll_no, class_name, math, english, science, social_studies, computer, hindi,
	total_marks, average, grade, created_at, updated_at`

// GradeRepository persists student report rows.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByClass returns the students of a class ordered by roll number.
func (r *GradeRepository) ListByClass(ctx context.Context, className string) ([]models.StudentGrade, error) {
	query := `SELECT ` + gradeColumns + ` FROM student_grades WHERE class_name = $1
	ORDER BY length(roll_no), roll_no, name`
	rows := make([]models.StudentGrade, 0)
	if err := r.db.SelectContext(ctx, &rows, query, className); err != nil {
		return nil, fmt.Errorf("list grades for class %s: %w", className, err)
	}
	return rows, nil
}

// FindByID loads a single student row.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.StudentGrade, error) {
	query := `SELECT ` + gradeColumns + ` FROM student_grades WHERE id = $1`
	var row models.StudentGrade
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, missingOnBadID(err)
	}
	return &row, nil
}

// Create inserts a student row.
func (r *GradeRepository) Create(ctx context.Context, row *models.StudentGrade) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	const query = `INSERT INTO student_grades (` + gradeColumns + `)
	VALUES (:id, :name, :roll_no, :class_name, :math, :english, :science, :social_studies, :computer, :hindi,
	:total_marks, :average, :grade, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// UpdateMarks overwrites scores, derived values and class of a student row.
func (r *GradeRepository) UpdateMarks(ctx context.Context, row *models.StudentGrade) error {
	row.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_grades SET class_name = :class_name, math = :math, english = :english,
	science = :science, social_studies = :social_studies, computer = :computer, hindi = :hindi,
	total_marks = :total_marks, average = :average, grade = :grade, updated_at = :updated_at
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update grade: %w", missingOnBadID(err))
	}
	return expectOneRow(res, "update grade")
}

// Delete removes a student row.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM student_grades WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete grade: %w", missingOnBadID(err))
	}
	return expectOneRow(res, "delete grade")
}
