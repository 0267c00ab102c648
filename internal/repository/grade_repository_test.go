package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-teacher-portal/internal/models"
)

var gradeRowColumns = []string{"id", "name", "roll_no", "class_name", "math", "english", "science", "social_studies",
	"computer", "hindi", "total_marks", "average", "grade", "created_at", "updated_at"}

func TestGradeRepositoryListByClass(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewGradeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(gradeRowColumns).
		AddRow("s-1", "Asha", "1", "10A", 95, 88, 92, 91, 89, 85, 540, 90, "A+", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_grades WHERE class_name = $1")).
		WithArgs("10A").
		WillReturnRows(rows)

	students, err := repo.ListByClass(context.Background(), "10A")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 91.0, students[0].SocialStudies)
	assert.Equal(t, 90, students[0].Average)
	assert.Equal(t, "A+", students[0].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListEmptyIsNotNil(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_grades")).
		WithArgs("9B").
		WillReturnRows(sqlmock.NewRows(gradeRowColumns))

	students, err := repo.ListByClass(context.Background(), "9B")
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)
}

func TestGradeRepositoryCreateAndUpdate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_grades")).WillReturnResult(sqlmock.NewResult(1, 1))
	row := &models.StudentGrade{Name: "Ravi", RollNo: "7", Class: "9A", Derived: models.Derived{Grade: "F"}}
	require.NoError(t, repo.Create(context.Background(), row))
	assert.NotEmpty(t, row.ID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_grades SET class_name")).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateMarks(context.Background(), row), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryDelete(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_grades WHERE id = $1")).
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "s-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryMalformedIDIsMissing(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewGradeRepository(db)
	badID := &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_grades WHERE id = $1")).
		WithArgs("abc").
		WillReturnError(badID)
	_, err := repo.FindByID(context.Background(), "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_grades SET class_name")).WillReturnError(badID)
	assert.ErrorIs(t, repo.UpdateMarks(context.Background(), &models.StudentGrade{ID: "abc"}), sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_grades WHERE id = $1")).
		WithArgs("abc").
		WillReturnError(badID)
	assert.ErrorIs(t, repo.Delete(context.Background(), "abc"), sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_grades WHERE id = $1")).
		WithArgs("s-1").
		WillReturnError(&pq.Error{Code: "57P01"})
	err = repo.Delete(context.Background(), "s-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
