package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-teacher-portal/internal/dto"
	"github.com/noah-isme/sma-teacher-portal/internal/models"
	appErrors "github.com/noah-isme/sma-teacher-portal/pkg/errors"
)

type memGradeRepo struct {
	rows      map[string]models.StudentGrade
	listCalls int
	seq       int
	failList  error
}

func newMemGradeRepo(rows ...models.StudentGrade) *memGradeRepo {
	repo := &memGradeRepo{rows: map[string]models.StudentGrade{}}
	for _, r := range rows {
		repo.rows[r.ID] = r
	}
	return repo
}

func (m *memGradeRepo) ListByClass(ctx context.Context, className string) ([]models.StudentGrade, error) {
	m.listCalls++
	if m.failList != nil {
		return nil, m.failList
	}
	out := make([]models.StudentGrade, 0)
	for _, r := range m.rows {
		if r.Class == className {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memGradeRepo) FindByID(ctx context.Context, id string) (*models.StudentGrade, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (m *memGradeRepo) Create(ctx context.Context, row *models.StudentGrade) error {
	m.seq++
	row.ID = "s-new-" + string(rune('0'+m.seq))
	m.rows[row.ID] = *row
	return nil
}

func (m *memGradeRepo) UpdateMarks(ctx context.Context, row *models.StudentGrade) error {
	if _, ok := m.rows[row.ID]; !ok {
		return sql.ErrNoRows
	}
	m.rows[row.ID] = *row
	return nil
}

func (m *memGradeRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.rows, id)
	return nil
}

var asha = models.StudentGrade{
	ID: "s-1", Name: "Asha", RollNo: "1", Class: "10A",
	Marks:   models.Marks{Math: 95, English: 88, Science: 92, SocialStudies: 91, Computer: 89, Hindi: 85},
	Derived: models.Derived{TotalMarks: 540, Average: 90, Grade: "A+"},
}

func scores(v float64) dto.GradeScores {
	return dto.GradeScores{Math: v, English: v, Science: v, SocialStudies: v, Computer: v, Hindi: v}
}

func TestGradeServiceCreateRecomputesDerived(t *testing.T) {
	repo := newMemGradeRepo()
	svc := NewGradeService(repo, nil, nil, nil, nil, zap.NewNop())

	row, err := svc.Create(context.Background(), dto.CreateGradeRequest{
		Name: " Ravi ", RollNo: "7", Class: "9A",
		GradeScores: dto.GradeScores{Math: 65, English: 70, Science: 60, SocialStudies: 55, Computer: 75, Hindi: 62},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ravi", row.Name)
	assert.Equal(t, 387.0, row.TotalMarks)
	assert.Equal(t, 65, row.Average)
	assert.Equal(t, "B+", row.Grade)
	assert.Contains(t, repo.rows, row.ID)
}

func TestGradeServiceCreateWarnsOnDerivedMismatch(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewGradeService(newMemGradeRepo(), nil, nil, NewMetricsService(), nil, zap.New(core))

	wrongAvg := 12
	row, err := svc.Create(context.Background(), dto.CreateGradeRequest{
		Name: "Meera", RollNo: "3", Class: "10A",
		GradeScores:   scores(30),
		ClientDerived: dto.ClientDerived{Average: &wrongAvg, Grade: "A+"},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, row.Average)
	assert.Equal(t, "F", row.Grade)
	assert.Equal(t, 1, logs.FilterMessage("client derived values differ from computed").Len())
}

func TestGradeServiceCreateValidation(t *testing.T) {
	svc := NewGradeService(newMemGradeRepo(), nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateGradeRequest{Name: "", RollNo: "1", Class: "10A"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), dto.CreateGradeRequest{Name: "A", RollNo: "1", Class: "10A", GradeScores: scores(101)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestGradeServiceUpdateMovesClass(t *testing.T) {
	repo := newMemGradeRepo(asha)
	svc := NewGradeService(repo, nil, nil, nil, nil, nil)

	row, err := svc.Update(context.Background(), "s-1", dto.UpdateGradeRequest{Class: "10B", GradeScores: scores(50)})
	require.NoError(t, err)
	assert.Equal(t, "10B", row.Class)
	assert.Equal(t, "Asha", row.Name)
	assert.Equal(t, 300.0, row.TotalMarks)
	assert.Equal(t, "B", row.Grade)

	_, err = svc.Update(context.Background(), "missing", dto.UpdateGradeRequest{Class: "10B"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGradeServiceDelete(t *testing.T) {
	repo := newMemGradeRepo(asha)
	svc := NewGradeService(repo, nil, nil, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "s-1"))
	assert.Empty(t, repo.rows)
	assert.ErrorIs(t, svc.Delete(context.Background(), "s-1"), appErrors.ErrNotFound)
}

func TestGradeServiceListUsesCacheUntilMutation(t *testing.T) {
	repo := newMemGradeRepo(asha)
	cache := NewCacheService(newMemCache(), nil, time.Minute, zap.NewNop(), true)
	svc := NewGradeService(repo, cache, nil, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.ListByClass(ctx, "10A")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListByClass(ctx, "10A")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls)

	_, err = svc.Create(ctx, dto.CreateGradeRequest{Name: "B", RollNo: "2", Class: "10A", GradeScores: scores(40)})
	require.NoError(t, err)

	third, err := svc.ListByClass(ctx, "10A")
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, repo.listCalls)
}

// interleavedGradeRepo runs afterRead once, between the list query and the cache write-back.
type interleavedGradeRepo struct {
	*memGradeRepo
	afterRead func()
}

func (r *interleavedGradeRepo) ListByClass(ctx context.Context, className string) ([]models.StudentGrade, error) {
	rows, err := r.memGradeRepo.ListByClass(ctx, className)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return rows, err
}

func TestGradeServiceListDoesNotCacheRowsOlderThanMutation(t *testing.T) {
	repo := &interleavedGradeRepo{memGradeRepo: newMemGradeRepo(asha)}
	cache := NewCacheService(newMemCache(), nil, time.Minute, zap.NewNop(), true)
	svc := NewGradeService(repo, cache, nil, nil, nil, nil)
	ctx := context.Background()

	repo.afterRead = func() {
		_, err := svc.Create(ctx, dto.CreateGradeRequest{Name: "Ravi", RollNo: "2", Class: "10A", GradeScores: scores(60)})
		require.NoError(t, err)
	}
	inFlight, err := svc.ListByClass(ctx, "10A")
	require.NoError(t, err)
	assert.Len(t, inFlight, 1)

	after, err := svc.ListByClass(ctx, "10A")
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestGradeServiceBypassesCacheAfterFailedInvalidation(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := newMemCache()
	metrics := NewMetricsService()
	repo := newMemGradeRepo(asha)
	svc := NewGradeService(repo, NewCacheService(store, metrics, time.Minute, zap.NewNop(), true), nil, metrics, nil, zap.New(core))
	ctx := context.Background()

	_, err := svc.ListByClass(ctx, "10A")
	require.NoError(t, err)

	store.failDelete = errors.New("redis unavailable")
	_, err = svc.Create(ctx, dto.CreateGradeRequest{Name: "Ravi", RollNo: "2", Class: "10A", GradeScores: scores(60)})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("grade cache invalidation failed, bypassing cache").Len())
	_, body := scrape(t, metrics)
	assert.Contains(t, body, "grade_cache_invalidation_failures_total 1")

	rows, err := svc.ListByClass(ctx, "10A")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, repo.listCalls)

	store.failDelete = nil
	rows, err = svc.ListByClass(ctx, "10A")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 3, repo.listCalls)

	rows, err = svc.ListByClass(ctx, "10A")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 3, repo.listCalls)
}

func TestGradeServiceListErrors(t *testing.T) {
	repo := newMemGradeRepo()
	svc := NewGradeService(repo, nil, nil, nil, nil, nil)

	_, err := svc.ListByClass(context.Background(), "  ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	repo.failList = errors.New("db down")
	_, err = svc.ListByClass(context.Background(), "10A")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestGradeServiceExportCSV(t *testing.T) {
	svc := NewGradeService(newMemGradeRepo(asha), nil, nil, nil, nil, nil)

	file, err := svc.Export(context.Background(), "10A", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "class_10A_report_"))
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Roll No,Name,Math,English,Science,Social Studies,Computer,Hindi,Total Marks,Average,Grade", lines[0])
	assert.Equal(t, "1,Asha,95,88,92,91,89,85,540,90,A+", lines[1])
}

func TestGradeServiceExportRejectsUnknownFormat(t *testing.T) {
	svc := NewGradeService(newMemGradeRepo(asha), nil, nil, nil, nil, nil)
	_, err := svc.Export(context.Background(), "10A", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
