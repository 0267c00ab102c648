package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-teacher-portal/internal/dto"
	"github.com/noah-isme/sma-teacher-portal/internal/grading"
	"github.com/noah-isme/sma-teacher-portal/internal/models"
	appErrors "github.com/noah-isme/sma-teacher-portal/pkg/errors"
	"github.com/noah-isme/sma-teacher-portal/pkg/export"
)

type gradeRepository interface {
	ListByClass(ctx context.Context, className string) ([]models.StudentGrade, error)
	FindByID(ctx context.Context, id string) (*models.StudentGrade, error)
	Create(ctx context.Context, row *models.StudentGrade) error
	UpdateMarks(ctx context.Context, row *models.StudentGrade) error
	Delete(ctx context.Context, id string) error
}

// ReportHeaders are the columns of a class report, matching the Reports page table.
var ReportHeaders = []string{"Roll No", "Name", "Math", "English", "Science", "Social Studies", "Computer", "Hindi", "Total Marks", "Average", "Grade"}

// GradeService stores student report rows per class. Derived fields are always recomputed here.
type GradeService struct {
	repo      gradeRepository
	cache     *CacheService
	exporter  *ExportService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	// cacheMu orders list write-backs against invalidations. generation changes on every
	// mutation; cacheStale is set while a failed invalidation may have left old lists behind.
	cacheMu    sync.Mutex
	generation uint64
	cacheStale bool
}

// NewGradeService constructs GradeService. cache, exporter and metrics may be nil.
func NewGradeService(repo gradeRepository, cache *CacheService, exporter *ExportService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService(nil, nil)
	}
	return &GradeService{
		repo:      repo,
		cache:     cache,
		exporter:  exporter,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// ListByClass returns the students of a class. An unknown class yields an empty list.
func (s *GradeService) ListByClass(ctx context.Context, className string) ([]models.StudentGrade, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class is required")
	}

	gen, usable := s.cacheSnapshot(ctx)
	key := GradeClassKey(className)
	if usable {
		var cached []models.StudentGrade
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	rows, err := s.repo.ListByClass(ctx, className)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	if usable {
		s.storeList(ctx, key, rows, gen)
	}
	return rows, nil
}

// cacheSnapshot returns the current generation and whether the cache may be used. After a failed
// invalidation it retries the clear and bypasses the cache until one succeeds.
func (s *GradeService) cacheSnapshot(ctx context.Context) (uint64, bool) {
	if !s.cache.Enabled() {
		return 0, false
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheStale {
		if err := s.cache.Invalidate(ctx, gradeClassKeyPattern); err != nil {
			return s.generation, false
		}
		s.cacheStale = false
		s.logger.Info("grade cache recovered")
	}
	return s.generation, true
}

// storeList writes rows back unless a mutation happened since gen was taken.
func (s *GradeService) storeList(ctx context.Context, key string, rows []models.StudentGrade, gen uint64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != gen || s.cacheStale {
		return
	}
	_ = s.cache.Set(ctx, key, rows, 0)
}

// Create stores a new student row.
func (s *GradeService) Create(ctx context.Context, req dto.CreateGradeRequest) (*models.StudentGrade, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.RollNo = strings.TrimSpace(req.RollNo)
	req.Class = strings.TrimSpace(req.Class)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	row := &models.StudentGrade{
		Name:   req.Name,
		RollNo: req.RollNo,
		Class:  req.Class,
		Marks:  req.GradeScores.Marks(),
	}
	row.Derived = s.derive("create", row.Marks, req.ClientDerived)

	if err := s.repo.Create(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.invalidate(ctx)
	return row, nil
}

// Update replaces the scores of a student and moves it to the requested class.
func (s *GradeService) Update(ctx context.Context, id string, req dto.UpdateGradeRequest) (*models.StudentGrade, error) {
	req.Class = strings.TrimSpace(req.Class)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err)
	}
	row.Class = req.Class
	row.Marks = req.GradeScores.Marks()
	row.Derived = s.derive("update", row.Marks, req.ClientDerived)

	if err := s.repo.UpdateMarks(ctx, row); err != nil {
		return nil, s.lookupError(err)
	}
	s.invalidate(ctx)
	return row, nil
}

// Delete removes a student row.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(err)
	}
	s.invalidate(ctx)
	return nil
}

// Export renders the class report in the requested format.
func (s *GradeService) Export(ctx context.Context, className, format string) (*ExportFile, error) {
	rows, err := s.ListByClass(ctx, className)
	if err != nil {
		return nil, err
	}
	className = strings.TrimSpace(className)
	return s.exporter.Render(format, "class_"+className+"_report", ReportDataset(className, rows))
}

// ReportDataset lays out student rows under ReportHeaders.
func ReportDataset(className string, rows []models.StudentGrade) export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("Class %s Report", className),
		Headers: ReportHeaders,
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Roll No":        row.RollNo,
			"Name":           row.Name,
			"Math":           formatScore(row.Math),
			"English":        formatScore(row.English),
			"Science":        formatScore(row.Science),
			"Social Studies": formatScore(row.SocialStudies),
			"Computer":       formatScore(row.Computer),
			"Hindi":          formatScore(row.Hindi),
			"Total Marks":    formatScore(row.TotalMarks),
			"Average":        strconv.Itoa(row.Average),
			"Grade":          row.Grade,
		})
	}
	return data
}

func (s *GradeService) derive(op string, marks models.Marks, sent dto.ClientDerived) models.Derived {
	derived := grading.Compute(marks)
	if !sent.Matches(derived) {
		s.metrics.RecordDerivedMismatch(op)
		s.logger.Warn("client derived values differ from computed",
			zap.String("operation", op),
			zap.Any("sent", sent),
			zap.Any("computed", derived),
		)
	}
	return derived
}

func (s *GradeService) invalidate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	if err := s.cache.Invalidate(ctx, gradeClassKeyPattern); err != nil {
		s.cacheStale = true
		s.metrics.RecordCacheInvalidationFailure()
		s.logger.Error("grade cache invalidation failed, bypassing cache", zap.Error(err))
	}
}

func (s *GradeService) lookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist student")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
