package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-teacher-portal/internal/dto"
	"github.com/noah-isme/sma-teacher-portal/internal/models"
	"github.com/noah-isme/sma-teacher-portal/internal/service"
	appErrors "github.com/noah-isme/sma-teacher-portal/pkg/errors"
	"github.com/noah-isme/sma-teacher-portal/pkg/response"
)

type gradeService interface {
	ListByClass(ctx context.Context, className string) ([]models.StudentGrade, error)
	Create(ctx context.Context, req dto.CreateGradeRequest) (*models.StudentGrade, error)
	Update(ctx context.Context, id string, req dto.UpdateGradeRequest) (*models.StudentGrade, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, className, format string) (*service.ExportFile, error)
}

// GradeHandler serves /grades. Payloads are bare JSON documents without the response envelope.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// ListByClass godoc
// @Summary List students of a class
// @Tags Grades
// @Produce json
// @Param className path string true "Class name"
// @Success 200 {array} models.StudentGrade
// @Router /grades/{className} [get]
func (h *GradeHandler) ListByClass(c *gin.Context) {
	rows, err := h.grades.ListByClass(c.Request.Context(), c.Param("className"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusOK, rows)
}

// Create godoc
// @Summary Add a student with marks
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.CreateGradeRequest true "Student payload"
// @Success 201 {object} models.StudentGrade
// @Router /grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var req dto.CreateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	row, err := h.grades.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusCreated, row)
}

// Update godoc
// @Summary Update a student's marks and class
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.UpdateGradeRequest true "Marks payload"
// @Success 200 {object} models.StudentGrade
// @Router /grades/{id} [put]
func (h *GradeHandler) Update(c *gin.Context) {
	var req dto.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	row, err := h.grades.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, http.StatusOK, row)
}

// Delete godoc
// @Summary Remove a student
// @Tags Grades
// @Param id path string true "Student ID"
// @Success 204
// @Router /grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	if err := h.grades.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Download a class report
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Param className path string true "Class name"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /grades/{className}/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	file, err := h.grades.Export(c.Request.Context(), c.Param("className"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", attachment(file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
