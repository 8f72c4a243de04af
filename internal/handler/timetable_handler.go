package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/service"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/response"
)

type timetableRunner interface {
	CreateRun(ctx context.Context, req dto.CreateTimetableRunRequest) (*dto.TimetableRunResponse, error)
	GetRun(ctx context.Context, id string) (*dto.TimetableRunResponse, error)
	ListRuns(ctx context.Context, schoolID, termID string) ([]dto.TimetableRunResponse, error)
	ExportClass(ctx context.Context, id, class, format string) ([]byte, error)
}

type timetableSettings interface {
	ListParallelLimits(ctx context.Context, schoolID string) ([]models.SubjectParallelLimit, error)
	UpsertParallelLimit(ctx context.Context, schoolID string, req dto.SubjectParallelLimitRequest) error
	DeleteParallelLimit(ctx context.Context, schoolID, subjectID string) error
	ListPreferBlockSubjects(ctx context.Context, schoolID string) ([]models.PreferBlockSubject, error)
	UpsertPreferBlockSubject(ctx context.Context, schoolID string, req dto.PreferBlockSubjectRequest) error
	DeletePreferBlockSubject(ctx context.Context, schoolID, subjectID string) error
}

// TimetableHandler exposes the CP-SAT-style timetable engine over HTTP,
// alongside (not in place of) the legacy heuristic scheduler endpoints.
type TimetableHandler struct {
	runs     timetableRunner
	settings timetableSettings
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableRunService, settingsSvc *service.TimetableSettingsService) *TimetableHandler {
	return &TimetableHandler{runs: svc, settings: settingsSvc}
}

// CreateRun godoc
// @Summary Enqueue a timetable solve
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimetableRunRequest true "Timetable run payload"
// @Success 202 {object} response.Envelope
// @Router /timetable/runs [post]
func (h *TimetableHandler) CreateRun(c *gin.Context) {
	var req dto.CreateTimetableRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable run payload"))
		return
	}
	result, err := h.runs.CreateRun(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}

// GetRun godoc
// @Summary Poll a timetable run's status and result
// @Tags Timetable
// @Produce json
// @Param id path string true "Timetable run ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	result, err := h.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListRuns godoc
// @Summary List timetable run versions for a school/term
// @Tags Timetable
// @Produce json
// @Param schoolId query string true "School ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	schoolID := c.Query("schoolId")
	termID := c.Query("termId")
	if schoolID == "" || termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId and termId are required"))
		return
	}
	result, err := h.runs.ListRuns(c.Request.Context(), schoolID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportClass godoc
// @Summary Export a solved class timetable as CSV or PDF
// @Tags Timetable
// @Produce application/pdf,text/csv
// @Param id path string true "Timetable run ID"
// @Param class query string true "Class name"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /timetable/runs/{id}/export [get]
func (h *TimetableHandler) ExportClass(c *gin.Context) {
	class := c.Query("class")
	if class == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class is required"))
		return
	}
	format := c.DefaultQuery("format", "csv")
	body, err := h.runs.ExportClass(c.Request.Context(), c.Param("id"), class, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	filename := class + "-timetable.csv"
	if format == "pdf" {
		contentType = "application/pdf"
		filename = class + "-timetable.pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, body)
}

// ListParallelLimits godoc
// @Summary List per-subject parallel-class limits
// @Tags Timetable Settings
// @Produce json
// @Param schoolId query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/settings/parallel-limits [get]
func (h *TimetableHandler) ListParallelLimits(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}
	rows, err := h.settings.ListParallelLimits(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpsertParallelLimit godoc
// @Summary Upsert a subject's parallel-class limit
// @Tags Timetable Settings
// @Accept json
// @Produce json
// @Param schoolId query string true "School ID"
// @Param payload body dto.SubjectParallelLimitRequest true "Parallel limit payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/settings/parallel-limits [put]
func (h *TimetableHandler) UpsertParallelLimit(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}
	var req dto.SubjectParallelLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid parallel limit payload"))
		return
	}
	if err := h.settings.UpsertParallelLimit(c.Request.Context(), schoolID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"subjectId": req.SubjectID, "maxParallel": req.MaxParallel}, nil)
}

// DeleteParallelLimit godoc
// @Summary Remove a subject's parallel-class limit override
// @Tags Timetable Settings
// @Param schoolId query string true "School ID"
// @Param subjectId path string true "Subject ID"
// @Success 204
// @Router /timetable/settings/parallel-limits/{subjectId} [delete]
func (h *TimetableHandler) DeleteParallelLimit(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}
	if err := h.settings.DeleteParallelLimit(c.Request.Context(), schoolID, c.Param("subjectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListPreferBlockSubjects godoc
// @Summary List per-subject block-scheduling bonus overrides
// @Tags Timetable Settings
// @Produce json
// @Param schoolId query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/settings/prefer-block-subjects [get]
func (h *TimetableHandler) ListPreferBlockSubjects(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}
	rows, err := h.settings.ListPreferBlockSubjects(c.Request.Context(), schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpsertPreferBlockSubject godoc
// @Summary Upsert a subject's block-scheduling bonus override
// @Tags Timetable Settings
// @Accept json
// @Produce json
// @Param schoolId query string true "School ID"
// @Param payload body dto.PreferBlockSubjectRequest true "Prefer block subject payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/settings/prefer-block-subjects [put]
func (h *TimetableHandler) UpsertPreferBlockSubject(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}
	var req dto.PreferBlockSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid prefer block subject payload"))
		return
	}
	if err := h.settings.UpsertPreferBlockSubject(c.Request.Context(), schoolID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"subjectId": req.SubjectID, "weight": req.Weight}, nil)
}

// DeletePreferBlockSubject godoc
// @Summary Remove a subject's block-scheduling bonus override
// @Tags Timetable Settings
// @Param schoolId query string true "School ID"
// @Param subjectId path string true "Subject ID"
// @Success 204
// @Router /timetable/settings/prefer-block-subjects/{subjectId} [delete]
func (h *TimetableHandler) DeletePreferBlockSubject(c *gin.Context) {
	schoolID := c.Query("schoolId")
	if schoolID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "schoolId is required"))
		return
	}
	if err := h.settings.DeletePreferBlockSubject(c.Request.Context(), schoolID, c.Param("subjectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
