package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

type timetableRunnerMock struct {
	createResp *dto.TimetableRunResponse
	createErr  error
	getResp    *dto.TimetableRunResponse
	getErr     error
	listResp   []dto.TimetableRunResponse
	listErr    error
	exportBody []byte
	exportErr  error
}

func (m *timetableRunnerMock) CreateRun(ctx context.Context, req dto.CreateTimetableRunRequest) (*dto.TimetableRunResponse, error) {
	return m.createResp, m.createErr
}

func (m *timetableRunnerMock) GetRun(ctx context.Context, id string) (*dto.TimetableRunResponse, error) {
	return m.getResp, m.getErr
}

func (m *timetableRunnerMock) ListRuns(ctx context.Context, schoolID, termID string) ([]dto.TimetableRunResponse, error) {
	return m.listResp, m.listErr
}

func (m *timetableRunnerMock) ExportClass(ctx context.Context, id, class, format string) ([]byte, error) {
	return m.exportBody, m.exportErr
}

type timetableSettingsMock struct{}

func (m *timetableSettingsMock) ListParallelLimits(ctx context.Context, schoolID string) ([]models.SubjectParallelLimit, error) {
	return nil, nil
}
func (m *timetableSettingsMock) UpsertParallelLimit(ctx context.Context, schoolID string, req dto.SubjectParallelLimitRequest) error {
	return nil
}
func (m *timetableSettingsMock) DeleteParallelLimit(ctx context.Context, schoolID, subjectID string) error {
	return nil
}
func (m *timetableSettingsMock) ListPreferBlockSubjects(ctx context.Context, schoolID string) ([]models.PreferBlockSubject, error) {
	return nil, nil
}
func (m *timetableSettingsMock) UpsertPreferBlockSubject(ctx context.Context, schoolID string, req dto.PreferBlockSubjectRequest) error {
	return nil
}
func (m *timetableSettingsMock) DeletePreferBlockSubject(ctx context.Context, schoolID, subjectID string) error {
	return nil
}

func TestTimetableHandlerCreateRunSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: &timetableRunnerMock{createResp: &dto.TimetableRunResponse{ID: "run-1", Status: "pending"}}, settings: &timetableSettingsMock{}}

	payload := []byte(`{"schoolId":"s1","termId":"t1","instance":{}}`)
	req, _ := http.NewRequest(http.MethodPost, "/timetable/runs", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.CreateRun(c)

	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestTimetableHandlerCreateRunInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: &timetableRunnerMock{}, settings: &timetableSettingsMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/timetable/runs", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.CreateRun(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGetRunNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: &timetableRunnerMock{getErr: appErrors.ErrNotFound}, settings: &timetableSettingsMock{}}

	req, _ := http.NewRequest(http.MethodGet, "/timetable/runs/missing", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.GetRun(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerListRunsRequiresQueryParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: &timetableRunnerMock{}, settings: &timetableSettingsMock{}}

	req, _ := http.NewRequest(http.MethodGet, "/timetable/runs", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.ListRuns(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerListRunsSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: &timetableRunnerMock{listResp: []dto.TimetableRunResponse{{ID: "run-1"}}}, settings: &timetableSettingsMock{}}

	target := "/timetable/runs?" + url.Values{"schoolId": {"s1"}, "termId": {"t1"}}.Encode()
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.ListRuns(c)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestTimetableHandlerExportClassRequiresClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: &timetableRunnerMock{}, settings: &timetableSettingsMock{}}

	req, _ := http.NewRequest(http.MethodGet, "/timetable/runs/run-1/export", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "run-1"}}

	h.ExportClass(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerExportClassSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: &timetableRunnerMock{exportBody: []byte("hour,Mo\n1,free\n")}, settings: &timetableSettingsMock{}}

	target := "/timetable/runs/run-1/export?" + url.Values{"class": {"10A"}}.Encode()
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "run-1"}}

	h.ExportClass(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestTimetableHandlerUpsertParallelLimitRequiresSchool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: &timetableRunnerMock{}, settings: &timetableSettingsMock{}}

	payload := []byte(`{"subjectId":"pe","maxParallel":1}`)
	req, _ := http.NewRequest(http.MethodPut, "/timetable/settings/parallel-limits", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.UpsertParallelLimit(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerUpsertParallelLimitSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: &timetableRunnerMock{}, settings: &timetableSettingsMock{}}

	payload := []byte(`{"subjectId":"pe","maxParallel":1}`)
	target := "/timetable/settings/parallel-limits?" + url.Values{"schoolId": {"s1"}}.Encode()
	req, _ := http.NewRequest(http.MethodPut, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.UpsertParallelLimit(c)

	require.Equal(t, http.StatusOK, w.Code)
}
