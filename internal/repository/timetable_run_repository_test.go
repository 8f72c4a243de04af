package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func newTimetableRunRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimetableRunRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newTimetableRunRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_runs WHERE school_id = $1 AND term_id = $2")).
		WithArgs("school-1", "term-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_runs")).
		WithArgs(sqlmock.AnyArg(), "school-1", "term-1", 1, string(models.TimetableRunPending), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "fp-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.TimetableRun{
		SchoolID:    "school-1",
		TermID:      "term-1",
		Instance:    types.JSONText(`{"classes":["10A"]}`),
		Fingerprint: "fp-1",
	}
	err := repo.CreateVersioned(context.Background(), nil, run)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Version)
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryCreateVersionedRejectsMissingTenant(t *testing.T) {
	db, _, cleanup := newTimetableRunRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	err := repo.CreateVersioned(context.Background(), nil, &models.TimetableRun{})
	assert.Error(t, err)
}

func TestTimetableRunRepositoryUpdateResult(t *testing.T) {
	db, mock, cleanup := newTimetableRunRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_runs SET status = $1, report = $2, error = $3, updated_at = $4 WHERE id = $5")).
		WithArgs(string(models.TimetableRunSuccess), types.JSONText(`{"status":"success"}`), nil, sqlmock.AnyArg(), "run-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpdateResult(context.Background(), "run-1", models.TimetableRunSuccess, types.JSONText(`{"status":"success"}`), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryUpdateResultNotFound(t *testing.T) {
	db, mock, cleanup := newTimetableRunRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timetable_runs SET status = $1, report = $2, error = $3, updated_at = $4 WHERE id = $5")).
		WithArgs(string(models.TimetableRunFailed), types.JSONText(`{}`), sqlmock.AnyArg(), sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	msg := "boom"
	err := repo.UpdateResult(context.Background(), "missing", models.TimetableRunFailed, types.JSONText(`{}`), &msg)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newTimetableRunRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "term_id", "version", "status", "instance", "report", "error", "fingerprint", "created_at", "updated_at"}).
		AddRow("run-1", "school-1", "term-1", 1, string(models.TimetableRunSuccess), types.JSONText(`{}`), types.JSONText(`{}`), nil, "fp-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, term_id, version, status, instance, report, error, fingerprint, created_at, updated_at FROM timetable_runs WHERE id = $1")).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := repo.FindByID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "school-1", run.SchoolID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryListByTermSchool(t *testing.T) {
	db, mock, cleanup := newTimetableRunRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "term_id", "version", "status", "instance", "report", "error", "fingerprint", "created_at", "updated_at"}).
		AddRow("run-2", "school-1", "term-1", 2, string(models.TimetableRunSuccess), types.JSONText(`{}`), types.JSONText(`{}`), nil, "fp-2", time.Now(), time.Now()).
		AddRow("run-1", "school-1", "term-1", 1, string(models.TimetableRunSuccess), types.JSONText(`{}`), types.JSONText(`{}`), nil, "fp-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_runs WHERE school_id = $1 AND term_id = $2 ORDER BY version DESC")).
		WithArgs("school-1", "term-1").
		WillReturnRows(rows)

	list, err := repo.ListByTermSchool(context.Background(), "school-1", "term-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryFindByFingerprint(t *testing.T) {
	db, mock, cleanup := newTimetableRunRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "term_id", "version", "status", "instance", "report", "error", "fingerprint", "created_at", "updated_at"}).
		AddRow("run-1", "school-1", "term-1", 1, string(models.TimetableRunSuccess), types.JSONText(`{}`), types.JSONText(`{}`), nil, "fp-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_runs WHERE fingerprint = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1")).
		WithArgs("fp-1", string(models.TimetableRunSuccess)).
		WillReturnRows(rows)

	run, err := repo.FindByFingerprint(context.Background(), "fp-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRunRepositoryFindByFingerprintMiss(t *testing.T) {
	db, mock, cleanup := newTimetableRunRepoMock(t)
	defer cleanup()
	repo := NewTimetableRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_runs WHERE fingerprint = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1")).
		WithArgs("unknown", string(models.TimetableRunSuccess)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByFingerprint(context.Background(), "unknown")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
