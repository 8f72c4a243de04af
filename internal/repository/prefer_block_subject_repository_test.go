package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func newPreferBlockSubjectRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPreferBlockSubjectRepositoryListBySchool(t *testing.T) {
	db, mock, cleanup := newPreferBlockSubjectRepoMock(t)
	defer cleanup()
	repo := NewPreferBlockSubjectRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "subject_id", "weight"}).
		AddRow("pref-1", "school-1", "math", 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, subject_id, weight FROM prefer_block_subjects WHERE school_id = $1")).
		WithArgs("school-1").
		WillReturnRows(rows)

	list, err := repo.ListBySchool(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Weight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferBlockSubjectRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newPreferBlockSubjectRepoMock(t)
	defer cleanup()
	repo := NewPreferBlockSubjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO prefer_block_subjects")).
		WithArgs(sqlmock.AnyArg(), "school-1", "math", 10).
		WillReturnResult(sqlmock.NewResult(1, 1))

	row := &models.PreferBlockSubject{SchoolID: "school-1", SubjectID: "math", Weight: 10}
	err := repo.Upsert(context.Background(), row)
	require.NoError(t, err)
	assert.NotEmpty(t, row.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferBlockSubjectRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newPreferBlockSubjectRepoMock(t)
	defer cleanup()
	repo := NewPreferBlockSubjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM prefer_block_subjects WHERE school_id = $1 AND subject_id = $2")).
		WithArgs("school-1", "math").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "school-1", "math")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
