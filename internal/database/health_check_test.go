package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckerPingSuccess(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	checker := NewHealthChecker(db, time.Minute)
	checker.check()

	status := checker.Status()
	assert.True(t, status.Healthy)
	assert.Empty(t, status.ErrorMessage)
	assert.False(t, status.LastChecked.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckerPingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(sqlmock.ErrCancelled)

	checker := NewHealthChecker(db, time.Minute)
	checker.check()

	status := checker.Status()
	assert.False(t, status.Healthy)
	assert.NotEmpty(t, status.ErrorMessage)
}

func TestHealthCheckerStartStop(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.MatchExpectationsInOrder(false)
	mock.ExpectPing()

	checker := NewHealthChecker(db, 10*time.Millisecond)
	checker.Start()
	time.Sleep(30 * time.Millisecond)
	checker.Stop()
	// Stop幂等
	checker.Stop()

	assert.False(t, checker.Status().LastChecked.IsZero())
}

func TestHealthCheckerDefaultInterval(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	checker := NewHealthChecker(db, 0)
	assert.Equal(t, 30*time.Second, checker.interval)
}
