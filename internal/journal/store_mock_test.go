package journal

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapds/pkg/operator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: db, logger: slog.New(slog.DiscardHandler)}, mock
}

func TestStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(s *Store) error
		errMsg    string
	}{
		{
			name: "insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO executions").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				return s.Record(ctx, operator.Execution{Script: "V0 = f();", Started: time.Now()})
			},
			errMsg: "failed to record execution",
		},
		{
			name: "get fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				_, err := s.Get(ctx, "x")
				return err
			},
			errMsg: "failed to get execution",
		},
		{
			name: "list fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				_, err := s.List(ctx, 10)
				return err
			},
			errMsg: "failed to list executions",
		},
		{
			name: "list row is malformed",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "script", "inputs", "outputs", "status", "started_at", "duration_ms", "error"}).
					AddRow("a", "s", "", "", "success", "not a time", "x", nil)
				mock.ExpectQuery("SELECT id").WillReturnRows(rows)
			},
			call: func(s *Store) error {
				_, err := s.List(ctx, 10)
				return err
			},
			errMsg: "failed to scan execution",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := mockStore(t)
			tt.setupMock(mock)

			err := tt.call(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_RecordsFailedExecution(t *testing.T) {
	s, mock := mockStore(t)
	mock.ExpectExec("INSERT INTO executions").
		WithArgs(sqlmock.AnyArg(), "V0 = f();", "V1", "V0", "failed", sqlmock.AnyArg(), int64(20), "engine down").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry, err := s.Add(context.Background(), operator.Execution{
		Script:   "V0 = f();",
		Inputs:   []string{"V1"},
		Outputs:  []string{"V0"},
		Started:  time.Now(),
		Duration: 20 * time.Millisecond,
		Err:      errors.New("engine down"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, entry.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
