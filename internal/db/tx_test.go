package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManager_WithinTx(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		fn        func(ctx context.Context, pool DBTX) error
		wantErr   bool
	}{
		{
			name: "commits on success",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM sessions`).
					WillReturnResult(pgxmock.NewResult("DELETE", 2))
				mock.ExpectCommit()
			},
			fn: func(ctx context.Context, pool DBTX) error {
				_, err := Conn(ctx, pool).Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, "u")
				return err
			},
		},
		{
			name: "rolls back when fn fails",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn: func(ctx context.Context, pool DBTX) error {
				return errors.New("stop")
			},
			wantErr: true,
		},
		{
			name: "begin failure is returned",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
			},
			fn: func(ctx context.Context, pool DBTX) error {
				panic("fn must not run")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			m := NewTxManager(mock)
			err = m.WithinTx(context.Background(), func(ctx context.Context) error {
				return tt.fn(ctx, mock)
			})

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestTxManager_NestedCallsJoin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	m := NewTxManager(mock)
	err = m.WithinTx(context.Background(), func(ctx context.Context) error {
		return m.WithinTx(ctx, func(context.Context) error { return nil })
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_RollsBackOnPanic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	m := NewTxManager(mock)
	assert.Panics(t, func() {
		_ = m.WithinTx(context.Background(), func(context.Context) error { panic("boom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConn_FallsBackOutsideTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.Equal(t, DBTX(mock), Conn(context.Background(), mock))
}

func TestRunMigrations_UsesEmbeddedDir(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, runMigrations(context.Background(), nil))
	assert.Equal(t, "migrations", gotDir)

	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_init.sql", entries[0].Name())
}
