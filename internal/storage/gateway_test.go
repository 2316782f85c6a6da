package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/haasonsaas/aidis/internal/errs"
)

func setupMockGateway(t *testing.T) (*Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewGatewayFromDB(db), mock
}

func TestTxCommit(t *testing.T) {
	gw, mock := setupMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := gw.Tx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE tasks SET status = 'done'")
		return err
	})
	if err != nil {
		t.Fatalf("Tx() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTxRollbackOnError(t *testing.T) {
	gw, mock := setupMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("handler failure")
	err := gw.Tx(context.Background(), func(tx *sql.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Tx() error = %v, want handler failure", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTxRollbackOnPanic(t *testing.T) {
	gw, mock := setupMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	defer func() {
		if recover() == nil {
			t.Fatal("panic should propagate")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("expectations: %v", err)
		}
	}()

	_ = gw.Tx(context.Background(), func(tx *sql.Tx) error { panic("handler bug") })
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{
			name: "no rows is not found",
			err:  sql.ErrNoRows,
			want: errs.KindNotFound,
		},
		{
			name: "unique violation is conflict",
			err:  &pq.Error{Code: "23505"},
			want: errs.KindConflict,
		},
		{
			name: "connection exception is transient",
			err:  &pq.Error{Code: "08006"},
			want: errs.KindTransient,
		},
		{
			name: "insufficient resources is exhausted",
			err:  &pq.Error{Code: "53300"},
			want: errs.KindResourceExhausted,
		},
		{
			name: "other pq error is internal",
			err:  &pq.Error{Code: "42601"},
			want: errs.KindInternal,
		},
		{
			name: "context deadline is transient",
			err:  context.DeadlineExceeded,
			want: errs.KindTransient,
		},
		{
			name: "connection refused text is transient",
			err:  errors.New("dial tcp: connection refused"),
			want: errs.KindTransient,
		},
		{
			name: "unknown error is internal",
			err:  errors.New("boom"),
			want: errs.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err, "op")
			if got := errs.KindOf(mapped); got != tt.want {
				t.Fatalf("MapError kind = %q, want %q", got, tt.want)
			}
		})
	}

	if MapError(nil, "op") != nil {
		t.Fatal("MapError(nil) should be nil")
	}
}

func TestHealthzReportsPoolStats(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()

	gw := NewGatewayFromDB(db)
	health := gw.Healthz(context.Background())
	if !health.Healthy {
		t.Fatal("mock pool should report healthy")
	}
}
