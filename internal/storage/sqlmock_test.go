package storage

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"tripvoucher/internal"
)

func TestResolvePendingRollsBackOnDecisionWriteFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM pending_decisions WHERE id").WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "emailId", "key", "excursion", "createdAt"}).
			AddRow("p-1", 3, "dinner cruise", "Dinner cruise", "2026-03-01 10:00:00"))
	mock.ExpectExec("INSERT INTO decisions").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	db := NewFromConn(conn)
	if _, _, err := db.ResolvePending("p-1", internal.CategorySafari, "cli"); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertVoucherPropagatesExecError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("INSERT INTO vouchers").
		WillReturnError(errors.New("constraint failed"))

	db := NewFromConn(conn)
	if _, err := db.InsertVoucher(nil, internal.SourceXLSX, "trip.xlsx", sampleItinerary()); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolvePendingFailsOnAffectedEmailsIterationError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM pending_decisions WHERE id").WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "emailId", "key", "excursion", "createdAt"}).
			AddRow("p-1", 3, "dinner cruise", "Dinner cruise", "2026-03-01 10:00:00"))
	mock.ExpectExec("INSERT INTO decisions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT DISTINCT emailId FROM pending_decisions").
		WillReturnRows(sqlmock.NewRows([]string{"emailId"}).
			AddRow(3).
			AddRow(4).
			RowError(1, errors.New("connection reset")))
	mock.ExpectRollback()

	db := NewFromConn(conn)
	_, requeued, err := db.ResolvePending("p-1", internal.CategorySafari, "cli")
	if err == nil || err.Error() != "connection reset" {
		t.Fatalf("err=%v", err)
	}
	if requeued != nil {
		t.Fatalf("requeued=%v", requeued)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
