package pricing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return New(db, nil, logging.NewNopLogger()), mock, func() { db.Close() }
}

func TestCostReadsSettingsTable(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("cost_video").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("200"))

	cost, err := svc.Cost(context.Background(), models.KindVideo)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != 200 {
		t.Fatalf("expected 200, got %d", cost)
	}
}

func TestCostFallsBackToDefaults(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	tests := []struct {
		kind models.OperationKind
		want int64
	}{
		{models.KindImage, 20},
		{models.KindVideo, 150},
		{models.KindVoice, 150},
		{models.KindStudio, 600},
	}

	for _, tt := range tests {
		mock.ExpectQuery(`SELECT value FROM settings`).
			WillReturnError(fmt.Errorf("connection refused"))

		cost, err := svc.Cost(context.Background(), tt.kind)
		if err != nil {
			t.Fatalf("cost(%s): %v", tt.kind, err)
		}
		if cost != tt.want {
			t.Fatalf("cost(%s): expected default %d, got %d", tt.kind, tt.want, cost)
		}
	}
}

func TestCostFallsBackOnInvalidValue(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("cost_image").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("not-a-number"))

	cost, err := svc.Cost(context.Background(), models.KindImage)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != 20 {
		t.Fatalf("expected default 20, got %d", cost)
	}
}

func TestCostUnknownKind(t *testing.T) {
	svc, _, done := newTestService(t)
	defer done()

	_, err := svc.Cost(context.Background(), models.OperationKind("hologram"))
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestSetCostUpserts(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectExec(`INSERT INTO settings`).
		WithArgs("cost_studio", "750").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.SetCost(context.Background(), models.KindStudio, 750); err != nil {
		t.Fatalf("set cost: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetCostRejectsNonPositive(t *testing.T) {
	svc, _, done := newTestService(t)
	defer done()

	if err := svc.SetCost(context.Background(), models.KindImage, 0); err == nil {
		t.Fatalf("expected error for zero cost")
	}
}
