package territory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/paulmach/orb"

	"github.com/PriyaanshPandey/KadamClashBackend/internal/conquest"
)

const squareWKT = "POLYGON((0 0,0.0005 0,0.0005 0.0005,0 0.0005,0 0))"

var squarePoly = orb.Polygon{orb.Ring{{0, 0}, {0.0005, 0}, {0.0005, 0.0005}, {0, 0.0005}, {0, 0}}}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	return mock
}

func TestIntersectingRivals(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT t.id, t.owner_id, u.username, ST_AsText`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "username", "geometry", "area_m2", "best_lap_time", "max_laps", "avg_speed"}).
			AddRow("t-1", "owner-1", "rival", squareWKT, 2500.0, 120.0, 5, 9.0))

	svc := NewService(mock)
	rivals, err := svc.IntersectingRivals(context.Background(), squarePoly)
	if err != nil {
		t.Fatalf("intersecting rivals: %v", err)
	}
	if len(rivals) != 1 {
		t.Fatalf("expected 1 rival, got %d", len(rivals))
	}
	r := rivals[0]
	if r.ID != "t-1" || r.OwnerName != "rival" || r.AreaM2 != 2500 {
		t.Fatalf("unexpected rival: %+v", r)
	}
	if len(r.Geometry) != 1 || len(r.Geometry[0]) != 5 {
		t.Fatalf("geometry not decoded: %+v", r.Geometry)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIntersectingRivalsBadWKT(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT t.id, t.owner_id, u.username, ST_AsText`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "username", "geometry", "area_m2", "best_lap_time", "max_laps", "avg_speed"}).
			AddRow("t-1", "owner-1", "rival", "not-wkt", 2500.0, 120.0, 5, 9.0))

	svc := NewService(mock)
	if _, err := svc.IntersectingRivals(context.Background(), squarePoly); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestExecutePlanCreate(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO territories`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), 500.0, 150.0, 4, 10.0).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`INSERT INTO attempts`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), 600.0, 4, 10.0, 10040.0, "created").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	svc := NewService(mock)
	plan := conquest.MutationPlan{Create: &conquest.TerritoryRecord{
		OwnerID: "user-1", Geometry: squarePoly, AreaM2: 500, BestLapTime: 150, MaxLaps: 4, AvgSpeed: 10,
	}}
	attempt := conquest.Attempt{DurationSeconds: 600, Laps: 4, AvgSpeed: 10}

	terr, err := svc.ExecutePlan(context.Background(), plan, nil, attempt, "user-1", "created")
	if err != nil {
		t.Fatalf("execute plan: %v", err)
	}
	if terr.ID == "" || terr.OwnerID != "user-1" || terr.AreaM2 != 500 {
		t.Fatalf("unexpected territory: %+v", terr)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExecutePlanCaptureDeletesRivals(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM territories WHERE id=\$1 AND owner_id=\$2`).
		WithArgs("t-1", "owner-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(`INSERT INTO territories`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), 4900.0, 360.0, 10, 10.9).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`INSERT INTO attempts`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), 3600.0, 10, 10.9, 11000.0, "captured").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	svc := NewService(mock)
	plan := conquest.MutationPlan{
		Create: &conquest.TerritoryRecord{OwnerID: "user-1", Geometry: squarePoly, AreaM2: 4900, BestLapTime: 360, MaxLaps: 10, AvgSpeed: 10.9},
		Delete: []string{"t-1"},
	}
	conquered := []conquest.Rival{{ID: "t-1", OwnerID: "owner-1"}}
	attempt := conquest.Attempt{DurationSeconds: 3600, Laps: 10, AvgSpeed: 10.9}

	if _, err := svc.ExecutePlan(context.Background(), plan, conquered, attempt, "user-1", "captured"); err != nil {
		t.Fatalf("execute plan: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExecutePlanConflictRollsBack(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM territories WHERE id=\$1 AND owner_id=\$2`).
		WithArgs("t-1", "owner-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	svc := NewService(mock)
	plan := conquest.MutationPlan{
		Create: &conquest.TerritoryRecord{OwnerID: "user-1", Geometry: squarePoly, AreaM2: 4900},
		Delete: []string{"t-1"},
	}
	conquered := []conquest.Rival{{ID: "t-1", OwnerID: "owner-1"}}

	_, err := svc.ExecutePlan(context.Background(), plan, conquered, conquest.Attempt{DurationSeconds: 60, Laps: 1, AvgSpeed: 1}, "user-1", "captured")
	if !errors.Is(err, ErrTerritoryChanged) {
		t.Fatalf("expected ErrTerritoryChanged, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExecutePlanEmptyCreate(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.ExecutePlan(context.Background(), conquest.MutationPlan{}, nil, conquest.Attempt{}, "user-1", "created")
	if err == nil {
		t.Fatalf("expected error for empty plan")
	}
}

func TestGetAndViewportAndAttempts(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	createdAt := time.Now()
	cols := []string{"id", "owner_id", "username", "geometry", "area_m2", "best_lap_time", "max_laps", "avg_speed", "created_at"}

	mock.ExpectQuery(`SELECT t.id, t.owner_id, u.username, ST_AsText`).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow("t-1", "owner-1", "rival", squareWKT, 2500.0, 120.0, 5, 9.0, createdAt))

	svc := NewService(mock)
	terr, err := svc.Get(context.Background(), "t-1")
	if err != nil || terr.ID != "t-1" {
		t.Fatalf("get territory: %v", err)
	}

	mock.ExpectQuery(`SELECT t.id, t.owner_id, u.username, ST_AsText`).
		WithArgs(-0.001, -0.001, 0.001, 0.001).
		WillReturnRows(pgxmock.NewRows(cols).AddRow("t-1", "owner-1", "rival", squareWKT, 2500.0, 120.0, 5, 9.0, createdAt))

	list, err := svc.InViewport(context.Background(), -0.001, -0.001, 0.001, 0.001)
	if err != nil || len(list) != 1 {
		t.Fatalf("viewport: %v", err)
	}

	mock.ExpectQuery(`SELECT id, user_id, territory_id, duration_seconds, laps, avg_speed, score, outcome, created_at`).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "territory_id", "duration_seconds", "laps", "avg_speed", "score", "outcome", "created_at"}).
			AddRow("a-1", "user-1", "t-1", 600.0, 4, 10.0, 10040.0, "created", createdAt))

	attempts, err := svc.Attempts(context.Background(), "t-1")
	if err != nil || len(attempts) != 1 || attempts[0].Outcome != "created" {
		t.Fatalf("attempts: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
