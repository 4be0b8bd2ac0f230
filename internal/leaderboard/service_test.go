package leaderboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
)

var topCols = []string{"owner_id", "username", "count", "sum"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	return mock
}

func TestTopQueriesAndRanks(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT t.owner_id, u.username, COUNT`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(topCols).
			AddRow("u-1", "alice", 3, 12000.0).
			AddRow("u-2", "bob", 1, 900.0))

	svc := NewService(mock, nil)
	entries, err := svc.Top(context.Background(), 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(entries) != 2 || entries[0].Username != "alice" || entries[0].TotalAreaM2 != 12000 {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTopServesFromCache(t *testing.T) {
	s := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer redisClient.Close()

	mock := newMock(t)
	defer mock.Close()

	// first call hits postgres and fills the cache
	mock.ExpectQuery(`SELECT t.owner_id, u.username, COUNT`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows(topCols).AddRow("u-1", "alice", 3, 12000.0))

	svc := NewService(mock, redisClient)
	first, err := svc.Top(context.Background(), 5)
	if err != nil || len(first) != 1 {
		t.Fatalf("first top: %v", err)
	}

	// second call must not touch postgres
	second, err := svc.Top(context.Background(), 5)
	if err != nil || len(second) != 1 || second[0].Username != "alice" {
		t.Fatalf("cached top: %v %+v", err, second)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTopCacheExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer redisClient.Close()

	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT t.owner_id, u.username, COUNT`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows(topCols).AddRow("u-1", "alice", 3, 12000.0))
	mock.ExpectQuery(`SELECT t.owner_id, u.username, COUNT`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows(topCols).AddRow("u-2", "bob", 5, 50000.0))

	svc := NewService(mock, redisClient)
	if _, err := svc.Top(context.Background(), 5); err != nil {
		t.Fatalf("first top: %v", err)
	}

	s.FastForward(cacheTTL + 1)

	entries, err := svc.Top(context.Background(), 5)
	if err != nil || len(entries) != 1 || entries[0].Username != "bob" {
		t.Fatalf("post-expiry top: %v %+v", err, entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTopHandler(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT t.owner_id, u.username, COUNT`).
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows(topCols).AddRow("u-1", "alice", 3, 12000.0))

	app := fiber.New()
	RegisterRoutes(app.Group("/leaderboard"), NewService(mock, nil))

	req := httptest.NewRequest("GET", "/leaderboard/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var entries []Entry
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].OwnerID != "u-1" {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestTopHandlerBadLimit(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	app := fiber.New()
	RegisterRoutes(app.Group("/leaderboard"), NewService(mock, nil))

	req := httptest.NewRequest("GET", "/leaderboard/?limit=0", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
