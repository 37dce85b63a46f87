package social

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func newSocialApp(svc *Service) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/social"), svc, func(c *fiber.Ctx) error { return c.Next() })
	return app
}

func postJSON(app *fiber.App, path string, body any) (*http.Response, error) {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return app.Test(req)
}

func TestSocialHandlers(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	createdAt := time.Now()
	mock.ExpectQuery(`INSERT INTO selfies`).
		WithArgs(pgxmock.AnyArg(), "user-1", "", "hello", "https://photo", 106.8, -6.2).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectExec(`INSERT INTO friendships`).
		WithArgs("user-1", "user-2").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectQuery(`INSERT INTO selfie_reactions`).
		WithArgs("selfie-1", "user-2", "clap").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectQuery(selectSelfies).
		WithArgs("user-1", 10).
		WillReturnRows(pgxmock.NewRows(selfieColumns).
			AddRow("selfie-1", "user-1", "", "hello", "https://photo", -6.2, 106.8, createdAt))
	mock.ExpectQuery(`SELECT selfie_id, kind, COUNT\(\*\)`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"selfie_id", "kind", "count"}).AddRow("selfie-1", "clap", 1))
	mock.ExpectExec(`DELETE FROM selfie_reactions`).
		WithArgs("selfie-1", "user-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM friendships`).
		WithArgs("user-1", "user-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	app := newSocialApp(NewService(mock))

	resp, err := postJSON(app, "/social/selfies", Selfie{UserID: "user-1", Caption: "hello", PhotoURL: "https://photo", Lat: -6.2, Lng: 106.8})
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create selfie status: %v", err)
	}

	resp, err = postJSON(app, "/social/friends", Friend{UserID: "user-1", FriendID: "user-2"})
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("add friend status: %v", err)
	}

	resp, err = postJSON(app, "/social/selfies/selfie-1/reactions", map[string]string{"user_id": "user-2", "kind": "clap"})
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("react status: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/social/feed?user_id=user-1&limit=10", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("feed status: %v", err)
	}
	var feed []Selfie
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if len(feed) != 1 || feed[0].Reactions["clap"] != 1 {
		t.Fatalf("unexpected feed: %+v", feed)
	}

	req = httptest.NewRequest(http.MethodDelete, "/social/selfies/selfie-1/reactions/user-2", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unreact status: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/social/friends/user-1/user-2", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove friend status: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSocialHandlersBadRequest(t *testing.T) {
	app := newSocialApp(NewService(nil))

	cases := []struct {
		path string
		body any
	}{
		{"/social/selfies", map[string]string{}},
		{"/social/selfies", Selfie{UserID: "u", PhotoURL: "p", Lat: 91}},
		{"/social/friends", map[string]string{"user_id": "u"}},
		{"/social/friends", Friend{UserID: "u", FriendID: "u"}},
		{"/social/selfies/s/reactions", map[string]string{"user_id": "u", "kind": "boo"}},
	}
	for _, tc := range cases {
		resp, err := postJSON(app, tc.path, tc.body)
		if err != nil || resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected bad request", tc.path)
		}
	}

	for _, path := range []string{"/social/feed", "/social/selfies/nearby?lat=100&lng=0"} {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected bad request", path)
		}
	}
}

func TestSocialHandlersNearby(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(selectSelfies).
		WithArgs(106.8, -6.2, 5000.0).
		WillReturnRows(pgxmock.NewRows(selfieColumns))
	mock.ExpectQuery(selectSelfies).
		WithArgs(106.8, -6.2, 5000.0).
		WillReturnError(errSocial)

	app := newSocialApp(NewService(mock))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/social/selfies/nearby?lat=-6.2&lng=106.8", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("nearby status: %v", err)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/social/selfies/nearby?lat=-6.2&lng=106.8", nil))
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected nearby error")
	}
}

func TestSocialHandlersErrors(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO selfies`).WillReturnError(errSocial)
	mock.ExpectExec(`INSERT INTO friendships`).WillReturnError(errSocial)
	mock.ExpectQuery(`SELECT user_id, friend_id, created_at`).WillReturnError(errSocial)

	app := newSocialApp(NewService(mock))

	resp, err := postJSON(app, "/social/selfies", Selfie{UserID: "user-1", PhotoURL: "url"})
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected selfie error")
	}

	resp, err = postJSON(app, "/social/friends", Friend{UserID: "user-1", FriendID: "user-2"})
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected friend error")
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/social/friends/user-1", nil))
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected friends error")
	}
}
