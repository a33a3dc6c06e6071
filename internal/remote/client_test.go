package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/remote/sheettest"
)

func movement(id string) model.Movement {
	return model.Movement{
		ID:           id,
		BM:           "111.111-1",
		Name:         "João SILVA",
		WarName:      "SILVA",
		Rank:         "Sd",
		CheckedOutAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		Material:     "Corda",
		Type:         model.MaterialHeightRescue,
		Status:       model.StatusPending,
	}
}

func newClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(endpoint, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestPushThenFetch(t *testing.T) {
	sheet := sheettest.New(t)
	c := newClient(t, sheet.Endpoint())
	ctx := context.Background()

	if err := c.Push(ctx, []model.Movement{movement("a"), movement("b")}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	got, err := c.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("unexpected rows %+v", got)
	}
}

func TestLastPushWins(t *testing.T) {
	sheet := sheettest.New(t)
	ctx := context.Background()
	deviceA := newClient(t, sheet.Endpoint())
	deviceB := newClient(t, sheet.Endpoint())

	if err := deviceA.Push(ctx, []model.Movement{movement("item1"), movement("item2")}); err != nil {
		t.Fatal(err)
	}
	// B never fetched; its push replaces A's table entirely.
	if err := deviceB.Push(ctx, []model.Movement{movement("item3")}); err != nil {
		t.Fatal(err)
	}

	got, err := newClient(t, sheet.Endpoint()).Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "item3" {
		t.Errorf("expected exactly [item3], got %+v", got)
	}
}

func TestFetchSendsReadQuery(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/exec?deploy=1")
	c.Now = func() time.Time { return time.UnixMilli(1700000000123) }
	got, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
	if query != "action=read&deploy=1&t=1700000000123" {
		t.Errorf("unexpected query %q", query)
	}
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "[]"},
		{"not found", http.StatusNotFound, ""},
		{"object instead of list", http.StatusOK, `{"error":"boom"}`},
		{"html page", http.StatusOK, "<html>login</html>"},
		{"truncated", http.StatusOK, `[{"id":"a"`},
		{"invalid record", http.StatusOK, `[{"id":"","status":"PENDENTE"}]`},
		{"unknown status", http.StatusOK, `[{"id":"a","status":"PERDIDO"}]`},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))
		c := newClient(t, srv.URL)
		_, err := c.Fetch(context.Background())
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("%s: expected ErrUnavailable, got %v", tt.name, err)
		}
		srv.Close()
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := newClient(t, endpoint).Fetch(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestPushRequiresSuccessLiteral(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"success", http.StatusOK, "Success", false},
		{"success with newline", http.StatusOK, "Success\n", false},
		{"script error", http.StatusOK, "Error: TypeError", true},
		{"empty", http.StatusOK, "", true},
		{"server error", http.StatusInternalServerError, "Success", true},
	}

	for _, tt := range tests {
		var contentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType = r.Header.Get("Content-Type")
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))
		err := newClient(t, srv.URL).Push(context.Background(), []model.Movement{movement("a")})
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Push error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrUnavailable) {
			t.Errorf("%s: expected ErrUnavailable, got %v", tt.name, err)
		}
		if contentType != "text/plain;charset=utf-8" {
			t.Errorf("%s: unexpected content type %q", tt.name, contentType)
		}
		srv.Close()
	}
}

func TestSendEmail(t *testing.T) {
	sheet := sheettest.New(t)
	c := newClient(t, sheet.Endpoint())

	if err := c.SendEmail(context.Background(), "1111111@example.org", "Cautela", "corpo"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	emails := sheet.Emails()
	if len(emails) != 1 || emails[0].To != "1111111@example.org" || emails[0].Body != "corpo" {
		t.Errorf("unexpected emails %+v", emails)
	}
}

func TestNoEndpoint(t *testing.T) {
	c := newClient(t, "")
	_, err := c.Fetch(context.Background())
	if !errors.Is(err, ErrNoEndpoint) || !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrNoEndpoint wrapped in ErrUnavailable, got %v", err)
	}
	if err := c.Push(context.Background(), nil); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestSetEndpointValidation(t *testing.T) {
	c := newClient(t, "")
	for _, bad := range []string{"", "not a url", "ftp://example.com/exec", "/relative/exec", "https://"} {
		if err := c.SetEndpoint(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
	if err := c.SetEndpoint(" https://script.google.com/macros/s/abc/exec "); err != nil {
		t.Fatalf("SetEndpoint: %v", err)
	}
	if c.Endpoint() != "https://script.google.com/macros/s/abc/exec" {
		t.Errorf("unexpected endpoint %q", c.Endpoint())
	}
}
