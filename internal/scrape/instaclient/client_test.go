package instaclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediagrab/mediagrab/internal/scrape"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second, UserAgent: "test-agent"}, nil)
}

func TestFetchPostExtractsMedia(t *testing.T) {
	t.Parallel()

	cl := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/p/Cabc123/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><head>
			<meta property="og:image" content="https://cdn.example/post.jpg"/>
		</head></html>`))
	}))

	items, err := cl.FetchPost("Cabc123")
	if err != nil {
		t.Fatalf("FetchPost() error = %v", err)
	}
	if len(items) != 1 || items[0].URL != "https://cdn.example/post.jpg" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestFetchPostNotFound(t *testing.T) {
	t.Parallel()

	cl := newTestClient(t, http.NotFoundHandler())
	_, err := cl.FetchPost("Cgone")
	if scrape.KindOf(err) != scrape.KindPostNotFound {
		t.Fatalf("expected post-not-found, got %v", err)
	}
}

func TestFetchProfileNotFound(t *testing.T) {
	t.Parallel()

	cl := newTestClient(t, http.NotFoundHandler())
	_, err := cl.FetchProfile("ghost")
	if scrape.KindOf(err) != scrape.KindProfileNotFound {
		t.Fatalf("expected profile-not-found, got %v", err)
	}
}

func TestFetchRateLimited(t *testing.T) {
	t.Parallel()

	cl := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err := cl.FetchPost("Cabc123")
	if !scrape.IsRateLimited(err) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
}

func TestFetchLoginWall(t *testing.T) {
	t.Parallel()

	// A 200 page without og tags means the upstream served a login wall.
	cl := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>Log in to continue</body></html>`))
	}))
	_, err := cl.FetchPost("Cabc123")
	if scrape.KindOf(err) != scrape.KindLoginRequired {
		t.Fatalf("expected login-required, got %v", err)
	}
}

func TestFetchConnectionError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	cl := New(Config{BaseURL: srv.URL, Timeout: time.Second}, nil)

	_, err := cl.FetchPost("Cabc123")
	if scrape.KindOf(err) != scrape.KindUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestCookieRoundTrip(t *testing.T) {
	t.Parallel()

	cl := newTestClient(t, http.NotFoundHandler())
	if cl.LoggedIn() {
		t.Fatal("fresh client must not report a session")
	}

	blob := []byte(`[{"name":"sessionid","value":"abc123"},{"name":"csrftoken","value":"tok"}]`)
	if err := cl.ImportCookies(blob); err != nil {
		t.Fatalf("ImportCookies() error = %v", err)
	}
	if !cl.LoggedIn() {
		t.Fatal("expected a session after import")
	}

	out, err := cl.ExportCookies()
	if err != nil {
		t.Fatalf("ExportCookies() error = %v", err)
	}
	var records []sessionCookie
	if err := json.Unmarshal(out, &records); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	found := false
	for _, rec := range records {
		if rec.Name == "sessionid" && rec.Value == "abc123" {
			found = true
		}
	}
	if !found {
		t.Fatalf("exported cookies missing sessionid: %+v", records)
	}

	cl.Close()
	if cl.LoggedIn() {
		t.Fatal("expected session dropped after close")
	}
}

func TestImportCookiesRejectsGarbage(t *testing.T) {
	t.Parallel()

	cl := newTestClient(t, http.NotFoundHandler())
	if err := cl.ImportCookies([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed blob")
	}
	if err := cl.ImportCookies([]byte("[]")); err == nil {
		t.Fatal("expected error for empty cookie list")
	}
	if err := cl.ImportCookies([]byte(`[{"name":"other","value":"x"}]`)); err == nil {
		t.Fatal("expected error when no session cookie is present")
	}
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	cl := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok", Path: "/"})
			_, _ = w.Write([]byte("<html></html>"))
		case r.Method == http.MethodPost && r.URL.Path == "/accounts/login/ajax/":
			if r.Header.Get("X-CSRFToken") != "tok" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"authenticated":false}`))
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "s3ss", Path: "/"})
			_, _ = w.Write([]byte(`{"authenticated":true,"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))

	if err := cl.Login("alice", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !cl.LoggedIn() {
		t.Fatal("expected a session cookie after login")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	t.Parallel()

	cl := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok", Path: "/"})
			_, _ = w.Write([]byte("<html></html>"))
			return
		}
		_, _ = w.Write([]byte(`{"authenticated":false,"user":true,"status":"ok"}`))
	}))

	err := cl.Login("alice", "wrong")
	if scrape.KindOf(err) != scrape.KindInvalidCredentials {
		t.Fatalf("expected invalid-credentials, got %v", err)
	}
}

func TestLoginTwoFactor(t *testing.T) {
	t.Parallel()

	cl := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok", Path: "/"})
			_, _ = w.Write([]byte("<html></html>"))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"authenticated":false,"two_factor_required":true}`))
	}))

	err := cl.Login("alice", "pw")
	if scrape.KindOf(err) != scrape.KindTwoFactorRequired {
		t.Fatalf("expected two-factor-required, got %v", err)
	}
}
