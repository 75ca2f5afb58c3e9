package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"

	"github.com/Jaguar1-alt/Gigconnect/internal/middleware"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/identity"
	"github.com/Jaguar1-alt/Gigconnect/internal/store/memstore"
)

const (
	oauthSecret = "oauth-test-secret"
	frontend    = "http://app.test"
)

// newGoogleStub serves a token endpoint that hands the authorization code
// back as the access token, and a userinfo endpoint that treats the access
// token as the account email. Emails starting with "unverified" are not
// verified.
func newGoogleStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		code := r.PostForm.Get("code")
		if code == "bad-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": code,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		email := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"email":          email,
			"verified_email": !strings.HasPrefix(email, "unverified"),
			"name":           "Test User",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newGoogleApp(t *testing.T) (*fiber.App, *models.User, string) {
	t.Helper()
	st := memstore.New()
	carol := &models.User{ExternalID: "uid-carol", Username: "carol", Email: "carol@x.io", Role: models.RoleClient}
	if err := st.CreateUser(context.Background(), carol); err != nil {
		t.Fatal(err)
	}

	stub := newGoogleStub(t)
	h := &GoogleOAuthHandler{
		Bridge:          identity.NewBridge(st, nil, identity.Options{Secret: oauthSecret, SessionTTL: time.Hour}),
		GoogleClientID:  "client-id",
		GoogleSecret:    "client-secret",
		GoogleRedirect:  "http://api.test/api/auth/google/callback",
		FrontendBaseURL: frontend,
		Endpoint:        oauth2.Endpoint{AuthURL: stub.URL + "/auth", TokenURL: stub.URL + "/token"},
		UserInfoURL:     stub.URL + "/userinfo",
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/start", h.GoogleStart)
	app.Get("/callback", h.GoogleCallback)
	return app, carol, stub.URL
}

func callback(t *testing.T, app *fiber.App, code, state, cookies string) *http.Response {
	t.Helper()
	q := url.Values{"code": {code}, "state": {state}}
	req := httptest.NewRequest(http.MethodGet, "/callback?"+q.Encode(), nil)
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func cookieValue(resp *http.Response, name string) (string, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func TestGoogleStartSetsStateAndRedirects(t *testing.T) {
	app, _, stubURL := newGoogleApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/start?next=/gigs", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status %d", resp.StatusCode)
	}
	state, ok := cookieValue(resp, "oauth_state")
	if !ok || state == "" {
		t.Fatal("oauth_state cookie not set")
	}
	if next, _ := cookieValue(resp, "oauth_next"); next != "/gigs" {
		t.Fatalf("oauth_next = %q", next)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(loc.String(), stubURL+"/auth") || loc.Query().Get("state") != state {
		t.Fatalf("redirect %s", loc)
	}
}

func TestGoogleCallback(t *testing.T) {
	app, carol, _ := newGoogleApp(t)

	t.Run("state mismatch", func(t *testing.T) {
		resp := callback(t, app, "carol@x.io", "forged", "oauth_state=expected")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status %d", resp.StatusCode)
		}
	})

	t.Run("missing state cookie", func(t *testing.T) {
		resp := callback(t, app, "carol@x.io", "s1", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status %d", resp.StatusCode)
		}
	})

	t.Run("failed exchange", func(t *testing.T) {
		resp := callback(t, app, "bad-code", "s1", "oauth_state=s1")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status %d", resp.StatusCode)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := callback(t, app, "stranger@x.io", "s1", "oauth_state=s1")
		want := frontend + "/login?err=" + url.QueryEscape("User not found in database.")
		if resp.StatusCode != http.StatusTemporaryRedirect || resp.Header.Get("Location") != want {
			t.Fatalf("status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
		}
		if _, ok := cookieValue(resp, middleware.SessionCookie); ok {
			t.Fatal("session cookie set for unknown account")
		}
	})

	t.Run("unverified email", func(t *testing.T) {
		resp := callback(t, app, "unverified@x.io", "s1", "oauth_state=s1")
		want := frontend + "/login?err=" + url.QueryEscape("Please verify your email.")
		if resp.Header.Get("Location") != want {
			t.Fatalf("location %q", resp.Header.Get("Location"))
		}
	})

	t.Run("known email", func(t *testing.T) {
		resp := callback(t, app, "carol@x.io", "s1", "oauth_state=s1; oauth_next=/gigs")
		if resp.StatusCode != http.StatusTemporaryRedirect {
			t.Fatalf("status %d", resp.StatusCode)
		}
		loc := resp.Header.Get("Location")
		prefix := frontend + "/gigs#token="
		if !strings.HasPrefix(loc, prefix) {
			t.Fatalf("location %q", loc)
		}
		token, err := url.QueryUnescape(strings.TrimPrefix(loc, prefix))
		if err != nil {
			t.Fatal(err)
		}
		actor, err := identity.ParseSession(oauthSecret, token)
		if err != nil || actor.ID != carol.ID || actor.Role != models.RoleClient {
			t.Fatalf("session %+v err %v", actor, err)
		}
		if cookie, ok := cookieValue(resp, middleware.SessionCookie); !ok || cookie != token {
			t.Fatalf("session cookie %q", cookie)
		}
	})

	for _, next := range []string{"//evil.example", "https://evil.example", "evil"} {
		t.Run("open redirect "+next, func(t *testing.T) {
			resp := callback(t, app, "carol@x.io", "s1", "oauth_state=s1; oauth_next="+next)
			if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, frontend+"/dashboard#token=") {
				t.Fatalf("location %q", loc)
			}
		})
	}
}
