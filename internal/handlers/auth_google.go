package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/identity"
	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleOAuthHandler signs existing accounts in through Google. Accounts are
// never created here; registration still goes through /register.
type GoogleOAuthHandler struct {
	Bridge          *identity.Bridge
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	SecureCookie    bool
	// Endpoint and UserInfoURL are overridable for tests.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	endpoint := h.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (h *GoogleOAuthHandler) tempCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	if h.GoogleClientID == "" {
		return apperr.NotFound("Google sign-in is not configured.")
	}
	next := c.Query("next", "/dashboard")
	st := randomState(32)

	h.tempCookie(c, "oauth_state", st, 10*60)
	h.tempCookie(c, "oauth_next", next, 10*60)

	return c.Redirect(h.oauthCfg().AuthCodeURL(st), http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return apperr.Validation("Missing code/state.")
	}

	stCookie := c.Cookies("oauth_state")
	next := c.Cookies("oauth_next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/dashboard"
	}
	if stCookie == "" || stCookie != state {
		return apperr.Validation("Invalid state.")
	}
	h.tempCookie(c, "oauth_state", "", -1)
	h.tempCookie(c, "oauth_next", "", -1)

	cfg := h.oauthCfg()
	tok, err := cfg.Exchange(c.UserContext(), code)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Failed to exchange code.", err)
	}

	infoURL := h.UserInfoURL
	if infoURL == "" {
		infoURL = googleUserInfoURL
	}
	resp, err := cfg.Client(c.UserContext(), tok).Get(infoURL)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "Failed to fetch userinfo.", err)
	}
	defer resp.Body.Close()

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return apperr.Wrap(apperr.KindValidation, "Failed to decode userinfo.", err)
	}
	if gu.Email == "" || !gu.VerifiedEmail {
		return h.fail(c, "Please verify your email.")
	}

	sess, err := h.Bridge.LoginVerifiedEmail(c.UserContext(), gu.Email)
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
			return h.fail(c, e.Message)
		}
		return err
	}

	utils.LogEvent(c.UserContext(), "google_login", map[string]interface{}{
		"user_id": sess.User.ID.String(),
	})
	setSessionCookie(c, sess, h.SecureCookie)
	return c.Redirect(h.FrontendBaseURL+next+"#token="+url.QueryEscape(sess.Token), http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) fail(c *fiber.Ctx, msg string) error {
	return c.Redirect(h.FrontendBaseURL+"/login?err="+url.QueryEscape(msg), http.StatusTemporaryRedirect)
}
