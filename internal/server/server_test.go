package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/Jaguar1-alt/Gigconnect/internal/config"
	"github.com/Jaguar1-alt/Gigconnect/internal/realtime"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/account"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/admin"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/chat"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/gig"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/identity"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/media"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/proposal"
	"github.com/Jaguar1-alt/Gigconnect/internal/services/review"
	"github.com/Jaguar1-alt/Gigconnect/internal/store/memstore"
)

const testSecret = "server-test-secret"

type fakeVerifier map[string]*identity.ExternalIdentity

func (f fakeVerifier) Verify(ctx context.Context, token string) (*identity.ExternalIdentity, error) {
	id, ok := f[token]
	if !ok {
		return nil, identity.ErrTokenInvalid
	}
	return id, nil
}

type testEnv struct {
	app *fiber.App
	hub *realtime.Hub
	st  *memstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	st := memstore.New()
	verifier := fakeVerifier{}
	for _, name := range []string{"carol", "fred", "gail", "root"} {
		verifier["tok-"+name] = &identity.ExternalIdentity{UID: "uid-" + name, Email: name + "@x.io", EmailVerified: true}
	}

	cfg := config.Config{
		CORSOrigins:        "http://localhost:3000",
		JWTSecret:          testSecret,
		JWTExpiresMin:      60,
		UploadDir:          t.TempDir(),
		RateLimitMax:       1000,
		RateLimitWindowSec: 60,
		Environment:        "test",
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	directory := account.NewDirectory(st)
	gigs := gig.NewManager(st, nil)
	app := New(Deps{
		Config: cfg,
		Log:    log,
		Bridge: identity.NewBridge(st, verifier, identity.Options{
			Secret:     testSecret,
			SessionTTL: time.Hour,
			IsAdmin:    func(uid string) bool { return uid == "uid-root" },
		}),
		Directory: directory,
		Gigs:      gigs,
		Proposals: proposal.NewLedger(st, proposal.Options{OnGigChange: gigs.InvalidateListings}),
		Reviews:   review.NewRegistry(st),
		Relay:     chat.NewRelay(st),
		Console:   admin.NewConsole(directory, gigs, st),
		Uploader:  &media.LocalUploader{Dir: cfg.UploadDir},
		Hub:       hub,
	})
	return &testEnv{app: app, hub: hub, st: st}
}

type reply struct {
	status int
	body   []byte
}

func (r reply) json(t *testing.T, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(r.body, out); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
}

func (r reply) message(t *testing.T) string {
	t.Helper()
	var m struct {
		Message string `json:"message"`
	}
	r.json(t, &m)
	return m.Message
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) reply {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return reply{status: resp.StatusCode, body: b}
}

func (e *testEnv) signup(t *testing.T, name, role string) string {
	t.Helper()
	r := e.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"username": name, "email": name + "@x.io", "role": role, "uid": "uid-" + name,
	})
	if r.status != http.StatusCreated {
		t.Fatalf("register %s: %d %s", name, r.status, r.body)
	}
	r = e.do(t, http.MethodPost, "/api/login", "", map[string]string{"idToken": "tok-" + name})
	if r.status != http.StatusOK {
		t.Fatalf("login %s: %d %s", name, r.status, r.body)
	}
	var out struct {
		SessionToken string `json:"sessionToken"`
		Role         string `json:"role"`
	}
	r.json(t, &out)
	if out.Role != role || out.SessionToken == "" {
		t.Fatalf("login %s: %s", name, r.body)
	}
	return out.SessionToken
}

func expect(t *testing.T, r reply, status int, what string) {
	t.Helper()
	if r.status != status {
		t.Fatalf("%s: status %d, want %d: %s", what, r.status, status, r.body)
	}
}

func TestGigLifecycleOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	client := e.signup(t, "carol", "client")
	fred := e.signup(t, "fred", "freelancer")
	gail := e.signup(t, "gail", "freelancer")
	root := e.signup(t, "root", "admin")

	expect(t, e.do(t, http.MethodPost, "/api/gigs", fred, map[string]interface{}{
		"title": "x", "description": "y", "budget": 10, "duration": "1w", "location": "Remote",
	}), http.StatusForbidden, "freelancer posting a gig")

	r := e.do(t, http.MethodPost, "/api/gigs", client, map[string]interface{}{
		"title": "Landing page", "description": "Build it", "budget": 800,
		"duration": "2 weeks", "skills": []string{"React", "CSS"}, "location": "Remote",
	})
	expect(t, r, http.StatusCreated, "create gig")
	var g struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	r.json(t, &g)
	if g.Status != "open" {
		t.Fatalf("new gig status %q", g.Status)
	}

	var listed []struct{ ID string }
	e.do(t, http.MethodGet, "/api/gigs/all?skills=react&location=remote&budget=1000", "", nil).json(t, &listed)
	if len(listed) != 1 || listed[0].ID != g.ID {
		t.Fatalf("browse: %+v", listed)
	}
	e.do(t, http.MethodGet, "/api/gigs/all?budget=500", "", nil).json(t, &listed)
	if len(listed) != 0 {
		t.Fatalf("budget filter: %+v", listed)
	}

	bid := func(token string, amount int) reply {
		return e.do(t, http.MethodPost, "/api/gigs/"+g.ID+"/proposals", token, map[string]interface{}{
			"bidAmount": amount, "message": "I can do this",
		})
	}
	r = bid(fred, 700)
	expect(t, r, http.StatusCreated, "fred bids")
	var fredBid struct{ ID string }
	r.json(t, &fredBid)
	expect(t, bid(gail, 650), http.StatusCreated, "gail bids")

	r = bid(fred, 600)
	expect(t, r, http.StatusBadRequest, "duplicate bid")
	if msg := r.message(t); msg != "You have already submitted a proposal for this gig." {
		t.Fatalf("duplicate message %q", msg)
	}

	var check struct {
		HasApplied bool `json:"hasApplied"`
	}
	e.do(t, http.MethodGet, "/api/gigs/proposals/check/"+g.ID, fred, nil).json(t, &check)
	if !check.HasApplied {
		t.Fatal("fred should have applied")
	}

	expect(t, e.do(t, http.MethodGet, "/api/gigs/"+g.ID+"/proposals", fred, nil), http.StatusForbidden, "freelancer lists proposals")
	var pending []struct{ ID string }
	e.do(t, http.MethodGet, "/api/gigs/"+g.ID+"/proposals", client, nil).json(t, &pending)
	if len(pending) != 2 {
		t.Fatalf("pending proposals: %d", len(pending))
	}

	acceptPath := "/api/gigs/" + g.ID + "/proposals/" + fredBid.ID + "/accept"
	expect(t, e.do(t, http.MethodPut, acceptPath, gail, nil), http.StatusForbidden, "non-owner accept")
	expect(t, e.do(t, http.MethodPut, acceptPath, client, nil), http.StatusOK, "accept")
	r = e.do(t, http.MethodPut, acceptPath, client, nil)
	expect(t, r, http.StatusBadRequest, "accept twice")
	if msg := r.message(t); msg != "Gig is not open for proposals." {
		t.Fatalf("accept twice message %q", msg)
	}

	var checkout struct {
		BidAmount      int64  `json:"bidAmount"`
		FreelancerName string `json:"freelancerName"`
	}
	e.do(t, http.MethodGet, "/api/gigs/"+g.ID+"/checkout-details", client, nil).json(t, &checkout)
	if checkout.BidAmount != 700 || checkout.FreelancerName != "fred" {
		t.Fatalf("checkout %+v", checkout)
	}

	expect(t, e.do(t, http.MethodPut, "/api/gigs/"+g.ID+"/paid", client, nil), http.StatusBadRequest, "paid before complete")
	expect(t, e.do(t, http.MethodPost, "/api/gigs/"+g.ID+"/review", fred, map[string]interface{}{"rating": 5, "comment": "early"}),
		http.StatusBadRequest, "review before paid")
	expect(t, e.do(t, http.MethodPut, "/api/gigs/"+g.ID+"/complete", client, nil), http.StatusOK, "complete")
	expect(t, e.do(t, http.MethodPut, "/api/gigs/"+g.ID+"/paid", client, nil), http.StatusOK, "paid")

	var stats struct {
		Completed int   `json:"completed"`
		Earnings  int64 `json:"earnings"`
	}
	e.do(t, http.MethodGet, "/api/gigs/freelancer/stats", fred, nil).json(t, &stats)
	if stats.Completed != 1 || stats.Earnings != 700 {
		t.Fatalf("freelancer stats %+v", stats)
	}

	review := map[string]interface{}{"rating": 5, "comment": "Great client"}
	expect(t, e.do(t, http.MethodPost, "/api/gigs/"+g.ID+"/review", gail, review), http.StatusForbidden, "outsider review")
	expect(t, e.do(t, http.MethodPost, "/api/gigs/"+g.ID+"/review", fred, review), http.StatusCreated, "review")
	r = e.do(t, http.MethodPost, "/api/gigs/"+g.ID+"/review", client, review)
	expect(t, r, http.StatusBadRequest, "second review")
	if msg := r.message(t); msg != "A review for this gig already exists." {
		t.Fatalf("second review message %q", msg)
	}

	expect(t, e.do(t, http.MethodGet, "/api/admin/payouts", client, nil), http.StatusForbidden, "client on admin route")
	var payouts []struct{ ID string }
	e.do(t, http.MethodGet, "/api/admin/payouts", root, nil).json(t, &payouts)
	if len(payouts) != 1 || payouts[0].ID != g.ID {
		t.Fatalf("payouts %+v", payouts)
	}
	expect(t, e.do(t, http.MethodPut, "/api/admin/payouts/"+g.ID, root, nil), http.StatusOK, "payout")
	expect(t, e.do(t, http.MethodPut, "/api/admin/payouts/"+g.ID, root, nil), http.StatusBadRequest, "payout twice")

	var adminStats struct {
		TotalUsers int64            `json:"totalUsers"`
		TotalGigs  int64            `json:"totalGigs"`
		ByStatus   map[string]int64 `json:"byStatus"`
	}
	e.do(t, http.MethodGet, "/api/admin/stats", root, nil).json(t, &adminStats)
	if adminStats.TotalUsers != 4 || adminStats.TotalGigs != 1 || adminStats.ByStatus["paid-out"] != 1 {
		t.Fatalf("admin stats %+v", adminStats)
	}
}

func TestErrorShapes(t *testing.T) {
	e := newTestEnv(t)

	r := e.do(t, http.MethodGet, "/api/profile", "", nil)
	expect(t, r, http.StatusUnauthorized, "profile without token")

	r = e.do(t, http.MethodGet, "/api/gigs/7a0c3c2e-8f7f-4a77-9d0e-5a3b0c2f9b11", "", nil)
	expect(t, r, http.StatusNotFound, "unknown gig")
	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	r.json(t, &body)
	if body.Message != "Gig not found." || body.Code != "not_found" {
		t.Fatalf("error body %+v", body)
	}

	expect(t, e.do(t, http.MethodGet, "/api/gigs/all?budget=cheap", "", nil), http.StatusBadRequest, "bad budget")

	r = e.do(t, http.MethodPost, "/api/login", "", map[string]string{"idToken": "tok-carol"})
	expect(t, r, http.StatusBadRequest, "login before register")
	if msg := r.message(t); msg != "User not found in database." {
		t.Fatalf("login message %q", msg)
	}

	expect(t, e.do(t, http.MethodGet, "/health", "", nil), http.StatusOK, "health")
}

func TestProfileRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	fred := e.signup(t, "fred", "freelancer")

	r := e.do(t, http.MethodPut, "/api/profile", fred, map[string]interface{}{
		"description": "Go developer",
		"skills":      []string{"Go", "Postgres"},
		"upiId":       "fred@upi",
	})
	expect(t, r, http.StatusOK, "update profile")
	var me struct {
		ID     string   `json:"id"`
		Skills []string `json:"skills"`
		UPIID  string   `json:"upiId"`
	}
	r.json(t, &me)
	if len(me.Skills) != 2 || me.UPIID != "fred@upi" {
		t.Fatalf("profile %+v", me)
	}

	r = e.do(t, http.MethodGet, "/api/profile/"+me.ID, "", nil)
	expect(t, r, http.StatusOK, "public profile")
	var public map[string]interface{}
	r.json(t, &public)
	if _, ok := public["email"]; ok {
		t.Fatal("public profile leaks email")
	}
	if _, ok := public["upiId"]; ok {
		t.Fatal("public profile leaks upiId")
	}
}

func TestPublicGigRoutesHideContactDetails(t *testing.T) {
	e := newTestEnv(t)
	client := e.signup(t, "carol", "client")
	fred := e.signup(t, "fred", "freelancer")
	root := e.signup(t, "root", "admin")

	r := e.do(t, http.MethodPut, "/api/profile", fred, map[string]interface{}{"upiId": "fred@upi"})
	expect(t, r, http.StatusOK, "set upi id")
	var me struct{ ID string }
	r.json(t, &me)

	r = e.do(t, http.MethodPost, "/api/gigs", client, map[string]interface{}{
		"title": "Logo", "description": "Vector logo", "budget": 300, "duration": "3 days", "location": "Remote",
	})
	expect(t, r, http.StatusCreated, "create gig")
	var g struct{ ID string }
	r.json(t, &g)

	private := func(r reply, what string) {
		t.Helper()
		if bytes.Contains(r.body, []byte("@x.io")) || bytes.Contains(r.body, []byte("upiId")) {
			t.Fatalf("%s exposes email or upiId: %s", what, r.body)
		}
	}

	r = e.do(t, http.MethodGet, "/api/gigs/all", "", nil)
	expect(t, r, http.StatusOK, "browse")
	if !bytes.Contains(r.body, []byte(`"username":"carol"`)) {
		t.Fatalf("browse lost the poster: %s", r.body)
	}
	private(r, "browse")

	r = e.do(t, http.MethodPost, "/api/gigs/"+g.ID+"/proposals", fred, map[string]interface{}{"bidAmount": 250, "message": "On it"})
	expect(t, r, http.StatusCreated, "bid")
	var bid struct{ ID string }
	r.json(t, &bid)
	private(e.do(t, http.MethodGet, "/api/gigs/"+g.ID+"/proposals", client, nil), "pending proposals")

	expect(t, e.do(t, http.MethodPut, "/api/gigs/"+g.ID+"/proposals/"+bid.ID+"/accept", client, nil), http.StatusOK, "accept")
	expect(t, e.do(t, http.MethodPut, "/api/gigs/"+g.ID+"/complete", client, nil), http.StatusOK, "complete")
	expect(t, e.do(t, http.MethodPut, "/api/gigs/"+g.ID+"/paid", client, nil), http.StatusOK, "paid")
	expect(t, e.do(t, http.MethodPost, "/api/gigs/"+g.ID+"/review", fred, map[string]interface{}{"rating": 4, "comment": "Clear brief"}),
		http.StatusCreated, "review")

	r = e.do(t, http.MethodGet, "/api/gigs/"+g.ID, "", nil)
	expect(t, r, http.StatusOK, "gig detail")
	if !bytes.Contains(r.body, []byte(`"username":"fred"`)) {
		t.Fatalf("detail lost the hired freelancer: %s", r.body)
	}
	private(r, "gig detail")
	private(e.do(t, http.MethodGet, "/api/gigs/"+g.ID+"/reviews", "", nil), "gig reviews")
	private(e.do(t, http.MethodGet, "/api/gigs/freelancer/"+me.ID+"/reviews", "", nil), "freelancer reviews")
	private(e.do(t, http.MethodGet, "/api/gigs/mygigs", client, nil), "client gigs")

	var payouts []struct {
		HiredFreelancer struct {
			Username string `json:"username"`
			UPIID    string `json:"upiId"`
		} `json:"hiredFreelancer"`
	}
	e.do(t, http.MethodGet, "/api/admin/payouts", root, nil).json(t, &payouts)
	if len(payouts) != 1 || payouts[0].HiredFreelancer.UPIID != "fred@upi" || payouts[0].HiredFreelancer.Username != "fred" {
		t.Fatalf("payouts %+v", payouts)
	}
}
