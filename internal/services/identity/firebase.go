package identity

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	GoogleCertsURL  = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	firebaseIssuer  = "https://securetoken.google.com/"
	certsCacheKey   = "certs"
	defaultCertsTTL = time.Hour
	minCertsRefresh = time.Minute
	verifierTimeout = 10 * time.Second
	clockSkewLeeway = 30 * time.Second
)

var (
	ErrTokenExpired = errors.New("id token expired")
	ErrTokenInvalid = errors.New("id token invalid")
)

// ExternalIdentity is what the identity provider asserts about a caller.
type ExternalIdentity struct {
	UID           string
	Email         string
	EmailVerified bool
}

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks Firebase ID tokens against Google's rotating
// signing certificates.
type FirebaseVerifier struct {
	ProjectID string
	CertsURL  string
	Client    *http.Client
	// MinRefresh is the shortest gap between two fetches triggered by an
	// unknown key id.
	MinRefresh time.Duration

	cache     *gocache.Cache
	fetches   singleflight.Group
	mu        sync.Mutex
	fetchedAt time.Time
}

func NewFirebaseVerifier(projectID string) *FirebaseVerifier {
	return &FirebaseVerifier{
		ProjectID: projectID,
		CertsURL:  GoogleCertsURL,
		Client:     &http.Client{Timeout: verifierTimeout},
		MinRefresh: minCertsRefresh,
		cache:      gocache.New(defaultCertsTTL, 10*time.Minute),
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	if v.ProjectID == "" {
		return nil, fmt.Errorf("%w: firebase project is not configured", ErrTokenInvalid)
	}

	keyFunc := func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.publicKey(ctx, kid)
	}

	token, err := jwt.ParseWithClaims(idToken, &firebaseClaims{}, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.ProjectID),
		jwt.WithIssuer(firebaseIssuer+v.ProjectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkewLeeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*firebaseClaims)
	if !ok || claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrTokenInvalid)
	}
	return &ExternalIdentity{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

func (v *FirebaseVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if cached, ok := v.cache.Get(certsCacheKey); ok {
		if key, ok := cached.(map[string]*rsa.PublicKey)[kid]; ok {
			return key, nil
		}
		// unknown kid: the certificates may have rotated, but forged kids
		// must not turn every login into an outbound fetch
		if !v.refreshDue() {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
	}
	res, err, _ := v.fetches.Do(certsCacheKey, func() (interface{}, error) {
		return v.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	key, ok := res.(map[string]*rsa.PublicKey)[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

var maxAgeRe = regexp.MustCompile(`max-age=(\d+)`)

func (v *FirebaseVerifier) refreshDue() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return time.Since(v.fetchedAt) >= v.MinRefresh
}

func (v *FirebaseVerifier) refresh(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	v.mu.Lock()
	v.fetchedAt = time.Now()
	v.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.CertsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch signing certs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch signing certs: status %d", resp.StatusCode)
	}

	var raw map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode signing certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(raw))
	for kid, certPEM := range raw {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok {
			keys[kid] = pub
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("no usable signing certs")
	}

	ttl := defaultCertsTTL
	if m := maxAgeRe.FindStringSubmatch(resp.Header.Get("Cache-Control")); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}
	v.cache.Set(certsCacheKey, keys, ttl)
	return keys, nil
}
