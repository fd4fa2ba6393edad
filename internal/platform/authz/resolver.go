package authz

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Resolver errors. ErrNoCredentials means the request carried no session at
// all; anything else means credentials were present but invalid.
var (
	ErrNoCredentials  = errors.New("no credentials presented")
	ErrInvalidSession = errors.New("invalid session")
)

// PrincipalResolver produces a Principal from raw request credentials. The
// identity provider sits behind this interface; resolution may be I/O-bound
// (key fetch, introspection) and honors the request context.
type PrincipalResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*Principal, error)
}

// SessionClaims is the token payload the identity provider issues for one
// session.
type SessionClaims struct {
	jwt.RegisteredClaims
	TenantID      string `json:"tenant_id"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	SessionID     string `json:"sid"`
}

// ResolverConfig configures the JWT-backed principal resolver.
type ResolverConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HMAC validation for development and testing.
	SigningKey []byte
}

// JWTResolver validates bearer tokens against the identity provider's keys
// and maps the claims to a Principal.
type JWTResolver struct {
	cfg     ResolverConfig
	keyFunc jwt.Keyfunc
	opts    []jwt.ParserOption
}

// NewJWTResolver creates a resolver. With a SigningKey it validates HMAC
// tokens locally; otherwise it fetches RSA keys from the JWKS endpoint,
// cached with a TTL.
func NewJWTResolver(cfg ResolverConfig) *JWTResolver {
	r := &JWTResolver{cfg: cfg}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "HS256"}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	r.opts = opts

	if len(cfg.SigningKey) > 0 {
		r.keyFunc = func(t *jwt.Token) (interface{}, error) {
			return cfg.SigningKey, nil
		}
	} else {
		r.keyFunc = jwksKeyFunc(cfg.JWKSURL)
	}
	return r
}

// Resolve extracts and validates the bearer token, returning the session's
// principal. The returned principal may still be unverified or missing a
// tenant; the authentication gate decides what that means for the request.
func (r *JWTResolver) Resolve(ctx context.Context, req *http.Request) (*Principal, error) {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrNoCredentials
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, fmt.Errorf("%w: malformed authorization header", ErrInvalidSession)
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, r.keyFunc, r.opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: token validation failed", ErrInvalidSession)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidSession)
	}

	return &Principal{
		UserID:        claims.Subject,
		TenantID:      claims.TenantID,
		Role:          claims.Role,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// SessionIDFromRequest extracts the session identifier claim without
// re-validating the token; used only for audit context after the chain has
// already authorized the request.
func SessionIDFromRequest(req *http.Request) string {
	authHeader := req.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	claims := &SessionClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(parts[1], claims); err != nil {
		return ""
	}
	return claims.SessionID
}

// ---------- JWKS ----------

// jwksKey is a single JSON Web Key from a JWKS endpoint.
type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

// jwksCache caches JWKS keys fetched from a remote endpoint with a TTL.
type jwksCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	jwksURL   string
	ttl       time.Duration
	fetchedAt time.Time
	client    *http.Client
}

const defaultJWKSCacheTTL = 5 * time.Minute

func newJWKSCache(jwksURL string, ttl time.Duration) *jwksCache {
	return &jwksCache{
		keys:    make(map[string]*rsa.PublicKey),
		jwksURL: jwksURL,
		ttl:     ttl,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// getKey returns the RSA public key for kid, fetching from the endpoint on
// cache miss or TTL expiry.
func (c *jwksCache) getKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	expired := time.Since(c.fetchedAt) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	if err := c.fetch(); err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %q not found in JWKS", kid)
	}
	return key, nil
}

func (c *jwksCache) fetch() error {
	resp, err := c.client.Get(c.jwksURL)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.jwksURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("decoding JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(k)
		if err != nil {
			continue // skip malformed keys
		}
		keys[k.Kid] = pubKey
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return nil
}

func parseRSAPublicKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func jwksKeyFunc(jwksURL string) jwt.Keyfunc {
	cache := newJWKSCache(jwksURL, defaultJWKSCacheTTL)
	return func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return cache.getKey(kid)
	}
}
