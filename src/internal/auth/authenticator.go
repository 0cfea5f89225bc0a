package auth

import (
	"encoding/base64"
	"net"
	"strings"
	"sync"
	"time"

	"mqbridge/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Prevent unbounded map growth
const maxTrackedIPs = 10000

// Failed attempts allowed per IP before throttling kicks in
const (
	attemptsPerSecond = 1
	attemptBurst      = 5
)

// dummyHash keeps rejection timing uniform for unknown usernames
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Authenticator validates credentials for the status server.
// Supports basic auth with bcrypt hashes and bearer auth with static
// tokens or HS256 JWTs. A nil Authenticator allows everything.
type Authenticator struct {
	config *config.AuthConfig
	logger *log.Logger

	basicUsers   map[string]string // username -> bcrypt hash
	bearerTokens map[string]bool
	jwtParser    *jwt.Parser
	jwtKey       []byte

	// Brute-force protection
	ipLimiters map[string]*rate.Limiter
	mu         sync.Mutex
}

// New creates an authenticator from config. Returns (nil, nil) when
// authentication is disabled.
func New(cfg *config.AuthConfig, logger *log.Logger) (*Authenticator, error) {
	if cfg == nil || cfg.Type == "" || cfg.Type == "none" {
		return nil, nil
	}

	a := &Authenticator{
		config:       cfg,
		logger:       logger,
		basicUsers:   make(map[string]string),
		bearerTokens: make(map[string]bool),
		ipLimiters:   make(map[string]*rate.Limiter),
	}

	if cfg.Type == "basic" && cfg.BasicAuth != nil {
		for _, user := range cfg.BasicAuth.Users {
			a.basicUsers[user.Username] = user.PasswordHash
		}
	}

	if cfg.Type == "bearer" && cfg.BearerAuth != nil {
		for _, token := range cfg.BearerAuth.Tokens {
			a.bearerTokens[token] = true
		}
		if cfg.BearerAuth.JWTSigningKey != "" {
			a.jwtParser = jwt.NewParser(
				jwt.WithValidMethods([]string{"HS256"}),
				jwt.WithLeeway(5*time.Second),
				jwt.WithExpirationRequired(),
			)
			a.jwtKey = []byte(cfg.BearerAuth.JWTSigningKey)
		}
	}

	logger.Info("msg", "Status authentication enabled",
		"component", "auth",
		"type", cfg.Type)

	return a, nil
}

// Check validates an Authorization header value. The remote address is
// used for per-IP throttling of failed attempts.
func (a *Authenticator) Check(authHeader, remoteAddr string) bool {
	if a == nil {
		return true
	}

	// Throttle by host so rotating source ports shares one limiter
	ip := clientIP(remoteAddr)

	if !a.allowAttempt(ip) {
		a.logger.Warn("msg", "Auth attempt throttled",
			"component", "auth",
			"remote_addr", remoteAddr)
		return false
	}

	var ok bool
	switch a.config.Type {
	case "basic":
		ok = a.checkBasic(authHeader)
	case "bearer":
		ok = a.checkBearer(authHeader)
	}

	if !ok {
		a.recordFailure(ip)
	}
	return ok
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func (a *Authenticator) checkBasic(authHeader string) bool {
	credentials, found := strings.CutPrefix(authHeader, "Basic ")
	if !found {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(credentials)
	if err != nil {
		return false
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return false
	}

	hash, exists := a.basicUsers[username]
	if !exists {
		// Burn comparable time so unknown users are indistinguishable
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (a *Authenticator) checkBearer(authHeader string) bool {
	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return false
	}

	if a.bearerTokens[token] {
		return true
	}

	if a.jwtParser != nil {
		_, err := a.jwtParser.Parse(token, func(*jwt.Token) (any, error) {
			return a.jwtKey, nil
		})
		return err == nil
	}

	return false
}

// allowAttempt gates auth work behind the per-IP limiter. IPs with no
// recorded failures are not limited.
func (a *Authenticator) allowAttempt(ip string) bool {
	a.mu.Lock()
	limiter, exists := a.ipLimiters[ip]
	a.mu.Unlock()

	if !exists {
		return true
	}
	return limiter.Allow()
}

func (a *Authenticator) recordFailure(ip string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.ipLimiters[ip]; exists {
		return
	}
	if len(a.ipLimiters) >= maxTrackedIPs {
		// Reset tracking rather than grow without bound
		a.ipLimiters = make(map[string]*rate.Limiter)
	}
	a.ipLimiters[ip] = rate.NewLimiter(rate.Limit(attemptsPerSecond), attemptBurst)
}
