package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/config"
	"github.com/coldwatch/coldwatch-server/internal/models"
	"github.com/coldwatch/coldwatch-server/internal/storage"
)

// ErrNoCredentials indicates that a strategy found nothing to act on, so
// the resolver should fall through to the next strategy.
var ErrNoCredentials = errors.New("no credentials presented")

// Identity is the resolved caller: the raw auth identity plus the
// application profile.
type Identity struct {
	UserID  uuid.UUID
	Email   string
	Profile *models.Profile
}

// CredentialStrategy extracts and verifies one kind of credential.
// Implementations return ErrNoCredentials when their credential is absent;
// any other error means the credential was presented but failed.
type CredentialStrategy interface {
	Name() string
	Extract(r *http.Request) (*Identity, error)
}

// Resolver tries an ordered list of credential strategies, first success
// wins. A strategy failure is non-fatal; only total failure surfaces as an
// unauthenticated request.
type Resolver struct {
	strategies []CredentialStrategy
	store      storage.Store
}

// NewResolver builds the default strategy chain: trusted proxy headers,
// bearer token, session cookie.
func NewResolver(cfg *config.AuthConfig, jwtManager *JWTManager, store storage.Store) *Resolver {
	var strategies []CredentialStrategy

	if cfg.TrustProxyHeaders {
		strategies = append(strategies, &proxyHeaderStrategy{store: store})
	}

	strategies = append(strategies,
		&bearerTokenStrategy{jwt: jwtManager, store: store},
		&cookieStrategy{jwt: jwtManager, store: store, cookieName: cfg.SessionCookie},
	)

	return &Resolver{strategies: strategies, store: store}
}

// Resolve returns the caller's identity, or nil when no strategy succeeds.
// Inactive and expired profiles resolve to nil.
func (r *Resolver) Resolve(req *http.Request) *Identity {
	for _, strategy := range r.strategies {
		identity, err := strategy.Extract(req)
		if err != nil {
			if !errors.Is(err, ErrNoCredentials) {
				log.Debug().
					Str("strategy", strategy.Name()).
					Err(err).
					Msg("credential strategy failed, falling through")
			}
			continue
		}

		p := identity.Profile
		if p == nil || !p.IsActive || p.IsExpired(time.Now()) {
			continue
		}

		return identity
	}

	return nil
}

// ========== Strategies ==========

// proxyHeaderStrategy trusts X-User-Id/X-User-Email injected by an
// upstream gateway. Enabled only via config.
type proxyHeaderStrategy struct {
	store storage.Store
}

func (s *proxyHeaderStrategy) Name() string { return "proxy-header" }

func (s *proxyHeaderStrategy) Extract(r *http.Request) (*Identity, error) {
	userID := r.Header.Get("X-User-Id")
	email := r.Header.Get("X-User-Email")
	if userID == "" || email == "" {
		return nil, ErrNoCredentials
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, errors.New("malformed X-User-Id")
	}

	profile, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		return nil, err
	}

	return &Identity{UserID: id, Email: email, Profile: profile}, nil
}

// bearerTokenStrategy validates an Authorization: Bearer JWT.
type bearerTokenStrategy struct {
	jwt   *JWTManager
	store storage.Store
}

func (s *bearerTokenStrategy) Name() string { return "bearer-token" }

func (s *bearerTokenStrategy) Extract(r *http.Request) (*Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, ErrNoCredentials
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("malformed authorization header")
	}

	return identityFromToken(r.Context(), s.jwt, s.store, parts[1])
}

// cookieStrategy validates the session cookie set for browser callers.
type cookieStrategy struct {
	jwt        *JWTManager
	store      storage.Store
	cookieName string
}

func (s *cookieStrategy) Name() string { return "session-cookie" }

func (s *cookieStrategy) Extract(r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoCredentials
	}

	return identityFromToken(r.Context(), s.jwt, s.store, cookie.Value)
}

func identityFromToken(ctx context.Context, jwt *JWTManager, store storage.Store, token string) (*Identity, error) {
	claims, err := jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	profile, err := store.GetProfile(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &Identity{UserID: claims.UserID, Email: claims.Email, Profile: profile}, nil
}
