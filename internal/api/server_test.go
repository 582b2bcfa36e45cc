package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldwatch/coldwatch-server/internal/alerts"
	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/config"
	"github.com/coldwatch/coldwatch-server/internal/ingest"
	"github.com/coldwatch/coldwatch-server/internal/models"
	"github.com/coldwatch/coldwatch-server/internal/ratelimit"
	"github.com/coldwatch/coldwatch-server/internal/storage"
	"github.com/coldwatch/coldwatch-server/pkg/crypto"
)

// fakeStore is an in-memory Store covering what the handlers under test
// touch. Unimplemented methods panic through the embedded nil interface.
type fakeStore struct {
	storage.Store

	mu        sync.Mutex
	profiles  map[uuid.UUID]*models.Profile
	tenants   map[uuid.UUID]*models.Tenant
	sites     map[uuid.UUID]*models.Site
	envs      map[uuid.UUID]*models.Environment
	sensors   map[uuid.UUID]*models.Sensor
	alerts    map[uuid.UUID]*models.Alert
	readings  []*models.Reading
	activity  []*models.AdminActivity
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[uuid.UUID]*models.Profile),
		tenants:  make(map[uuid.UUID]*models.Tenant),
		sites:    make(map[uuid.UUID]*models.Site),
		envs:     make(map[uuid.UUID]*models.Environment),
		sensors:  make(map[uuid.UUID]*models.Sensor),
		alerts:   make(map[uuid.UUID]*models.Alert),
	}
}

func tenantMatches(rowTenant uuid.UUID, filter *uuid.UUID) bool {
	return filter == nil || rowTenant == *filter
}

func (s *fakeStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) CreateProfile(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.ID = uuid.New()
	profile.CreatedAt = time.Now()
	s.profiles[profile.ID] = profile
	return nil
}

func (s *fakeStore) ListProfiles(_ context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.Profile, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Profile
	for _, p := range s.profiles {
		switch {
		case tenantID == nil:
			out = append(out, p)
		case p.TenantID != nil && *p.TenantID == *tenantID:
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) GetProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) TouchProfileLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		p.LastLoginAt = &at
	}
	return nil
}

func (s *fakeStore) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tenants[id]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) ListSites(_ context.Context, tenantID *uuid.UUID, limit, offset int) ([]*models.Site, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Site
	for _, site := range s.sites {
		if tenantMatches(site.TenantID, tenantID) {
			out = append(out, site)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeStore) GetSite(_ context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if site, ok := s.sites[id]; ok && tenantMatches(site.TenantID, tenantID) {
		return site, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) CreateSite(_ context.Context, site *models.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site.ID = uuid.New()
	site.CreatedAt = time.Now()
	s.sites[site.ID] = site
	return nil
}

func (s *fakeStore) GetSiteCounts(_ context.Context, _ uuid.UUID) (*models.SiteCounts, error) {
	return &models.SiteCounts{}, nil
}

func (s *fakeStore) GetSensor(_ context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Sensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sensor, ok := s.sensors[id]; ok && tenantMatches(sensor.TenantID, tenantID) {
		return sensor, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) GetEnvironment(_ context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if env, ok := s.envs[id]; ok && tenantMatches(env.TenantID, tenantID) {
		return env, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) InsertReading(_ context.Context, reading *models.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, reading)
	return nil
}

func (s *fakeStore) GetOpenAlertForSensor(_ context.Context, sensorID uuid.UUID) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.SensorID == sensorID && a.IsOpen() {
			return a, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) CreateAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert.ID = uuid.New()
	s.alerts[alert.ID] = alert
	return nil
}

func (s *fakeStore) GetAlert(_ context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.alerts[id]; ok && tenantMatches(a.TenantID, tenantID) {
		return a, nil
	}
	return nil, storage.ErrNotFound
}

func (s *fakeStore) UpdateAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = alert
	return nil
}

func (s *fakeStore) CreateAdminActivity(_ context.Context, activity *models.AdminActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, activity)
	return nil
}

// ========== Fixture ==========

type fixture struct {
	server *RESTServer
	store  *fakeStore
	cfg    *config.Config

	tenant1 *models.Tenant
	tenant2 *models.Tenant

	admin   *models.Profile
	master1 *models.Profile
	user1   *models.Profile

	site1 *models.Site
	site2 *models.Site

	env1    *models.Environment
	sensor1 *models.Sensor
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Name: "coldwatch-server", Version: "test"},
		JWT: config.JWTConfig{
			Secret:          "test-jwt-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Auth: config.AuthConfig{SessionCookie: "cw_session"},
		Ingest: config.IngestConfig{
			HMACSecret:     "test-hmac-secret",
			ReplayWindow:   5 * time.Minute,
			IdempotencyTTL: time.Hour,
			MaxBatchSize:   100,
		},
		RateLimit: config.RateLimitConfig{
			Window:      time.Minute,
			ReadMax:     60,
			MutationMax: 20,
			ChartMax:    10,
			IngestMax:   100,
		},
	}
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	store := newFakeStore()

	limiter := ratelimit.NewMemoryLimiter(ratelimit.Limits{
		Window:      cfg.RateLimit.Window,
		ReadMax:     cfg.RateLimit.ReadMax,
		MutationMax: cfg.RateLimit.MutationMax,
		ChartMax:    cfg.RateLimit.ChartMax,
		IngestMax:   cfg.RateLimit.IngestMax,
	})
	t.Cleanup(func() { limiter.Close() })

	idem := ingest.NewMemoryIdempotencyStore(cfg.Ingest.IdempotencyTTL)
	t.Cleanup(func() { idem.Close() })

	engine := alerts.NewEngine(store, nil)
	server := NewRESTServer(cfg, store, limiter, idem, engine)

	f := &fixture{server: server, store: store, cfg: cfg}

	f.tenant1 = &models.Tenant{ID: uuid.New(), Name: "Tenant One", Slug: "tenant-one", Plan: models.PlanPro, Status: models.TenantActive}
	f.tenant2 = &models.Tenant{ID: uuid.New(), Name: "Tenant Two", Slug: "tenant-two", Plan: models.PlanBasic, Status: models.TenantActive}
	store.tenants[f.tenant1.ID] = f.tenant1
	store.tenants[f.tenant2.ID] = f.tenant2

	hash, err := crypto.HashPassword("password123")
	require.NoError(t, err)

	f.admin = &models.Profile{ID: uuid.New(), Email: "admin@example.com", Name: "Admin", PasswordHash: hash, Role: models.RoleAdmin, IsActive: true}
	f.master1 = &models.Profile{ID: uuid.New(), Email: "master@one.example.com", Name: "Master", PasswordHash: hash, Role: models.RoleMasterUser, TenantID: &f.tenant1.ID, IsActive: true}
	f.user1 = &models.Profile{ID: uuid.New(), Email: "user@one.example.com", Name: "User", PasswordHash: hash, Role: models.RoleUser, TenantID: &f.tenant1.ID, IsActive: true}
	store.profiles[f.admin.ID] = f.admin
	store.profiles[f.master1.ID] = f.master1
	store.profiles[f.user1.ID] = f.user1

	f.site1 = &models.Site{Name: "Depot One", Status: models.SiteActive}
	f.site1.ID = uuid.New()
	f.site1.TenantID = f.tenant1.ID
	f.site2 = &models.Site{Name: "Depot Two", Status: models.SiteActive}
	f.site2.ID = uuid.New()
	f.site2.TenantID = f.tenant2.ID
	store.sites[f.site1.ID] = f.site1
	store.sites[f.site2.ID] = f.site2

	f.env1 = &models.Environment{
		SiteID: f.site1.ID,
		Name:   "Freezer A",
		Type:   models.EnvBlastFreezer,
		Status: models.EnvironmentActive,
		Thresholds: models.Thresholds{
			CriticalMin: -30, WarningMin: -25, WarningMax: -18, CriticalMax: -15,
		},
	}
	f.env1.ID = uuid.New()
	f.env1.TenantID = f.tenant1.ID
	store.envs[f.env1.ID] = f.env1

	f.sensor1 = &models.Sensor{
		EnvironmentID: f.env1.ID,
		LocalID:       "TMP-001",
		Property:      "temperature_c",
		Status:        models.SensorActive,
	}
	f.sensor1.ID = uuid.New()
	f.sensor1.SiteID = f.site1.ID
	f.sensor1.TenantID = f.tenant1.ID
	store.sensors[f.sensor1.ID] = f.sensor1

	return f
}

func (f *fixture) token(t *testing.T, profile *models.Profile) string {
	t.Helper()
	manager := auth.NewJWTManager(&f.cfg.JWT)
	access, _, err := manager.GenerateTokenPair(profile)
	require.NoError(t, err)
	return access
}

func (f *fixture) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	return rec
}

// ========== Tests ==========

func TestLoginAndMe(t *testing.T) {
	f := newFixture(t, testConfig())

	rec := f.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "master@one.example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var loginResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	assert.Equal(t, "Bearer", loginResp.TokenType)
	require.NotEmpty(t, loginResp.AccessToken)

	rec = f.request(t, http.MethodGet, "/api/v1/auth/me", loginResp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "master@one.example.com")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t, testConfig())

	rec := f.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "master@one.example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsSuspendedOrganization(t *testing.T) {
	f := newFixture(t, testConfig())
	f.tenant1.Status = models.TenantSuspended

	rec := f.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "master@one.example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	f := newFixture(t, testConfig())

	rec := f.request(t, http.MethodGet, "/api/v1/sites", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSiteListIsTenantScoped(t *testing.T) {
	f := newFixture(t, testConfig())

	rec := f.request(t, http.MethodGet, "/api/v1/sites", f.token(t, f.master1), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Depot One")
	assert.NotContains(t, rec.Body.String(), "Depot Two")

	// Admin sees everything.
	rec = f.request(t, http.MethodGet, "/api/v1/sites", f.token(t, f.admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Depot One")
	assert.Contains(t, rec.Body.String(), "Depot Two")
}

func TestCrossTenantSiteIsNotFound(t *testing.T) {
	f := newFixture(t, testConfig())

	// Master of tenant one asking for tenant two's site gets 404, not 403.
	rec := f.request(t, http.MethodGet, "/api/v1/sites/"+f.site2.ID.String(), f.token(t, f.master1), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Admin reaches it.
	rec = f.request(t, http.MethodGet, "/api/v1/sites/"+f.site2.ID.String(), f.token(t, f.admin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserCannotMutate(t *testing.T) {
	f := newFixture(t, testConfig())

	rec := f.request(t, http.MethodPost, "/api/v1/sites", f.token(t, f.user1), map[string]string{
		"name": "New Depot",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminSurfaceIsAdminOnly(t *testing.T) {
	f := newFixture(t, testConfig())

	rec := f.request(t, http.MethodGet, "/api/v1/admin/organizations", f.token(t, f.master1), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/v1/admin/organizations", f.token(t, f.user1), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAlertManagementRoles(t *testing.T) {
	f := newFixture(t, testConfig())

	alert := &models.Alert{
		SiteID:        f.site1.ID,
		EnvironmentID: f.env1.ID,
		SensorID:      f.sensor1.ID,
		Level:         models.AlertCritical,
		Status:        models.AlertOpen,
		Message:       "too warm",
		OpenedAt:      time.Now(),
	}
	alert.ID = uuid.New()
	alert.TenantID = f.tenant1.ID
	f.store.alerts[alert.ID] = alert

	path := "/api/v1/alerts/" + alert.ID.String() + "/acknowledge"

	// Platform admin is read-only on alerts.
	rec := f.request(t, http.MethodPost, path, f.token(t, f.admin), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Plain user cannot manage either.
	rec = f.request(t, http.MethodPost, path, f.token(t, f.user1), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Organization master acknowledges.
	rec = f.request(t, http.MethodPost, path, f.token(t, f.master1), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.AlertAcknowledged, alert.Status)
	require.NotNil(t, alert.AcknowledgedBy)
	assert.Equal(t, f.master1.ID, *alert.AcknowledgedBy)

	// Acknowledging twice conflicts.
	rec = f.request(t, http.MethodPost, path, f.token(t, f.master1), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Resolve from acknowledged.
	rec = f.request(t, http.MethodPost, "/api/v1/alerts/"+alert.ID.String()+"/resolve", f.token(t, f.master1), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AlertResolved, alert.Status)
}

func TestReadRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.ReadMax = 3
	f := newFixture(t, cfg)

	token := f.token(t, f.master1)

	for i := 0; i < 3; i++ {
		rec := f.request(t, http.MethodGet, "/api/v1/sites", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := f.request(t, http.MethodGet, "/api/v1/sites", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Another caller is unaffected.
	rec = f.request(t, http.MethodGet, "/api/v1/sites", f.token(t, f.admin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInviteRespectsUserLimit(t *testing.T) {
	f := newFixture(t, testConfig())
	f.tenant1.MaxUsers = 2 // master1 and user1 already fill it

	token := f.token(t, f.admin)

	rec := f.request(t, http.MethodPost, "/api/v1/users/invite", token, map[string]interface{}{
		"email":    "third@one.example.com",
		"name":     "Third User",
		"role":     "user",
		"tenantId": f.tenant1.ID.String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// A tenant with headroom accepts the invite.
	f.tenant2.MaxUsers = 10
	rec = f.request(t, http.MethodPost, "/api/v1/users/invite", token, map[string]interface{}{
		"email":    "first@two.example.com",
		"name":     "First User",
		"role":     "user",
		"tenantId": f.tenant2.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "temporary_password")
}

func TestCORSCredentialsRequireConcreteOrigin(t *testing.T) {
	// Wildcard origin must not advertise credential support.
	f := newFixture(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	// A configured app origin gets credentialed CORS.
	cfg := testConfig()
	cfg.Server.PublicAppURL = "https://app.example.com"
	f = newFixture(t, cfg)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

// ========== Ingestion ==========

func signedIngestRequest(t *testing.T, f *fixture, body []byte, deviceID, idemKey string) *http.Request {
	t.Helper()

	v := ingest.NewSignatureValidator(f.cfg.Ingest.HMACSecret, f.cfg.Ingest.ReplayWindow)
	ts := time.Now().UTC().Format(time.RFC3339)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/readings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Device-Id", deviceID)
	req.Header.Set("X-Signature", v.Compute(body, ts, deviceID))
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	return req
}

func ingestBody(f *fixture, value float64) []byte {
	return []byte(fmt.Sprintf(`{"readings":[{"ts":%q,"sensor_id":%q,"value":%g}]}`,
		time.Now().UTC().Format(time.RFC3339), f.sensor1.ID.String(), value))
}

func TestIngestAcceptsSignedBatch(t *testing.T) {
	f := newFixture(t, testConfig())

	body := ingestBody(f, -20)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, signedIngestRequest(t, f, body, "device-1", ""))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Processed int           `json:"processed"`
		Errors    []interface{} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Processed)
	assert.Empty(t, resp.Errors)
	assert.Len(t, f.store.readings, 1)
}

func TestIngestOpensAlertOnCriticalReading(t *testing.T) {
	f := newFixture(t, testConfig())

	body := ingestBody(f, -5)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, signedIngestRequest(t, f, body, "device-1", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.store.alerts, 1)
	for _, a := range f.store.alerts {
		assert.Equal(t, models.AlertCritical, a.Level)
		assert.Equal(t, f.sensor1.ID, a.SensorID)
	}
}

func TestIngestRejectsTamperedSignature(t *testing.T) {
	f := newFixture(t, testConfig())

	body := ingestBody(f, -20)
	req := signedIngestRequest(t, f, body, "device-1", "")
	req.Header.Set("X-Signature", "deadbeef")

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.store.readings)
}

func TestIngestRejectsStaleTimestamp(t *testing.T) {
	f := newFixture(t, testConfig())

	body := ingestBody(f, -20)
	v := ingest.NewSignatureValidator(f.cfg.Ingest.HMACSecret, f.cfg.Ingest.ReplayWindow)
	stale := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/readings", bytes.NewReader(body))
	req.Header.Set("X-Timestamp", stale)
	req.Header.Set("X-Device-Id", "device-1")
	req.Header.Set("X-Signature", v.Compute(body, stale, "device-1"))

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIngestIdempotentReplay(t *testing.T) {
	f := newFixture(t, testConfig())

	body := ingestBody(f, -20)

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, signedIngestRequest(t, f, body, "device-1", "batch-42"))
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()
	require.Len(t, f.store.readings, 1)

	// Same key replays the stored response without reprocessing.
	rec = httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, signedIngestRequest(t, f, body, "device-1", "batch-42"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Idempotent-Replay"))
	assert.JSONEq(t, first, rec.Body.String())
	assert.Len(t, f.store.readings, 1)
}

func TestIngestReportsPartialErrors(t *testing.T) {
	f := newFixture(t, testConfig())

	body := []byte(fmt.Sprintf(`{"readings":[{"ts":%q,"sensor_id":%q,"value":-20},{"ts":%q,"sensor_id":"not-a-uuid","value":1}]}`,
		time.Now().UTC().Format(time.RFC3339), f.sensor1.ID.String(),
		time.Now().UTC().Format(time.RFC3339)))

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, signedIngestRequest(t, f, body, "device-1", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Processed int `json:"processed"`
		Errors    []struct {
			Index int    `json:"index"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Processed)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, resp.Errors[0].Index)
}
