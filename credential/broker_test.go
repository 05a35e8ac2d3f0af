package credential

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

type countingStore struct {
	inner   SecretStore
	gets    atomic.Int32
	puts    atomic.Int32
	getErr  error
	putErr  error
	getHold chan struct{}
}

func (s *countingStore) Get(ctx context.Context, path string) (*Secret, error) {
	s.gets.Add(1)
	if s.getHold != nil {
		<-s.getHold
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.inner.Get(ctx, path)
}

func (s *countingStore) Put(ctx context.Context, path string, data map[string]string, cas int) error {
	s.puts.Add(1)
	if s.putErr != nil {
		return s.putErr
	}
	return s.inner.Put(ctx, path, data, cas)
}

var githubWork = model.CredentialDefinition{
	Name:          "github_work",
	PathTemplate:  "tenants/{tenant}/users/{user}/github/work",
	InjectionKind: model.InjectEnvironment,
	FieldMapping:  map[string]string{"token": "GITHUB_TOKEN"},
}

func googleCalendar(tokenURL string) model.CredentialDefinition {
	return model.CredentialDefinition{
		Name:          "google_calendar",
		PathTemplate:  "tenants/{tenant}/users/{user}/google/calendar",
		InjectionKind: model.InjectHeader,
		FieldMapping:  map[string]string{"access_token": "X-Google-Access-Token"},
		OAuth:         &model.OAuthSettings{TokenURL: tokenURL},
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func seedStore(t *testing.T) *MemorySecretStore {
	t.Helper()
	s := NewMemorySecretStore()
	require.NoError(t, s.Put(context.Background(), "tenants/acme/users/alice/github/work",
		map[string]string{"token": "ghp_alice"}, 0))
	return s
}

func TestResolveCacheMissThenHit(t *testing.T) {
	store := &countingStore{inner: seedStore(t)}
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBroker(nil, store, []model.CredentialDefinition{githubWork}, Options{CacheTTL: 5 * time.Minute, Now: clk.Now})
	ctx := context.Background()

	cred, err := b.Resolve(ctx, "github_work", "acme", "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GITHUB_TOKEN": "ghp_alice"}, cred.Values)
	assert.Equal(t, model.InjectEnvironment, cred.Kind)
	assert.EqualValues(t, 1, store.gets.Load())

	cred, err = b.Resolve(ctx, "github_work", "acme", "alice")
	require.NoError(t, err)
	assert.Equal(t, "ghp_alice", cred.Values["GITHUB_TOKEN"])
	assert.EqualValues(t, 1, store.gets.Load(), "a cache hit makes no store calls")

	clk.Advance(6 * time.Minute)
	_, err = b.Resolve(ctx, "github_work", "acme", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, store.gets.Load(), "expired entries are refetched")
}

func TestResolveConcurrentMissesShareOneFetch(t *testing.T) {
	hold := make(chan struct{})
	store := &countingStore{inner: seedStore(t), getHold: hold}
	b := NewBroker(nil, store, []model.CredentialDefinition{githubWork}, Options{})

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Resolve(context.Background(), "github_work", "acme", "alice")
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(hold)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, store.gets.Load())
}

func TestResolveErrors(t *testing.T) {
	store := &countingStore{inner: seedStore(t)}
	b := NewBroker(nil, store, []model.CredentialDefinition{githubWork}, Options{})
	ctx := context.Background()

	_, err := b.Resolve(ctx, "nope", "acme", "alice")
	assert.True(t, errors.Is(err, gw_errors.ErrConfiguration))

	_, err = b.Resolve(ctx, "github_work", "", "alice")
	assert.True(t, errors.Is(err, gw_errors.ErrConfiguration), "missing tenant")

	_, err = b.Resolve(ctx, "github_work", "acme", "../bob")
	assert.True(t, errors.Is(err, gw_errors.ErrConfiguration), "path traversal")

	_, err = b.Resolve(ctx, "github_work", "acme", "nobody")
	assert.True(t, errors.Is(err, gw_errors.ErrCredentialFetch))

	store.getErr = errors.New("connection refused")
	_, err = b.Resolve(ctx, "github_work", "acme", "alice")
	assert.True(t, errors.Is(err, gw_errors.ErrCredentialFetch))
}

func TestResolveMissingField(t *testing.T) {
	store := NewMemorySecretStore()
	require.NoError(t, store.Put(context.Background(), "tenants/acme/users/alice/github/work",
		map[string]string{"other": "x"}, 0))
	b := NewBroker(nil, store, []model.CredentialDefinition{githubWork}, Options{})

	_, err := b.Resolve(context.Background(), "github_work", "acme", "alice")
	assert.True(t, errors.Is(err, gw_errors.ErrConfiguration))
}

func tokenServer(t *testing.T, hits *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt-1", r.Form.Get("refresh_token"))
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-2","token_type":"Bearer","expires_in":3600,"refresh_token":"rt-2"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func seedOAuth(t *testing.T, expiry time.Time) *MemorySecretStore {
	t.Helper()
	s := NewMemorySecretStore()
	require.NoError(t, s.Put(context.Background(), "tenants/acme/users/alice/google/calendar", map[string]string{
		model.OAuthFieldAccessToken:       "at-1",
		model.OAuthFieldAccessTokenExpiry: expiry.UTC().Format(time.RFC3339),
		model.OAuthFieldRefreshToken:      "rt-1",
		model.OAuthFieldClientID:          "client",
		model.OAuthFieldClientSecret:      "secret",
	}, 0))
	return s
}

func TestOAuthValidTokenIsNotRefreshed(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits, http.StatusOK)
	store := seedOAuth(t, time.Now().Add(time.Hour))
	b := NewBroker(nil, store, []model.CredentialDefinition{googleCalendar(srv.URL)}, Options{})

	cred, err := b.Resolve(context.Background(), "google_calendar", "acme", "alice")
	require.NoError(t, err)
	assert.Equal(t, "at-1", cred.Values["X-Google-Access-Token"])
	assert.EqualValues(t, 0, hits.Load())
}

func TestOAuthSingleFlightRefresh(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits, http.StatusOK)
	inner := seedOAuth(t, time.Now().Add(10*time.Second))
	store := &countingStore{inner: inner}
	b := NewBroker(nil, store, []model.CredentialDefinition{googleCalendar(srv.URL)}, Options{})

	const callers = 10
	var wg sync.WaitGroup
	tokens := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cred, err := b.Resolve(context.Background(), "google_calendar", "acme", "alice")
			if assert.NoError(t, err) {
				tokens <- cred.Values["X-Google-Access-Token"]
			}
		}()
	}
	wg.Wait()
	close(tokens)

	for tok := range tokens {
		assert.Equal(t, "at-2", tok)
	}
	assert.EqualValues(t, 1, hits.Load(), "one token endpoint call for all callers")
	assert.EqualValues(t, 1, store.puts.Load(), "one write-back")

	sec, err := inner.Get(context.Background(), "tenants/acme/users/alice/google/calendar")
	require.NoError(t, err)
	assert.Equal(t, "at-2", sec.Data[model.OAuthFieldAccessToken])
	assert.Equal(t, "rt-2", sec.Data[model.OAuthFieldRefreshToken])
	assert.Equal(t, "client", sec.Data[model.OAuthFieldClientID])
}

func TestOAuthRefreshFailureLeavesStoreUnchanged(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits, http.StatusBadRequest)
	inner := seedOAuth(t, time.Now().Add(-time.Minute))
	store := &countingStore{inner: inner}
	b := NewBroker(nil, store, []model.CredentialDefinition{googleCalendar(srv.URL)}, Options{})

	_, err := b.Resolve(context.Background(), "google_calendar", "acme", "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gw_errors.ErrTokenRefresh))
	assert.EqualValues(t, 0, store.puts.Load())

	sec, err := inner.Get(context.Background(), "tenants/acme/users/alice/google/calendar")
	require.NoError(t, err)
	assert.Equal(t, "at-1", sec.Data[model.OAuthFieldAccessToken])
	assert.Equal(t, "rt-1", sec.Data[model.OAuthFieldRefreshToken])
	assert.Equal(t, 1, sec.Version)
}

func TestOAuthWriteBackFailure(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits, http.StatusOK)
	inner := seedOAuth(t, time.Now().Add(-time.Minute))
	store := &countingStore{inner: inner, putErr: ErrVersionConflict}
	b := NewBroker(nil, store, []model.CredentialDefinition{googleCalendar(srv.URL)}, Options{})

	_, err := b.Resolve(context.Background(), "google_calendar", "acme", "alice")
	assert.True(t, errors.Is(err, gw_errors.ErrTokenRefresh))

	sec, err := inner.Get(context.Background(), "tenants/acme/users/alice/google/calendar")
	require.NoError(t, err)
	assert.Equal(t, "at-1", sec.Data[model.OAuthFieldAccessToken])
}

func TestOAuthRefreshWithoutExpiresIn(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-2","token_type":"Bearer"}`))
	}))
	t.Cleanup(srv.Close)

	clk := &clock{t: time.Now()}
	inner := seedOAuth(t, clk.Now().Add(-time.Minute))
	b := NewBroker(nil, inner, []model.CredentialDefinition{googleCalendar(srv.URL)}, Options{CacheTTL: 5 * time.Minute, Now: clk.Now})
	ctx := context.Background()

	cred, err := b.Resolve(ctx, "google_calendar", "acme", "alice")
	require.NoError(t, err)
	assert.Equal(t, "at-2", cred.Values["X-Google-Access-Token"])
	assert.EqualValues(t, 1, hits.Load())

	sec, err := inner.Get(ctx, "tenants/acme/users/alice/google/calendar")
	require.NoError(t, err)
	assert.NotEmpty(t, sec.Data[model.OAuthFieldAccessTokenExpiry])
	assert.Equal(t, "rt-1", sec.Data[model.OAuthFieldRefreshToken])

	b.ClearCache("")
	_, err = b.Resolve(ctx, "google_calendar", "acme", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load(), "a token without expires_in is reused within the cache lifetime")

	clk.Advance(6 * time.Minute)
	b.ClearCache("")
	_, err = b.Resolve(ctx, "google_calendar", "acme", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestInjectAndTestInjection(t *testing.T) {
	store := seedStore(t)
	sel := NewStaticSelector(map[string]string{"github": "github_work"}, "")
	b := NewBroker(sel, store, []model.CredentialDefinition{githubWork}, Options{})
	ctx := context.Background()
	req := InjectRequest{Service: "github", Tenant: "acme", Identity: "alice"}

	inj, err := b.Inject(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "github_work", inj.Credential)
	assert.Equal(t, "ghp_alice", inj.Values["GITHUB_TOKEN"])
	assert.False(t, inj.Redacted)

	inj, err = b.TestInjection(ctx, req)
	require.NoError(t, err)
	assert.True(t, inj.Redacted)
	assert.Equal(t, redacted, inj.Values["GITHUB_TOKEN"])

	again, err := b.Resolve(ctx, "github_work", "acme", "alice")
	require.NoError(t, err)
	assert.Equal(t, "ghp_alice", again.Values["GITHUB_TOKEN"], "redaction does not touch the cache")

	_, err = b.Inject(ctx, InjectRequest{Service: "jira", Tenant: "acme", Identity: "alice"})
	assert.True(t, errors.Is(err, gw_errors.ErrConfiguration))
}

func TestClearCache(t *testing.T) {
	store := &countingStore{inner: seedStore(t)}
	b := NewBroker(nil, store, []model.CredentialDefinition{githubWork}, Options{})
	ctx := context.Background()

	_, err := b.Resolve(ctx, "github_work", "acme", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, b.ClearCache("other"))
	assert.Equal(t, 1, b.ClearCache("github_work"))

	_, err = b.Resolve(ctx, "github_work", "acme", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, store.gets.Load())
}

func TestMemorySecretStoreCheckAndSet(t *testing.T) {
	s := NewMemorySecretStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "p", map[string]string{"a": "1"}, 0))
	require.NoError(t, s.Put(ctx, "p", map[string]string{"a": "2"}, 1))

	err := s.Put(ctx, "p", map[string]string{"a": "3"}, 1)
	assert.True(t, errors.Is(err, ErrVersionConflict))

	sec, err := s.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "2", sec.Data["a"])
	assert.Equal(t, 2, sec.Version)
}
