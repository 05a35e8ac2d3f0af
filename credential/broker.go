package credential

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/metrics"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/model"
)

const redacted = "[REDACTED]"

// Options tune caching and timeouts. Zero values take defaults.
type Options struct {
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	// HTTPClient is used for token endpoint calls when set.
	HTTPClient *http.Client
	Now        func() time.Time
}

// InjectRequest asks for the credential values to hand to one backend call.
// Credential overrides the selector when set.
type InjectRequest struct {
	Service    string            `json:"service" binding:"required"`
	Operation  string            `json:"operation,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Tenant     string            `json:"tenant,omitempty"`
	Identity   string            `json:"identity,omitempty"`
	Credential string            `json:"credential,omitempty"`
}

// Injection is the result of Inject.
type Injection struct {
	Credential string              `json:"credential"`
	Kind       model.InjectionKind `json:"kind"`
	Values     map[string]string   `json:"values"`
	Redacted   bool                `json:"redacted,omitempty"`
	ExpiresAt  time.Time           `json:"expires_at"`
}

type cacheEntry struct {
	definition string
	values     map[string]string
	fetchedAt  time.Time
	expiresAt  time.Time
}

// Broker resolves credential definitions against a secret store. Resolved
// values are cached per definition and resolved path.
type Broker struct {
	selector Selector
	store    SecretStore
	opts     Options

	defsMu sync.RWMutex
	defs   map[string]model.CredentialDefinition

	cacheMu sync.RWMutex
	cache   map[string]cacheEntry

	fetches   singleflight.Group
	refreshes singleflight.Group
}

func NewBroker(selector Selector, store SecretStore, defs []model.CredentialDefinition, opts Options) *Broker {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b := &Broker{
		selector: selector,
		store:    store,
		opts:     opts,
		cache:    make(map[string]cacheEntry),
	}
	b.SetDefinitions(defs)
	return b
}

// SetDefinitions replaces the definition registry and drops the cache.
func (b *Broker) SetDefinitions(defs []model.CredentialDefinition) {
	m := make(map[string]model.CredentialDefinition, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	b.defsMu.Lock()
	b.defs = m
	b.defsMu.Unlock()
	b.ClearCache("")
}

// Definitions returns the registered definitions sorted by name.
func (b *Broker) Definitions() []model.CredentialDefinition {
	b.defsMu.RLock()
	defer b.defsMu.RUnlock()
	out := make([]model.CredentialDefinition, 0, len(b.defs))
	for _, d := range b.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (b *Broker) definition(name string) (model.CredentialDefinition, error) {
	b.defsMu.RLock()
	defer b.defsMu.RUnlock()
	def, ok := b.defs[name]
	if !ok {
		return model.CredentialDefinition{}, fmt.Errorf("%w: unknown credential %q", gw_errors.ErrConfiguration, name)
	}
	return def, nil
}

func (b *Broker) now() time.Time { return b.opts.Now() }

// Select runs the configured selection strategy.
func (b *Broker) Select(ctx context.Context, req SelectionRequest) (string, error) {
	if b.selector == nil {
		return "", fmt.Errorf("%w: no credential selector configured", gw_errors.ErrConfiguration)
	}
	return b.selector.Select(ctx, req)
}

// Resolve returns the mapped values of a credential for tenant and identity.
func (b *Broker) Resolve(ctx context.Context, name, tenant, identity string) (*model.ResolvedCredential, error) {
	def, err := b.definition(name)
	if err != nil {
		return nil, err
	}
	path, err := ResolvePath(def.PathTemplate, tenant, identity)
	if err != nil {
		return nil, err
	}

	key := def.Name + "@" + path

	if entry, ok := b.cached(key); ok {
		metrics.CredentialCache.WithLabelValues("hit").Inc()
		return b.resolved(def, entry), nil
	}
	metrics.CredentialCache.WithLabelValues("miss").Inc()

	v, err, _ := b.fetches.Do(key, func() (any, error) {
		if entry, ok := b.cached(key); ok {
			return entry, nil
		}
		return b.fetch(ctx, def, path, key)
	})
	if err != nil {
		return nil, err
	}
	return b.resolved(def, v.(cacheEntry)), nil
}

func (b *Broker) cached(key string) (cacheEntry, bool) {
	b.cacheMu.RLock()
	defer b.cacheMu.RUnlock()
	entry, ok := b.cache[key]
	if !ok || !b.now().Before(entry.expiresAt) {
		return cacheEntry{}, false
	}
	return entry, true
}

func (b *Broker) fetch(ctx context.Context, def model.CredentialDefinition, path, key string) (cacheEntry, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.opts.FetchTimeout)
	defer cancel()

	secret, err := b.store.Get(fetchCtx, path)
	if err != nil {
		logger.Warn("Secret store read failed",
			zap.String("credential", def.Name),
			zap.String("path", path),
			zap.Error(err))
		return cacheEntry{}, fmt.Errorf("%w: %s: %v", gw_errors.ErrCredentialFetch, def.Name, err)
	}

	now := b.now()
	expiresAt := now.Add(b.opts.CacheTTL)
	if def.OAuth != nil {
		rec, err := parseOAuthRecord(secret.Data)
		if err != nil {
			return cacheEntry{}, fmt.Errorf("%w: %s: %v", gw_errors.ErrConfiguration, def.Name, err)
		}
		if needsRefresh(rec, now) {
			secret, err = b.refreshOAuth(fetchCtx, def, path)
			if err != nil {
				return cacheEntry{}, err
			}
			if rec, err = parseOAuthRecord(secret.Data); err != nil {
				return cacheEntry{}, fmt.Errorf("%w: %s: %v", gw_errors.ErrTokenRefresh, def.Name, err)
			}
		}
		if !rec.AccessTokenExpiry.IsZero() {
			if tokenDeadline := rec.AccessTokenExpiry.Add(-ExpirySkew); tokenDeadline.Before(expiresAt) {
				expiresAt = tokenDeadline
			}
		}
	}

	values, err := applyMapping(def, secret.Data)
	if err != nil {
		return cacheEntry{}, err
	}
	entry := cacheEntry{definition: def.Name, values: values, fetchedAt: now, expiresAt: expiresAt}

	b.cacheMu.Lock()
	b.cache[key] = entry
	b.cacheMu.Unlock()

	logger.Debug("Credential fetched",
		zap.String("credential", def.Name),
		zap.String("path", path),
		zap.Time("expiresAt", expiresAt))
	return entry, nil
}

func (b *Broker) resolved(def model.CredentialDefinition, entry cacheEntry) *model.ResolvedCredential {
	ttl := entry.expiresAt.Sub(b.now())
	if ttl < 0 {
		ttl = 0
	}
	return &model.ResolvedCredential{
		DefinitionName: def.Name,
		Kind:           def.InjectionKind,
		Values:         copyValues(entry.values),
		FetchedAt:      entry.fetchedAt,
		TTL:            ttl,
	}
}

// Inject selects and resolves the credential for a backend call.
func (b *Broker) Inject(ctx context.Context, req InjectRequest) (*Injection, error) {
	name := req.Credential
	if name == "" {
		var err error
		name, err = b.Select(ctx, SelectionRequest{
			Service:   req.Service,
			Operation: req.Operation,
			Metadata:  req.Metadata,
			Tenant:    req.Tenant,
			Identity:  req.Identity,
		})
		if err != nil {
			return nil, err
		}
	}
	cred, err := b.Resolve(ctx, name, req.Tenant, req.Identity)
	if err != nil {
		return nil, err
	}
	return &Injection{
		Credential: name,
		Kind:       cred.Kind,
		Values:     cred.Values,
		ExpiresAt:  b.now().Add(cred.TTL),
	}, nil
}

// TestInjection runs Inject and replaces every value with a placeholder.
func (b *Broker) TestInjection(ctx context.Context, req InjectRequest) (*Injection, error) {
	inj, err := b.Inject(ctx, req)
	if err != nil {
		return nil, err
	}
	for k := range inj.Values {
		inj.Values[k] = redacted
	}
	inj.Redacted = true
	return inj, nil
}

// ClearCache drops cached values of one definition, or all when name is empty.
func (b *Broker) ClearCache(name string) int {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	n := 0
	for key, entry := range b.cache {
		if name == "" || entry.definition == name {
			delete(b.cache, key)
			n++
		}
	}
	if n > 0 {
		logger.Info("Credential cache cleared", zap.String("credential", name), zap.Int("entries", n))
	}
	return n
}

// ResolvePath fills the {tenant} and {user} placeholders of a path template.
func ResolvePath(template, tenant, identity string) (string, error) {
	for placeholder, value := range map[string]string{"{tenant}": tenant, "{user}": identity} {
		if !strings.Contains(template, placeholder) {
			continue
		}
		if value == "" {
			return "", fmt.Errorf("%w: %s required by path %q", gw_errors.ErrConfiguration, placeholder, template)
		}
		if strings.Contains(value, "/") || strings.Contains(value, "..") {
			return "", fmt.Errorf("%w: invalid %s value %q", gw_errors.ErrConfiguration, placeholder, value)
		}
	}
	return strings.NewReplacer("{tenant}", tenant, "{user}", identity).Replace(template), nil
}

func applyMapping(def model.CredentialDefinition, data map[string]string) (map[string]string, error) {
	if len(def.FieldMapping) == 0 {
		return copyValues(data), nil
	}
	out := make(map[string]string, len(def.FieldMapping))
	for field, key := range def.FieldMapping {
		v, ok := data[field]
		if !ok || v == "" {
			return nil, fmt.Errorf("%w: secret for %s has no field %q", gw_errors.ErrConfiguration, def.Name, field)
		}
		out[key] = v
	}
	return out, nil
}
