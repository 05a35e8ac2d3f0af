package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"

	vault "github.com/hashicorp/vault/api"

	gw_errors "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/errors"
)

// ErrVersionConflict is returned by Put when the check-and-set version no
// longer matches the stored one.
var ErrVersionConflict = errors.New("secret version conflict")

// Secret is one key-value entry of the secret store.
type Secret struct {
	Data    map[string]string
	Version int
}

// SecretStore is path-addressed key-value storage for secrets.
type SecretStore interface {
	Get(ctx context.Context, path string) (*Secret, error)
	// Put replaces the entry in one write. A positive casVersion must match
	// the current version.
	Put(ctx context.Context, path string, data map[string]string, casVersion int) error
}

// MemorySecretStore is a versioned in-process secret store.
type MemorySecretStore struct {
	mu      sync.RWMutex
	secrets map[string]Secret
}

func NewMemorySecretStore() *MemorySecretStore {
	return &MemorySecretStore{secrets: make(map[string]Secret)}
}

func (s *MemorySecretStore) Get(_ context.Context, path string) (*Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.secrets[path]
	if !ok {
		return nil, fmt.Errorf("%w: no secret at %s", gw_errors.ErrCredentialFetch, path)
	}
	return &Secret{Data: copyValues(sec.Data), Version: sec.Version}, nil
}

func (s *MemorySecretStore) Put(_ context.Context, path string, data map[string]string, casVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.secrets[path]
	if casVersion > 0 && cur.Version != casVersion {
		return fmt.Errorf("%w: %s is at version %d, expected %d", ErrVersionConflict, path, cur.Version, casVersion)
	}
	s.secrets[path] = Secret{Data: copyValues(data), Version: cur.Version + 1}
	return nil
}

// VaultSecretStore reads and writes a Vault KV v2 mount.
type VaultSecretStore struct {
	kv *vault.KVv2
}

func NewVaultSecretStore(address, token, mount string) (*VaultSecretStore, error) {
	cfg := vault.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create vault client: %v", gw_errors.ErrConfiguration, err)
	}
	if token != "" {
		client.SetToken(token)
	}
	return &VaultSecretStore{kv: client.KVv2(mount)}, nil
}

func (s *VaultSecretStore) Get(ctx context.Context, path string) (*Secret, error) {
	sec, err := s.kv.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", gw_errors.ErrCredentialFetch, path, err)
	}
	out := &Secret{Data: make(map[string]string, len(sec.Data))}
	for k, v := range sec.Data {
		if v == nil {
			continue
		}
		out.Data[k] = fmt.Sprint(v)
	}
	if sec.VersionMetadata != nil {
		out.Version = sec.VersionMetadata.Version
	}
	return out, nil
}

func (s *VaultSecretStore) Put(ctx context.Context, path string, data map[string]string, casVersion int) error {
	payload := make(map[string]any, len(data))
	for k, v := range data {
		payload[k] = v
	}
	var opts []vault.KVOption
	if casVersion > 0 {
		opts = append(opts, vault.WithCheckAndSet(casVersion))
	}
	if _, err := s.kv.Put(ctx, path, payload, opts...); err != nil {
		return fmt.Errorf("failed to write secret %s: %w", path, err)
	}
	return nil
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
