// Package credential stores the API key used by the remote parsing tier.
// The key is opaque; an empty value means "not configured".
package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"calc-assistant/internal/config"
)

// Store is the credential collaborator. Get returns "" with a nil error when
// no key has been set.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, key string) error
}

// Clearer is implemented by stores that can forget their key.
type Clearer interface {
	Clear(ctx context.Context) error
}

// New builds the store selected by the credential section.
func New(cfg config.CredentialConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return &MemoryStore{}, nil
	case "env":
		return EnvStore{Var: cfg.EnvVar}, nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisKey), nil
	case "file", "":
		path := cfg.Path
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("locate config dir: %w", err)
			}
			path = filepath.Join(dir, "calc-assistant", "credential.yaml")
		}
		return &FileStore{Path: path}, nil
	}
	return nil, fmt.Errorf("unknown credential backend %q", cfg.Backend)
}

// MemoryStore keeps the key for the life of the process.
type MemoryStore struct {
	mu  sync.RWMutex
	key string
}

func (s *MemoryStore) Get(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, nil
}

func (s *MemoryStore) Set(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = strings.TrimSpace(key)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	return s.Set(ctx, "")
}

// EnvStore reads the key from an environment variable. It is read-only.
type EnvStore struct {
	Var string
}

func (s EnvStore) Get(context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(s.Var)), nil
}

func (s EnvStore) Set(context.Context, string) error {
	return fmt.Errorf("credential is read from $%s and cannot be set here", s.Var)
}

// FileStore persists the key in a YAML file readable only by the owner.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

type credentialFile struct {
	APIKey string `yaml:"api_key"`
}

func (s *FileStore) Get(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	var f credentialFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("parse credential file: %w", err)
	}
	return strings.TrimSpace(f.APIKey), nil
}

func (s *FileStore) Set(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(credentialFile{APIKey: strings.TrimSpace(key)})
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}
