package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"

	"jobapply-backend/internal/shared/util"
)

// ErrNoToken is returned when no token has been stored for a key.
var ErrNoToken = errors.New("no oauth token stored")

// TokenStore persists mail-provider OAuth tokens keyed by session (or "cli").
type TokenStore interface {
	Load(ctx context.Context, key string) (*oauth2.Token, error)
	Save(ctx context.Context, key string, tok *oauth2.Token) error
}

// FileTokenStore writes one JSON file per key under dir.
type FileTokenStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileTokenStore returns a FileTokenStore rooted at dir.
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{dir: dir}
}

// Load reads the token for key.
func (s *FileTokenStore) Load(ctx context.Context, key string) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &tok, nil
}

// Save writes the token for key with owner-only permissions.
func (s *FileTokenStore) Save(ctx context.Context, key string, tok *oauth2.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tok == nil {
		return errors.New("nil token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(s.path(key), data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// path hashes the key so session IDs never become file names directly.
func (s *FileTokenStore) path(key string) string {
	return filepath.Join(s.dir, util.HashKey(key)+".json")
}

// MemoryTokenStore keeps tokens in memory.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]oauth2.Token
}

// NewMemoryTokenStore constructs a MemoryTokenStore.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]oauth2.Token)}
}

// Load returns a copy of the stored token.
func (s *MemoryTokenStore) Load(ctx context.Context, key string) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[key]
	if !ok {
		return nil, ErrNoToken
	}
	return &tok, nil
}

// Save stores a copy of tok.
func (s *MemoryTokenStore) Save(ctx context.Context, key string, tok *oauth2.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tok == nil {
		return errors.New("nil token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = *tok
	return nil
}

var (
	_ TokenStore = (*FileTokenStore)(nil)
	_ TokenStore = (*MemoryTokenStore)(nil)
)
