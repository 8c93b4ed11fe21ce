package sessions

import (
	"context"
	"errors"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Store persists ApplicationContexts.
type Store interface {
	Get(ctx context.Context, id string) (ApplicationContext, error)
	Save(ctx context.Context, ac ApplicationContext) error
	Delete(ctx context.Context, id string) error
}
