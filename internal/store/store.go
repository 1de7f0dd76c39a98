package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV.Get when no document exists for a key.
var ErrNotFound = errors.New("store: document not found")

// Document keys used by the task store.
const (
	KeyTasks = "tasks"
	KeyChat  = "chat"
)

// KV is the opaque key-value persistence collaborator. Each key holds a
// whole JSON document that is read in full and rewritten in full.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
