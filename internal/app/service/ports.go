package service

import (
	"context"
	"io"
	"os"

	"github.com/sifan077/spectra/internal/app/model"
)

// FileStore keeps item payloads.
type FileStore interface {
	ReadString(name string) (string, error)
	Open(name string) (*os.File, int64, error)
	Write(name string, r io.Reader) (int64, error)
	Remove(name string) error
	Placeholder() string
}

// SessionStore issues and resolves session tokens.
type SessionStore interface {
	Issue(userID string, temporary bool) (string, error)
	Lookup(key string) (model.Token, bool)
	Remove(key string)
}

// Verifier checks guest challenge tokens.
type Verifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) error
}

// AccessSink receives every recorded access, for example a message stream.
type AccessSink interface {
	Publish(ctx context.Context, log *model.AccessLog) error
}

// AccessObserver counts recorded accesses.
type AccessObserver interface {
	ObserveAccess(t model.ItemType, op model.Operation, success bool)
}
