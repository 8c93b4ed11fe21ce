package object

import (
	"context"
	"errors"
	"io"
	"strings"

	"jobapply-backend/internal/shared/util"
)

var (
	// ErrNotFound is returned by Open when no object exists under the key.
	ErrNotFound = errors.New("object not found")
	// ErrDirectUploadUnsupported is returned when the store cannot issue upload URLs.
	ErrDirectUploadUnsupported = errors.New("direct upload not supported by object store")
)

// Object describes a stored upload.
type Object struct {
	Key         string `json:"key"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// ObjectStore saves and retrieves uploaded resume files.
type ObjectStore interface {
	// Save stores r under the namespace (a session ID) and returns the generated key.
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a presigned target the client PUTs the file to.
type Upload struct {
	URL              string `json:"uploadUrl"`
	Key              string `json:"key"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// DirectUploader is implemented by stores that accept uploads straight from
// the client.
type DirectUploader interface {
	PresignUpload(ctx context.Context, namespace, fileName string) (Upload, error)
	// Stat describes an object uploaded through a presigned URL.
	Stat(ctx context.Context, key string) (Object, error)
}

// InNamespace reports whether key was generated for namespace.
func InNamespace(key, namespace string) bool {
	return namespace != "" && strings.HasPrefix(key, util.HashKey(namespace)+"/")
}

// FileNameFromKey recovers the sanitized file name from a generated key.
func FileNameFromKey(key string) string {
	base := key
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.Index(base, "_"); i >= 0 {
		return base[i+1:]
	}
	return base
}
