package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

// Error classes callers branch on. GCS SDK errors are translated at the
// gateway boundary so evidence logic and the retry policy never see SDK types.
var (
	ErrWrite    = errors.New("storage: write failed")
	ErrDelete   = errors.New("storage: delete failed")
	ErrNotFound = errors.New("storage: object not found")
	ErrAuth     = errors.New("storage: permission denied")
)

const DefaultSignedURLTTLMinutes = 60

// UploadInput describes one blob headed for the bucket. OwnerID is the path
// namespace, not an authorization check; permissions are enforced before any
// store call.
type UploadInput struct {
	OwnerID      string
	ReportID     string
	EvidenceType types.EvidenceType
	OriginalName string
	ContentType  string
	SizeBytes    int64
	Body         io.Reader
}

// ObjectStore is the gateway to durable blob storage. Locators are opaque
// "gs://bucket/key" strings; signed URLs are the only way blobs leave the
// system.
type ObjectStore interface {
	Upload(ctx context.Context, in UploadInput) (locator string, err error)
	Delete(ctx context.Context, locator string) error
	SignedURL(ctx context.Context, locator string, ttl time.Duration) (string, error)
}
