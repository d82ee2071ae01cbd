package evidence

import (
	"context"
	"time"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

// Signed URL windows are kept short on purpose: bulk listings only need the
// URL long enough to render, direct access gets a little longer.
const (
	ListSignedURLTTL   = 5 * time.Minute
	DirectSignedURLTTL = 15 * time.Minute
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 300 * time.Millisecond
)

// URLSigner is the slice of the object store the resolver needs.
type URLSigner interface {
	SignedURL(ctx context.Context, locator string, ttl time.Duration) (string, error)
}

// Resolved is an evidence row shaped for responses: locator swapped for
// short-lived URLs, with a per-item error when resolution failed.
type Resolved struct {
	types.Evidence
	ViewURL     *string `json:"view_url"`
	DownloadURL *string `json:"download_url"`
	Error       *string `json:"error,omitempty"`
}

type Resolver struct {
	log        *logger.Logger
	signer     URLSigner
	maxRetries int
	retryDelay time.Duration
}

func NewResolver(log *logger.Logger, signer URLSigner) *Resolver {
	return &Resolver{
		log:        log.With("component", "EvidenceResolver"),
		signer:     signer,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// ResolveMany resolves a batch item by item. One missing or corrupted object
// must never hide the rest of a report's evidence, so failures degrade to a
// per-item error instead of failing the batch. Output length and order always
// match the input.
func (r *Resolver) ResolveMany(ctx context.Context, items []*types.Evidence, ttl time.Duration) []Resolved {
	out := make([]Resolved, 0, len(items))
	for _, item := range items {
		if item == nil {
			msg := "file not found"
			out = append(out, Resolved{Error: &msg})
			continue
		}
		out = append(out, r.Resolve(ctx, item, ttl))
	}
	return out
}

// Resolve shapes a single evidence row. Items without a locator were submitted
// as external URIs and bypass the store entirely.
func (r *Resolver) Resolve(ctx context.Context, item *types.Evidence, ttl time.Duration) Resolved {
	res := Resolved{Evidence: *item}
	if item.Locator == nil || *item.Locator == "" {
		if uri, ok := item.MetadataURI(); ok {
			res.ViewURL = &uri
			return res
		}
		msg := "file not found"
		res.Error = &msg
		return res
	}

	url, err := r.SignedURLWithRetry(ctx, *item.Locator, ttl)
	if err != nil {
		r.log.Warn("signed url resolution exhausted retries",
			"evidence_id", item.ID,
			"error", err,
		)
		msg := err.Error()
		res.Error = &msg
		return res
	}
	res.ViewURL = &url
	res.DownloadURL = &url
	return res
}

// SignedURLWithRetry makes up to maxRetries total attempts with linear
// backoff (300ms, 600ms, ...) between them. The wait is timer-based so a slow
// store never pins a scheduler thread.
func (r *Resolver) SignedURLWithRetry(ctx context.Context, locator string, ttl time.Duration) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		url, err := r.signer.SignedURL(ctx, locator, ttl)
		if err == nil {
			return url, nil
		}
		lastErr = err
		if attempt == r.maxRetries {
			break
		}
		delay := time.Duration(attempt) * r.retryDelay
		r.log.Debug("retrying signed url generation",
			"attempt", attempt,
			"max_retries", r.maxRetries,
			"delay", delay.String(),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", lastErr
}
