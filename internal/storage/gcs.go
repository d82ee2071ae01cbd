package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
)

type gcsStore struct {
	log    *logger.Logger
	client *gcs.Client
	bucket string
}

func NewGCSStore(log *logger.Logger) (ObjectStore, error) {
	serviceLog := log.With("service", "GCSStore")
	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET_NAME"))
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	if saPath == "" {
		serviceLog.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, storage client will rely on ambient ADC")
	}
	ctx := context.Background()
	var client *gcs.Client
	var err error
	if saPath != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(gcs.ScopeReadWrite))
	} else {
		client, err = gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &gcsStore{log: serviceLog, client: client, bucket: bucket}, nil
}

func (s *gcsStore) Upload(ctx context.Context, in UploadInput) (string, error) {
	if in.Body == nil {
		return "", fmt.Errorf("%w: no readable source for %q", ErrWrite, in.OriginalName)
	}
	key := objectKey(in)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if in.ContentType != "" {
		w.ContentType = in.ContentType
	}
	w.Metadata = map[string]string{
		"owner_id":      in.OwnerID,
		"report_id":     in.ReportID,
		"original_name": in.OriginalName,
		"size_bytes":    strconv.FormatInt(in.SizeBytes, 10),
	}
	if _, err := io.Copy(w, in.Body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("%w: writing object %q: %v", ErrWrite, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: closing writer for %q: %v", translateWriteErr(err), key, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

func (s *gcsStore) Delete(ctx context.Context, locator string) error {
	key, err := s.parseLocator(locator)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelete, err)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("%w: object %q already gone", ErrDelete, key)
		}
		return fmt.Errorf("%w: object %q: %v", ErrDelete, key, err)
	}
	return nil
}

func (s *gcsStore) SignedURL(ctx context.Context, locator string, ttl time.Duration) (string, error) {
	key, err := s.parseLocator(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if ttl <= 0 {
		ttl = DefaultSignedURLTTLMinutes * time.Minute
	}

	// The V4 signer does not touch the bucket, so probe existence first;
	// a signed URL for a missing object would only fail later in the client.
	attrCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := s.client.Bucket(s.bucket).Object(key).Attrs(attrCtx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return "", fmt.Errorf("%w: object %q", ErrNotFound, key)
		}
		return "", fmt.Errorf("fetching attrs for %q: %w", key, translateAPIErr(err))
	}

	url, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("signing url for %q: %w", key, translateAPIErr(err))
	}
	return url, nil
}

func objectKey(in UploadInput) string {
	owner := in.OwnerID
	if owner == "" {
		owner = "anonymous"
	}
	name := strings.ReplaceAll(in.OriginalName, "/", "_")
	return fmt.Sprintf("%s/%s/%s/%d-%s", owner, in.ReportID, in.EvidenceType, time.Now().UnixMilli(), name)
}

func (s *gcsStore) parseLocator(locator string) (string, error) {
	prefix := fmt.Sprintf("gs://%s/", s.bucket)
	if !strings.HasPrefix(locator, prefix) {
		return "", fmt.Errorf("malformed locator %q", locator)
	}
	key := strings.TrimPrefix(locator, prefix)
	if key == "" {
		return "", fmt.Errorf("locator %q has empty object key", locator)
	}
	return key, nil
}

func translateWriteErr(err error) error {
	if translated := translateAPIErr(err); errors.Is(translated, ErrAuth) {
		return ErrAuth
	}
	return ErrWrite
}

func translateAPIErr(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}
