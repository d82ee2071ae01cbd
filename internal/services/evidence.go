package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/apierr"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/evidence"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/repos"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/requestdata"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/storage"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

// FileUpload is one multipart file from a request, already opened.
type FileUpload struct {
	OriginalName string
	MimeType     string
	SizeBytes    int64
	Body         io.Reader
}

// AudioRef is a pre-recorded audio reference, optionally with a transcription
// produced client-side.
type AudioRef struct {
	Title         string `json:"title"`
	URI           string `json:"uri"`
	Transcription string `json:"transcription,omitempty"`
}

// MediaRef is an externally hosted image or video reference.
type MediaRef struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type AddEvidenceInput struct {
	Files     []FileUpload
	AudioRefs []AudioRef
	MediaRefs []MediaRef
	// EvidenceType overrides classification for uploaded files when it names
	// one of the four known types; anything else falls back to the classifier.
	EvidenceType  string
	Description   string
	AnalyzeWithAI bool
}

// EvidenceURL is the direct-access response shape for GET /evidence/:id/url.
type EvidenceURL struct {
	EvidenceID  uuid.UUID          `json:"evidence_id"`
	FileType    types.EvidenceType `json:"file_type"`
	Description string             `json:"description"`
	SignedURL   string             `json:"signed_url"`
}

type EvidenceService interface {
	AddEvidence(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity, input AddEvidenceInput) ([]evidence.Resolved, error)
	// IngestForReport persists evidence for a report the caller just created;
	// report creation is open to guests, so no permission gate applies here.
	IngestForReport(ctx context.Context, report *types.Report, submitterID uuid.UUID, input AddEvidenceInput) ([]*types.Evidence, error)
	ListForReport(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity) ([]evidence.Resolved, error)
	GetByID(ctx context.Context, evidenceID uuid.UUID, requester *requestdata.Identity) (*evidence.Resolved, error)
	GetDirectURL(ctx context.Context, evidenceID uuid.UUID, requester *requestdata.Identity) (*EvidenceURL, error)
	UpdateDescription(ctx context.Context, evidenceID uuid.UUID, requester *requestdata.Identity, description string) (*evidence.Resolved, error)
	Delete(ctx context.Context, evidenceID uuid.UUID, requester *requestdata.Identity) error
}

type evidenceService struct {
	log          *logger.Logger
	store        storage.ObjectStore
	resolver     *evidence.Resolver
	reportRepo   repos.ReportRepo
	evidenceRepo repos.EvidenceRepo
	analyzer     AIAnalyzer
	notifier     NotificationService
}

func NewEvidenceService(
	baseLog *logger.Logger,
	store storage.ObjectStore,
	resolver *evidence.Resolver,
	reportRepo repos.ReportRepo,
	evidenceRepo repos.EvidenceRepo,
	analyzer AIAnalyzer,
	notifier NotificationService,
) EvidenceService {
	return &evidenceService{
		log:          baseLog.With("service", "EvidenceService"),
		store:        store,
		resolver:     resolver,
		reportRepo:   reportRepo,
		evidenceRepo: evidenceRepo,
		analyzer:     analyzer,
		notifier:     notifier,
	}
}

// requireReportAccess loads the report and enforces owner-or-admin before any
// storage I/O happens.
func (s *evidenceService) requireReportAccess(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity) (*types.Report, error) {
	report, err := s.reportRepo.GetByID(ctx, nil, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("REPORT_NOT_FOUND", fmt.Errorf("report %s not found", reportID))
		}
		return nil, apierr.Internal("DATABASE_ERROR", err)
	}
	if requester == nil || (!requester.IsAdmin && !report.OwnedBy(requester.UserID)) {
		return nil, apierr.Forbidden("FORBIDDEN", fmt.Errorf("not allowed to access report %s", reportID))
	}
	return report, nil
}

func (s *evidenceService) AddEvidence(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity, input AddEvidenceInput) ([]evidence.Resolved, error) {
	report, err := s.requireReportAccess(ctx, reportID, requester)
	if err != nil {
		return nil, err
	}
	if len(input.Files) == 0 && len(input.AudioRefs) == 0 && len(input.MediaRefs) == 0 {
		return nil, apierr.Validation("NO_FILES_PROVIDED", fmt.Errorf("no files or evidence references provided"))
	}

	created, err := s.ingest(ctx, report, requester.UserID, input)
	if err != nil {
		return nil, err
	}

	if input.AnalyzeWithAI {
		s.analyzeEvidenceAsync(created)
	}
	s.notifyOwner(report, "Evidence added",
		fmt.Sprintf("%d evidence item(s) were added to your report", len(created)),
		"evidence_added")

	return s.resolver.ResolveMany(ctx, created, evidence.ListSignedURLTTL), nil
}

func (s *evidenceService) IngestForReport(ctx context.Context, report *types.Report, submitterID uuid.UUID, input AddEvidenceInput) ([]*types.Evidence, error) {
	return s.ingest(ctx, report, submitterID, input)
}

// ingest turns the three input shapes into evidence rows. Files are handled
// one at a time so a storage failure is attributable to a specific item; the
// first upload failure aborts the request since a row without a blob would be
// unreadable forever.
func (s *evidenceService) ingest(ctx context.Context, report *types.Report, submitterID uuid.UUID, input AddEvidenceInput) ([]*types.Evidence, error) {
	created := make([]*types.Evidence, 0, len(input.Files)+len(input.AudioRefs)+len(input.MediaRefs))
	now := time.Now()

	ownerID := ""
	if report.UserID != nil {
		ownerID = report.UserID.String()
	}

	for _, file := range input.Files {
		evType := overrideOrClassify(input.EvidenceType, file.MimeType)
		locator, err := s.store.Upload(ctx, storage.UploadInput{
			OwnerID:      ownerID,
			ReportID:     report.ID.String(),
			EvidenceType: evType,
			OriginalName: file.OriginalName,
			ContentType:  file.MimeType,
			SizeBytes:    file.SizeBytes,
			Body:         file.Body,
		})
		if err != nil {
			s.log.Error("evidence upload failed",
				"report_id", report.ID,
				"original_name", file.OriginalName,
				"error", err,
			)
			return nil, apierr.Internal("STORAGE_WRITE_FAILED", err)
		}
		meta, err := types.NewUploadMetadata(file.OriginalName, file.SizeBytes, file.MimeType, now)
		if err != nil {
			return nil, apierr.Internal("METADATA_ENCODE_FAILED", err)
		}
		item := &types.Evidence{
			ReportID:      report.ID,
			EvidenceType:  evType,
			Locator:       &locator,
			Description:   input.Description,
			Metadata:      meta,
			SubmittedDate: now,
		}
		if _, err := s.evidenceRepo.Create(ctx, nil, []*types.Evidence{item}); err != nil {
			return nil, apierr.Internal("DATABASE_ERROR", err)
		}
		created = append(created, item)
	}

	for _, ref := range input.AudioRefs {
		meta, err := types.NewURIMetadata(ref.Title, ref.URI, ref.Transcription)
		if err != nil {
			return nil, apierr.Internal("METADATA_ENCODE_FAILED", err)
		}
		item := &types.Evidence{
			ReportID:      report.ID,
			EvidenceType:  types.EvidenceTypeAudio,
			Description:   input.Description,
			Metadata:      meta,
			SubmittedDate: now,
		}
		if _, err := s.evidenceRepo.Create(ctx, nil, []*types.Evidence{item}); err != nil {
			return nil, apierr.Internal("DATABASE_ERROR", err)
		}
		created = append(created, item)
	}

	for _, ref := range input.MediaRefs {
		meta, err := types.NewURIMetadata(ref.Title, ref.URI, "")
		if err != nil {
			return nil, apierr.Internal("METADATA_ENCODE_FAILED", err)
		}
		item := &types.Evidence{
			ReportID:      report.ID,
			EvidenceType:  evidence.ClassifyURI(ref.URI),
			Description:   input.Description,
			Metadata:      meta,
			SubmittedDate: now,
		}
		if _, err := s.evidenceRepo.Create(ctx, nil, []*types.Evidence{item}); err != nil {
			return nil, apierr.Internal("DATABASE_ERROR", err)
		}
		created = append(created, item)
	}

	return created, nil
}

func overrideOrClassify(override, mimeType string) types.EvidenceType {
	switch types.EvidenceType(strings.ToLower(strings.TrimSpace(override))) {
	case types.EvidenceTypeImage:
		return types.EvidenceTypeImage
	case types.EvidenceTypeAudio:
		return types.EvidenceTypeAudio
	case types.EvidenceTypeVideo:
		return types.EvidenceTypeVideo
	case types.EvidenceTypeDocument:
		return types.EvidenceTypeDocument
	default:
		return evidence.ClassifyMIME(mimeType)
	}
}

// analyzeEvidenceAsync annotates items with AI results in the background.
// Failures are logged and the rows stay un-annotated.
func (s *evidenceService) analyzeEvidenceAsync(items []*types.Evidence) {
	for _, item := range items {
		text := item.Description
		if len(item.Metadata) > 0 {
			var meta types.URIMetadata
			if err := json.Unmarshal(item.Metadata, &meta); err == nil && meta.Transcription != "" {
				text = meta.Transcription
			}
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		itemID := item.ID
		go func(text string) {
			ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
			defer cancel()
			result, err := s.analyzer.Analyze(ctx, text, "")
			if err != nil {
				s.log.Warn("evidence AI analysis failed", "evidence_id", itemID, "error", err)
				return
			}
			raw, err := marshalAnalysis(result)
			if err != nil {
				s.log.Warn("evidence AI analysis encode failed", "evidence_id", itemID, "error", err)
				return
			}
			if err := s.evidenceRepo.UpdateAIAnalysis(ctx, nil, itemID, raw); err != nil {
				s.log.Warn("evidence AI analysis persist failed", "evidence_id", itemID, "error", err)
			}
		}(text)
	}
}

func (s *evidenceService) notifyOwner(report *types.Report, title, message, notifType string) {
	if report.UserID == nil {
		return
	}
	reportID := report.ID
	s.notifier.Notify(context.Background(), Notification{
		UserID:     *report.UserID,
		Title:      title,
		Message:    message,
		Type:       notifType,
		EntityType: "report",
		EntityID:   &reportID,
	})
}

func (s *evidenceService) ListForReport(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity) ([]evidence.Resolved, error) {
	if _, err := s.requireReportAccess(ctx, reportID, requester); err != nil {
		return nil, err
	}
	items, err := s.evidenceRepo.GetByReportID(ctx, nil, reportID)
	if err != nil {
		return nil, apierr.Internal("DATABASE_ERROR", err)
	}
	return s.resolver.ResolveMany(ctx, items, evidence.ListSignedURLTTL), nil
}

// getWithAccess fetches an evidence row and gates it on the owning report's
// owner, the only place evidence permissions can come from.
func (s *evidenceService) getWithAccess(ctx context.Context, evidenceID uuid.UUID, requester *requestdata.Identity) (*types.Evidence, error) {
	item, err := s.evidenceRepo.GetByID(ctx, nil, evidenceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("EVIDENCE_NOT_FOUND", fmt.Errorf("evidence %s not found", evidenceID))
		}
		return nil, apierr.Internal("DATABASE_ERROR", err)
	}
	report, err := s.reportRepo.GetByID(ctx, nil, item.ReportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("EVIDENCE_NOT_FOUND", fmt.Errorf("report for evidence %s not found", evidenceID))
		}
		return nil, apierr.Internal("DATABASE_ERROR", err)
	}
	if requester == nil || (!requester.IsAdmin && !report.OwnedBy(requester.UserID)) {
		return nil, apierr.Forbidden("FORBIDDEN", fmt.Errorf("not allowed to access evidence %s", evidenceID))
	}
	return item, nil
}

func (s *evidenceService) GetByID(ctx context.Context, evidenceID uuid.UUID, requester *requestdata.Identity) (*evidence.Resolved, error) {
	item, err := s.getWithAccess(ctx, evidenceID, requester)
	if err != nil {
		return nil, err
	}
	resolved := s.resolver.Resolve(ctx, item, evidence.DirectSignedURLTTL)
	return &resolved, nil
}

func (s *evidenceService) GetDirectURL(ctx context.Context, evidenceID uuid.UUID, requester *requestdata.Identity) (*EvidenceURL, error) {
	item, err := s.getWithAccess(ctx, evidenceID, requester)
	if err != nil {
		return nil, err
	}
	out := &EvidenceURL{
		EvidenceID:  item.ID,
		FileType:    item.EvidenceType,
		Description: item.Description,
	}
	if item.Locator == nil || *item.Locator == "" {
		uri, ok := item.MetadataURI()
		if !ok {
			return nil, apierr.NotFound("FILE_NOT_FOUND", fmt.Errorf("evidence %s has no file or uri", evidenceID))
		}
		out.SignedURL = uri
		return out, nil
	}
	url, err := s.resolver.SignedURLWithRetry(ctx, *item.Locator, evidence.DirectSignedURLTTL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound("FILE_NOT_FOUND", err)
		}
		return nil, apierr.Internal("STORAGE_ERROR", err)
	}
	out.SignedURL = url
	return out, nil
}

func (s *evidenceService) UpdateDescription(ctx context.Context, evidenceID uuid.UUID, requester *requestdata.Identity, description string) (*evidence.Resolved, error) {
	if strings.TrimSpace(description) == "" {
		return nil, apierr.Validation("DESCRIPTION_REQUIRED", fmt.Errorf("description must not be empty"))
	}
	item, err := s.getWithAccess(ctx, evidenceID, requester)
	if err != nil {
		return nil, err
	}
	if err := s.evidenceRepo.UpdateDescription(ctx, nil, item.ID, description); err != nil {
		return nil, apierr.Internal("DATABASE_ERROR", err)
	}
	item.Description = description
	resolved := s.resolver.Resolve(ctx, item, evidence.DirectSignedURLTTL)
	return &resolved, nil
}

// Delete removes the blob first, then the row. A store failure is logged and
// swallowed: an orphan blob is recoverable, a row pointing at nothing is not,
// and a stuck record is worse for the reporter than a stray object.
func (s *evidenceService) Delete(ctx context.Context, evidenceID uuid.UUID, requester *requestdata.Identity) error {
	item, err := s.getWithAccess(ctx, evidenceID, requester)
	if err != nil {
		return err
	}
	if item.Locator != nil && *item.Locator != "" {
		if err := s.store.Delete(ctx, *item.Locator); err != nil {
			s.log.Warn("blob delete failed, removing record anyway",
				"evidence_id", item.ID,
				"error", err,
			)
		}
	}
	if err := s.evidenceRepo.DeleteByID(ctx, nil, item.ID); err != nil {
		return apierr.Internal("DATABASE_ERROR", err)
	}
	return nil
}
