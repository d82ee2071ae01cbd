package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/apierr"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/evidence"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/repos"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/requestdata"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/storage"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

type CreateReportInput struct {
	IncidentDescription string
	Language            string
	IsAnonymous         bool
	Files               []FileUpload
	AudioRefs           []AudioRef
	MediaRefs           []MediaRef
}

type CreatedReport struct {
	Report   *types.Report       `json:"report"`
	Evidence []evidence.Resolved `json:"evidence"`
	// VerificationCode is returned exactly once, on guest report creation.
	// Only a bcrypt hash is stored.
	VerificationCode string `json:"verification_code,omitempty"`
	EvidenceWarning  string `json:"evidence_warning,omitempty"`
}

type ReportDetail struct {
	Report   *types.Report        `json:"report"`
	Evidence evidence.Categorized `json:"evidence"`
	Summary  evidence.Summary     `json:"evidence_summary"`
}

type ReportListing struct {
	Report  *types.Report    `json:"report"`
	Summary evidence.Summary `json:"evidence_summary"`
}

type ReportService interface {
	CreateReport(ctx context.Context, requester *requestdata.Identity, input CreateReportInput) (*CreatedReport, error)
	GetReport(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity) (*ReportDetail, error)
	ListReports(ctx context.Context, requester *requestdata.Identity) ([]ReportListing, error)
	DeleteReport(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity) error
}

type reportService struct {
	log          *logger.Logger
	store        storage.ObjectStore
	resolver     *evidence.Resolver
	reportRepo   repos.ReportRepo
	evidenceRepo repos.EvidenceRepo
	evidenceSvc  EvidenceService
	analyzer     AIAnalyzer
	notifier     NotificationService
}

func NewReportService(
	baseLog *logger.Logger,
	store storage.ObjectStore,
	resolver *evidence.Resolver,
	reportRepo repos.ReportRepo,
	evidenceRepo repos.EvidenceRepo,
	evidenceSvc EvidenceService,
	analyzer AIAnalyzer,
	notifier NotificationService,
) ReportService {
	return &reportService{
		log:          baseLog.With("service", "ReportService"),
		store:        store,
		resolver:     resolver,
		reportRepo:   reportRepo,
		evidenceRepo: evidenceRepo,
		evidenceSvc:  evidenceSvc,
		analyzer:     analyzer,
		notifier:     notifier,
	}
}

// CreateReport accepts direct uploads, audio references, and media references
// in one request. Once the report row exists the report is created, full
// stop: verification-code issuance, evidence ingestion, AI analysis, and
// notifications are each allowed to fail without undoing it.
func (s *reportService) CreateReport(ctx context.Context, requester *requestdata.Identity, input CreateReportInput) (*CreatedReport, error) {
	if strings.TrimSpace(input.IncidentDescription) == "" {
		return nil, apierr.Validation("DESCRIPTION_REQUIRED", fmt.Errorf("incident description must not be empty"))
	}
	language := strings.TrimSpace(input.Language)
	if language == "" {
		language = "en"
	}

	report := &types.Report{
		IncidentDescription: input.IncidentDescription,
		Language:            language,
		Status:              "submitted",
		IsAnonymous:         input.IsAnonymous || requester == nil,
		SubmittedDate:       time.Now(),
	}
	if requester != nil && !input.IsAnonymous {
		userID := requester.UserID
		report.UserID = &userID
	}
	if _, err := s.reportRepo.Create(ctx, nil, report); err != nil {
		return nil, apierr.Internal("DATABASE_ERROR", err)
	}

	out := &CreatedReport{Report: report, Evidence: []evidence.Resolved{}}

	if report.UserID == nil {
		code, err := s.issueVerificationCode(ctx, report.ID)
		if err != nil {
			// Guests can still follow up through support channels; the
			// report itself is already in.
			s.log.Warn("verification code issuance failed", "report_id", report.ID, "error", err)
		} else {
			out.VerificationCode = code
		}
	}

	submitterID := uuid.Nil
	if requester != nil {
		submitterID = requester.UserID
	}
	created, err := s.evidenceSvc.IngestForReport(ctx, report, submitterID, AddEvidenceInput{
		Files:     input.Files,
		AudioRefs: input.AudioRefs,
		MediaRefs: input.MediaRefs,
	})
	if err != nil {
		s.log.Warn("evidence ingestion failed during report creation", "report_id", report.ID, "error", err)
		out.EvidenceWarning = "some evidence could not be attached"
	}
	if len(created) > 0 {
		out.Evidence = s.resolver.ResolveMany(ctx, created, evidence.ListSignedURLTTL)
	}

	s.analyzeReportAsync(report, input, created)

	if report.UserID != nil {
		reportID := report.ID
		s.notifier.Notify(context.Background(), Notification{
			UserID:     *report.UserID,
			Title:      "Report submitted",
			Message:    "Your report has been received and is being reviewed",
			Type:       "report_created",
			EntityType: "report",
			EntityID:   &reportID,
		})
	}

	return out, nil
}

// issueVerificationCode mints the guest follow-up credential. The plaintext
// goes back to the submitter once; the row keeps only a bcrypt hash.
func (s *reportService) issueVerificationCode(ctx context.Context, reportID uuid.UUID) (string, error) {
	code, err := generateVerificationCode(8)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing code: %w", err)
	}
	if err := s.reportRepo.UpdateVerificationCode(ctx, nil, reportID, string(hash)); err != nil {
		return "", fmt.Errorf("persisting code: %w", err)
	}
	return code, nil
}

const verificationCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateVerificationCode(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(verificationCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = verificationCharset[n.Int64()]
	}
	return string(out), nil
}

// analyzeReportAsync sends the combined text content (incident description
// plus any audio transcriptions) to the analyzer in the background.
func (s *reportService) analyzeReportAsync(report *types.Report, input CreateReportInput, created []*types.Evidence) {
	parts := []string{input.IncidentDescription}
	for _, ref := range input.AudioRefs {
		if strings.TrimSpace(ref.Transcription) != "" {
			parts = append(parts, ref.Transcription)
		}
	}
	text := strings.Join(parts, "\n\n")
	reportID := report.ID
	language := report.Language

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		result, err := s.analyzer.Analyze(ctx, text, language)
		if err != nil {
			s.log.Warn("report AI analysis failed", "report_id", reportID, "error", err)
			return
		}
		raw, err := marshalAnalysis(result)
		if err != nil {
			s.log.Warn("report AI analysis encode failed", "report_id", reportID, "error", err)
			return
		}
		if err := s.reportRepo.UpdateAIAnalysis(ctx, nil, reportID, raw); err != nil {
			s.log.Warn("report AI analysis persist failed", "report_id", reportID, "error", err)
		}
	}()
}

func (s *reportService) requireAccess(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity) (*types.Report, error) {
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

func (s *reportService) GetReport(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity) (*ReportDetail, error) {
	report, err := s.requireAccess(ctx, reportID, requester)
	if err != nil {
		return nil, err
	}
	items, err := s.evidenceRepo.GetByReportID(ctx, nil, reportID)
	if err != nil {
		return nil, apierr.Internal("DATABASE_ERROR", err)
	}
	resolved := s.resolver.ResolveMany(ctx, items, evidence.ListSignedURLTTL)
	categorized := evidence.Categorize(resolved)
	return &ReportDetail{
		Report:   report,
		Evidence: categorized,
		Summary:  evidence.Summarize(categorized),
	}, nil
}

// ListReports returns the requester's reports, or every report for admins,
// each with evidence counts from a single grouped query.
func (s *reportService) ListReports(ctx context.Context, requester *requestdata.Identity) ([]ReportListing, error) {
	if requester == nil {
		return nil, apierr.Forbidden("FORBIDDEN", fmt.Errorf("authentication required"))
	}
	var reports []*types.Report
	var err error
	if requester.IsAdmin {
		reports, err = s.reportRepo.ListAll(ctx, nil)
	} else {
		reports, err = s.reportRepo.ListByUserID(ctx, nil, requester.UserID)
	}
	if err != nil {
		return nil, apierr.Internal("DATABASE_ERROR", err)
	}

	ids := make([]uuid.UUID, 0, len(reports))
	for _, report := range reports {
		ids = append(ids, report.ID)
	}
	counts, err := s.evidenceRepo.CountByTypeForReports(ctx, nil, ids)
	if err != nil {
		return nil, apierr.Internal("DATABASE_ERROR", err)
	}

	out := make([]ReportListing, 0, len(reports))
	for _, report := range reports {
		out = append(out, ReportListing{
			Report:  report,
			Summary: evidence.SummaryFromCounts(counts[report.ID]),
		})
	}
	return out, nil
}

// DeleteReport best-effort deletes every backing blob, then removes the
// report row; evidence rows go with it via the FK cascade.
func (s *reportService) DeleteReport(ctx context.Context, reportID uuid.UUID, requester *requestdata.Identity) error {
	report, err := s.requireAccess(ctx, reportID, requester)
	if err != nil {
		return err
	}
	items, err := s.evidenceRepo.GetByReportID(ctx, nil, reportID)
	if err != nil {
		return apierr.Internal("DATABASE_ERROR", err)
	}
	for _, item := range items {
		if item.Locator == nil || *item.Locator == "" {
			continue
		}
		if err := s.store.Delete(ctx, *item.Locator); err != nil {
			s.log.Warn("blob delete failed during report delete",
				"report_id", report.ID,
				"evidence_id", item.ID,
				"error", err,
			)
		}
	}
	if err := s.reportRepo.DeleteByID(ctx, nil, reportID); err != nil {
		return apierr.Internal("DATABASE_ERROR", err)
	}
	return nil
}
