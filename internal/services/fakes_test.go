package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/evidence"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/requestdata"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/storage"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// ---- report repo fake ----

type fakeReportRepo struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*types.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: map[uuid.UUID]*types.Report{}}
}

func (r *fakeReportRepo) Create(ctx context.Context, tx *gorm.DB, report *types.Report) (*types.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.SubmittedDate.IsZero() {
		report.SubmittedDate = time.Now()
	}
	r.reports[report.ID] = report
	return report, nil
}

func (r *fakeReportRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *report
	return &clone, nil
}

func (r *fakeReportRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Report
	for _, report := range r.reports {
		if report.UserID != nil && *report.UserID == userID {
			out = append(out, report)
		}
	}
	sortReports(out)
	return out, nil
}

func (r *fakeReportRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Report
	for _, report := range r.reports {
		out = append(out, report)
	}
	sortReports(out)
	return out, nil
}

func sortReports(reports []*types.Report) {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].SubmittedDate.After(reports[j].SubmittedDate)
	})
}

func (r *fakeReportRepo) UpdateAIAnalysis(ctx context.Context, tx *gorm.DB, id uuid.UUID, results datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	report.AIAnalysisResults = results
	return nil
}

func (r *fakeReportRepo) UpdateVerificationCode(ctx context.Context, tx *gorm.DB, id uuid.UUID, codeHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	report.VerificationCode = codeHash
	return nil
}

func (r *fakeReportRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reports, id)
	return nil
}

// ---- evidence repo fake ----

type fakeEvidenceRepo struct {
	mu    sync.Mutex
	items []*types.Evidence
}

func newFakeEvidenceRepo() *fakeEvidenceRepo {
	return &fakeEvidenceRepo{}
}

func (r *fakeEvidenceRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.Evidence) ([]*types.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.SubmittedDate.IsZero() {
			item.SubmittedDate = time.Now()
		}
		r.items = append(r.items, item)
	}
	return items, nil
}

func (r *fakeEvidenceRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			clone := *item
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEvidenceRepo) GetByReportID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) ([]*types.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Evidence
	for _, item := range r.items {
		if item.ReportID == reportID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedDate.After(out[j].SubmittedDate)
	})
	return out, nil
}

func (r *fakeEvidenceRepo) UpdateDescription(ctx context.Context, tx *gorm.DB, id uuid.UUID, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			item.Description = description
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeEvidenceRepo) UpdateAIAnalysis(ctx context.Context, tx *gorm.DB, id uuid.UUID, results datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			item.AIAnalysisResults = results
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeEvidenceRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, item := range r.items {
		if item.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeEvidenceRepo) CountByTypeForReports(ctx context.Context, tx *gorm.DB, reportIDs []uuid.UUID) (map[uuid.UUID]map[types.EvidenceType]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, id := range reportIDs {
		wanted[id] = true
	}
	out := map[uuid.UUID]map[types.EvidenceType]int{}
	for _, item := range r.items {
		if !wanted[item.ReportID] {
			continue
		}
		if out[item.ReportID] == nil {
			out[item.ReportID] = map[types.EvidenceType]int{}
		}
		out[item.ReportID][item.EvidenceType]++
	}
	return out, nil
}

// ---- object store fake ----

type fakeStore struct {
	failUpload  bool
	failDelete  bool
	failSign    bool
	uploads     []storage.UploadInput
	deletes     []string
	signedCalls int
}

func (s *fakeStore) Upload(ctx context.Context, in storage.UploadInput) (string, error) {
	if s.failUpload {
		return "", fmt.Errorf("%w: bucket rejected write", storage.ErrWrite)
	}
	if in.Body != nil {
		_, _ = io.Copy(io.Discard, in.Body)
	}
	s.uploads = append(s.uploads, in)
	return fmt.Sprintf("gs://test-bucket/%s/%s/%s/%d-%s", in.OwnerID, in.ReportID, in.EvidenceType, len(s.uploads), in.OriginalName), nil
}

func (s *fakeStore) Delete(ctx context.Context, locator string) error {
	if s.failDelete {
		return fmt.Errorf("%w: object %q", storage.ErrDelete, locator)
	}
	s.deletes = append(s.deletes, locator)
	return nil
}

func (s *fakeStore) SignedURL(ctx context.Context, locator string, ttl time.Duration) (string, error) {
	s.signedCalls++
	if s.failSign {
		return "", fmt.Errorf("%w: object %q", storage.ErrNotFound, locator)
	}
	return "https://signed.example.com/" + locator, nil
}

// ---- analyzer + notifier fakes ----

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, text, language string) (*AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return &AnalysisResult{Confidence: 0.9}, nil
}

type recordingNotifier struct {
	notifications []Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, notification Notification) {
	n.notifications = append(n.notifications, notification)
}

func (n *recordingNotifier) Close() error { return nil }

// ---- fixture ----

type fixture struct {
	reportRepo   *fakeReportRepo
	evidenceRepo *fakeEvidenceRepo
	store        *fakeStore
	analyzer     *fakeAnalyzer
	notifier     *recordingNotifier
	evidenceSvc  EvidenceService
	reportSvc    ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := testLogger(t)
	f := &fixture{
		reportRepo:   newFakeReportRepo(),
		evidenceRepo: newFakeEvidenceRepo(),
		store:        &fakeStore{},
		analyzer:     &fakeAnalyzer{},
		notifier:     &recordingNotifier{},
	}
	resolver := evidence.NewResolver(log, f.store)
	f.evidenceSvc = NewEvidenceService(log, f.store, resolver, f.reportRepo, f.evidenceRepo, f.analyzer, f.notifier)
	f.reportSvc = NewReportService(log, f.store, resolver, f.reportRepo, f.evidenceRepo, f.evidenceSvc, f.analyzer, f.notifier)
	return f
}

func (f *fixture) seedReport(t *testing.T, ownerID uuid.UUID) *types.Report {
	t.Helper()
	report := &types.Report{
		IncidentDescription: "incident",
		Language:            "en",
		Status:              "submitted",
		SubmittedDate:       time.Now(),
	}
	if ownerID != uuid.Nil {
		report.UserID = &ownerID
	} else {
		report.IsAnonymous = true
	}
	if _, err := f.reportRepo.Create(context.Background(), nil, report); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	return report
}

func identity(userID uuid.UUID, isAdmin bool) *requestdata.Identity {
	return &requestdata.Identity{UserID: userID, IsAdmin: isAdmin}
}
