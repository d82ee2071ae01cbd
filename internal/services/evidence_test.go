package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/apierr"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", want)
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierr.Error, got %T: %v", err, err)
	}
	if apiErr.Status != want {
		t.Fatalf("expected status %d, got %d (%v)", want, apiErr.Status, err)
	}
}

func TestAddEvidenceUploadsImage(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)

	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		Files: []FileUpload{{
			OriginalName: "photo.jpg",
			MimeType:     "image/jpeg",
			SizeBytes:    1024,
			Body:         strings.NewReader("jpeg bytes"),
		}},
	})
	if err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 item, got %d", len(created))
	}
	item := created[0]
	if item.EvidenceType != types.EvidenceTypeImage {
		t.Fatalf("expected image, got %q", item.EvidenceType)
	}
	if item.ViewURL == nil || *item.ViewURL == "" {
		t.Fatal("expected non-nil view url")
	}
	if item.Locator == nil || !strings.HasPrefix(*item.Locator, "gs://test-bucket/") {
		t.Fatalf("unexpected locator %v", item.Locator)
	}
	if len(f.store.uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(f.store.uploads))
	}
	up := f.store.uploads[0]
	if up.OwnerID != owner.String() || up.ReportID != report.ID.String() {
		t.Fatalf("upload not namespaced by owner and report: %+v", up)
	}
}

func TestAddEvidenceForbiddenForStranger(t *testing.T) {
	f := newFixture(t)
	report := f.seedReport(t, uuid.New())

	_, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(uuid.New(), false), AddEvidenceInput{
		Files: []FileUpload{{OriginalName: "photo.jpg", MimeType: "image/jpeg", Body: strings.NewReader("x")}},
	})
	assertStatus(t, err, http.StatusForbidden)
	if len(f.store.uploads) != 0 {
		t.Fatal("permission check must precede storage I/O")
	}
}

func TestAddEvidenceAdminAllowed(t *testing.T) {
	f := newFixture(t)
	report := f.seedReport(t, uuid.New())

	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(uuid.New(), true), AddEvidenceInput{
		Files: []FileUpload{{OriginalName: "notes.pdf", MimeType: "application/pdf", Body: strings.NewReader("pdf")}},
	})
	if err != nil {
		t.Fatalf("AddEvidence as admin: %v", err)
	}
	if created[0].EvidenceType != types.EvidenceTypeDocument {
		t.Fatalf("expected document, got %q", created[0].EvidenceType)
	}
}

func TestAddEvidenceUnknownReport(t *testing.T) {
	f := newFixture(t)
	_, err := f.evidenceSvc.AddEvidence(context.Background(), uuid.New(), identity(uuid.New(), true), AddEvidenceInput{
		Files: []FileUpload{{OriginalName: "x.jpg", MimeType: "image/jpeg", Body: strings.NewReader("x")}},
	})
	assertStatus(t, err, http.StatusNotFound)
}

func TestAddEvidenceNoFiles(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)

	_, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestAddEvidenceUploadFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.store.failUpload = true
	owner := uuid.New()
	report := f.seedReport(t, owner)

	_, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		Files: []FileUpload{{OriginalName: "x.jpg", MimeType: "image/jpeg", Body: strings.NewReader("x")}},
	})
	assertStatus(t, err, http.StatusInternalServerError)
	if len(f.evidenceRepo.items) != 0 {
		t.Fatal("no row may exist for a blob that was never stored")
	}
}

func TestAddEvidenceURIOnlyAudio(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)

	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		AudioRefs: []AudioRef{{Title: "Call", URI: "https://x/call.mp3", Transcription: "hello"}},
	})
	if err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}
	item := created[0]
	if item.Locator != nil {
		t.Fatalf("expected nil locator, got %v", *item.Locator)
	}
	if item.EvidenceType != types.EvidenceTypeAudio {
		t.Fatalf("expected audio, got %q", item.EvidenceType)
	}
	if item.ViewURL == nil || *item.ViewURL != "https://x/call.mp3" {
		t.Fatalf("expected uri as view url, got %v", item.ViewURL)
	}
	if item.Error != nil {
		t.Fatalf("expected no error, got %q", *item.Error)
	}
	if f.store.signedCalls != 0 {
		t.Fatal("uri-only evidence must not touch the store")
	}
}

func TestAddEvidenceMediaRefClassification(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)

	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		MediaRefs: []MediaRef{
			{Title: "clip", URI: "https://x/clip.mp4"},
			{Title: "photo", URI: "https://x/photo.jpg"},
		},
	})
	if err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}
	if created[0].EvidenceType != types.EvidenceTypeVideo {
		t.Fatalf("expected video for .mp4, got %q", created[0].EvidenceType)
	}
	if created[1].EvidenceType != types.EvidenceTypeImage {
		t.Fatalf("expected image default, got %q", created[1].EvidenceType)
	}
}

func TestListForReportPermissions(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)

	if _, err := f.evidenceSvc.ListForReport(context.Background(), report.ID, identity(owner, false)); err != nil {
		t.Fatalf("owner list: %v", err)
	}
	_, err := f.evidenceSvc.ListForReport(context.Background(), report.ID, identity(uuid.New(), false))
	assertStatus(t, err, http.StatusForbidden)
	_, err = f.evidenceSvc.ListForReport(context.Background(), report.ID, nil)
	assertStatus(t, err, http.StatusForbidden)
}

func TestGetByIDPermissions(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)
	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		Files: []FileUpload{{OriginalName: "x.jpg", MimeType: "image/jpeg", Body: strings.NewReader("x")}},
	})
	if err != nil {
		t.Fatalf("seed evidence: %v", err)
	}
	evidenceID := created[0].ID

	if _, err := f.evidenceSvc.GetByID(context.Background(), evidenceID, identity(owner, false)); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	_, err = f.evidenceSvc.GetByID(context.Background(), evidenceID, identity(uuid.New(), false))
	assertStatus(t, err, http.StatusForbidden)
	_, err = f.evidenceSvc.GetByID(context.Background(), uuid.New(), identity(owner, false))
	assertStatus(t, err, http.StatusNotFound)
}

func TestUpdateDescription(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)
	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		Files: []FileUpload{{OriginalName: "x.jpg", MimeType: "image/jpeg", Body: strings.NewReader("x")}},
	})
	if err != nil {
		t.Fatalf("seed evidence: %v", err)
	}
	evidenceID := created[0].ID

	updated, err := f.evidenceSvc.UpdateDescription(context.Background(), evidenceID, identity(owner, false), "clearer description")
	if err != nil {
		t.Fatalf("UpdateDescription: %v", err)
	}
	if updated.Description != "clearer description" {
		t.Fatalf("description not updated: %q", updated.Description)
	}

	_, err = f.evidenceSvc.UpdateDescription(context.Background(), evidenceID, identity(owner, false), "   ")
	assertStatus(t, err, http.StatusBadRequest)

	_, err = f.evidenceSvc.UpdateDescription(context.Background(), evidenceID, identity(uuid.New(), false), "nope")
	assertStatus(t, err, http.StatusForbidden)
}

func TestDeleteRemovesBlobThenRecord(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)
	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		Files: []FileUpload{{OriginalName: "x.jpg", MimeType: "image/jpeg", Body: strings.NewReader("x")}},
	})
	if err != nil {
		t.Fatalf("seed evidence: %v", err)
	}
	evidenceID := created[0].ID

	if err := f.evidenceSvc.Delete(context.Background(), evidenceID, identity(owner, false)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.store.deletes) != 1 {
		t.Fatalf("expected 1 blob delete, got %d", len(f.store.deletes))
	}
	_, err = f.evidenceSvc.GetByID(context.Background(), evidenceID, identity(owner, false))
	assertStatus(t, err, http.StatusNotFound)
}

func TestDeleteSurvivesBlobDeleteFailure(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)
	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		Files: []FileUpload{{OriginalName: "x.jpg", MimeType: "image/jpeg", Body: strings.NewReader("x")}},
	})
	if err != nil {
		t.Fatalf("seed evidence: %v", err)
	}
	evidenceID := created[0].ID
	f.store.failDelete = true

	if err := f.evidenceSvc.Delete(context.Background(), evidenceID, identity(owner, false)); err != nil {
		t.Fatalf("Delete must swallow blob failures: %v", err)
	}
	_, err = f.evidenceSvc.GetByID(context.Background(), evidenceID, identity(owner, false))
	assertStatus(t, err, http.StatusNotFound)
}

func TestDeletePermission(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)
	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		Files: []FileUpload{{OriginalName: "x.jpg", MimeType: "image/jpeg", Body: strings.NewReader("x")}},
	})
	if err != nil {
		t.Fatalf("seed evidence: %v", err)
	}
	err = f.evidenceSvc.Delete(context.Background(), created[0].ID, identity(uuid.New(), false))
	assertStatus(t, err, http.StatusForbidden)
}

func TestGetDirectURL(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)
	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		Files:       []FileUpload{{OriginalName: "x.jpg", MimeType: "image/jpeg", Body: strings.NewReader("x")}},
		Description: "photo of the scene",
	})
	if err != nil {
		t.Fatalf("seed evidence: %v", err)
	}

	out, err := f.evidenceSvc.GetDirectURL(context.Background(), created[0].ID, identity(owner, false))
	if err != nil {
		t.Fatalf("GetDirectURL: %v", err)
	}
	if out.SignedURL == "" || out.FileType != types.EvidenceTypeImage || out.Description != "photo of the scene" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestGetDirectURLForURIItem(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	report := f.seedReport(t, owner)
	created, err := f.evidenceSvc.AddEvidence(context.Background(), report.ID, identity(owner, false), AddEvidenceInput{
		AudioRefs: []AudioRef{{Title: "Call", URI: "https://x/call.mp3"}},
	})
	if err != nil {
		t.Fatalf("seed evidence: %v", err)
	}
	out, err := f.evidenceSvc.GetDirectURL(context.Background(), created[0].ID, identity(owner, false))
	if err != nil {
		t.Fatalf("GetDirectURL: %v", err)
	}
	if out.SignedURL != "https://x/call.mp3" {
		t.Fatalf("expected uri passthrough, got %q", out.SignedURL)
	}
}
