package handlers

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/apierr"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/evidence"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/requestdata"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/services"
)

type EvidenceHandler struct {
	log         *logger.Logger
	evidenceSvc services.EvidenceService
}

func NewEvidenceHandler(log *logger.Logger, evidenceSvc services.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{
		log:         log.With("handler", "EvidenceHandler"),
		evidenceSvc: evidenceSvc,
	}
}

// POST /api/v1/reports/:reportId/evidence
// Multipart form: files under "files", plus optional evidenceType,
// description, analyzeWithAI, and JSON-encoded audioEvidence/mediaEvidence
// arrays for externally hosted items.
func (h *EvidenceHandler) AddEvidence(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("reportId"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_REPORT_ID", err))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_FORM", err))
		return
	}

	audioRefs, err := parseAudioRefs(c.PostForm("audioEvidence"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_AUDIO_EVIDENCE", err))
		return
	}
	mediaRefs, err := parseMediaRefs(c.PostForm("mediaEvidence"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_MEDIA_EVIDENCE", err))
		return
	}

	input := services.AddEvidenceInput{
		EvidenceType:  c.PostForm("evidenceType"),
		Description:   c.PostForm("description"),
		AnalyzeWithAI: parseBool(c.PostForm("analyzeWithAI")),
		AudioRefs:     audioRefs,
		MediaRefs:     mediaRefs,
	}

	files, closers, err := openUploads(form.File["files"])
	if err != nil {
		RespondError(c, apierr.Validation("UNREADABLE_FILE", err))
		return
	}
	defer func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}()
	input.Files = files

	created, err := h.evidenceSvc.AddEvidence(c.Request.Context(), reportID, requestdata.GetIdentity(c.Request.Context()), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, "evidence added", created)
}

// GET /api/v1/reports/:reportId/evidence?categorize=true
func (h *EvidenceHandler) ListForReport(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("reportId"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_REPORT_ID", err))
		return
	}
	items, err := h.evidenceSvc.ListForReport(c.Request.Context(), reportID, requestdata.GetIdentity(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	if parseBool(c.Query("categorize")) {
		RespondOK(c, "evidence retrieved", evidence.Categorize(items))
		return
	}
	RespondOK(c, "evidence retrieved", items)
}

// GET /api/v1/evidence/:id
func (h *EvidenceHandler) GetByID(c *gin.Context) {
	evidenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_EVIDENCE_ID", err))
		return
	}
	item, err := h.evidenceSvc.GetByID(c.Request.Context(), evidenceID, requestdata.GetIdentity(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "evidence retrieved", item)
}

// GET /api/v1/evidence/:id/url
func (h *EvidenceHandler) GetDirectURL(c *gin.Context) {
	evidenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_EVIDENCE_ID", err))
		return
	}
	out, err := h.evidenceSvc.GetDirectURL(c.Request.Context(), evidenceID, requestdata.GetIdentity(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "signed url generated", out)
}

// PATCH /api/v1/evidence/:id
func (h *EvidenceHandler) UpdateDescription(c *gin.Context) {
	evidenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_EVIDENCE_ID", err))
		return
	}
	var body struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.Validation("INVALID_BODY", err))
		return
	}
	item, err := h.evidenceSvc.UpdateDescription(c.Request.Context(), evidenceID, requestdata.GetIdentity(c.Request.Context()), body.Description)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "evidence updated", item)
}

// DELETE /api/v1/evidence/:id
func (h *EvidenceHandler) Delete(c *gin.Context) {
	evidenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_EVIDENCE_ID", err))
		return
	}
	if err := h.evidenceSvc.Delete(c.Request.Context(), evidenceID, requestdata.GetIdentity(c.Request.Context())); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "evidence deleted", nil)
}

func openUploads(headers []*multipart.FileHeader) ([]services.FileUpload, []multipart.File, error) {
	files := make([]services.FileUpload, 0, len(headers))
	closers := make([]multipart.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			for _, closer := range closers {
				_ = closer.Close()
			}
			return nil, nil, err
		}
		closers = append(closers, f)
		files = append(files, services.FileUpload{
			OriginalName: fh.Filename,
			MimeType:     fh.Header.Get("Content-Type"),
			SizeBytes:    fh.Size,
			Body:         f,
		})
	}
	return files, closers, nil
}

func parseAudioRefs(raw string) ([]services.AudioRef, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var refs []services.AudioRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("decoding audioEvidence: %w", err)
	}
	return refs, nil
}

func parseMediaRefs(raw string) ([]services.MediaRef, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var refs []services.MediaRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("decoding mediaEvidence: %w", err)
	}
	return refs, nil
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
