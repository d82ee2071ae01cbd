package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/apierr"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/requestdata"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/services"
)

type ReportHandler struct {
	log       *logger.Logger
	reportSvc services.ReportService
}

func NewReportHandler(log *logger.Logger, reportSvc services.ReportService) *ReportHandler {
	return &ReportHandler{
		log:       log.With("handler", "ReportHandler"),
		reportSvc: reportSvc,
	}
}

// POST /api/v1/reports
// Multipart form so evidence files can ride along with the report itself.
// Works with or without authentication; guests get a verification code back.
func (h *ReportHandler) CreateReport(c *gin.Context) {
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

	input := services.CreateReportInput{
		IncidentDescription: c.PostForm("incidentDescription"),
		Language:            c.PostForm("language"),
		IsAnonymous:         parseBool(c.PostForm("isAnonymous")),
		AudioRefs:           audioRefs,
		MediaRefs:           mediaRefs,
	}

	if form, err := c.MultipartForm(); err == nil && form != nil {
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
	}

	created, err := h.reportSvc.CreateReport(c.Request.Context(), requestdata.GetIdentity(c.Request.Context()), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, "report created", created)
}

// GET /api/v1/reports/:reportId
func (h *ReportHandler) GetReport(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("reportId"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_REPORT_ID", err))
		return
	}
	detail, err := h.reportSvc.GetReport(c.Request.Context(), reportID, requestdata.GetIdentity(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "report retrieved", detail)
}

// GET /api/v1/reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	listings, err := h.reportSvc.ListReports(c.Request.Context(), requestdata.GetIdentity(c.Request.Context()))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "reports retrieved", listings)
}

// DELETE /api/v1/reports/:reportId
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("reportId"))
	if err != nil {
		RespondError(c, apierr.Validation("INVALID_REPORT_ID", err))
		return
	}
	if err := h.reportSvc.DeleteReport(c.Request.Context(), reportID, requestdata.GetIdentity(c.Request.Context())); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "report deleted", nil)
}
