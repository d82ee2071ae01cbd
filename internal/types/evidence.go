package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EvidenceType string

const (
	EvidenceTypeImage    EvidenceType = "image"
	EvidenceTypeAudio    EvidenceType = "audio"
	EvidenceTypeVideo    EvidenceType = "video"
	EvidenceTypeDocument EvidenceType = "document"
)

type Evidence struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReportID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"report_id"`
	Report            *Report        `gorm:"constraint:OnDelete:CASCADE;foreignKey:ReportID;references:ID" json:"report,omitempty"`
	EvidenceType      EvidenceType   `gorm:"column:evidence_type;not null" json:"evidence_type"`
	Locator           *string        `gorm:"column:locator" json:"locator,omitempty"`
	Description       string         `gorm:"column:description" json:"description"`
	Metadata          datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	AIAnalysisResults datatypes.JSON `gorm:"column:ai_analysis_results;type:jsonb" json:"ai_analysis_results,omitempty"`
	SubmittedDate     time.Time      `gorm:"column:submitted_date;not null;default:now()" json:"submitted_date"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Evidence) TableName() string { return "evidence" }

// Evidence metadata is a tagged union: uploaded binaries carry file facts,
// URI-only submissions carry the external reference. The source tag keeps the
// two shapes distinguishable after a round trip through jsonb. Contact
// information must never be written here.

const (
	MetadataSourceUpload = "upload"
	MetadataSourceURI    = "uri"
)

type UploadMetadata struct {
	Source       string    `json:"source"`
	OriginalName string    `json:"original_name"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type URIMetadata struct {
	Source        string `json:"source"`
	Title         string `json:"title"`
	URI           string `json:"uri"`
	Transcription string `json:"transcription,omitempty"`
}

func NewUploadMetadata(originalName string, sizeBytes int64, mimeType string, uploadedAt time.Time) (datatypes.JSON, error) {
	raw, err := json.Marshal(UploadMetadata{
		Source:       MetadataSourceUpload,
		OriginalName: originalName,
		SizeBytes:    sizeBytes,
		MimeType:     mimeType,
		UploadedAt:   uploadedAt,
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func NewURIMetadata(title, uri, transcription string) (datatypes.JSON, error) {
	raw, err := json.Marshal(URIMetadata{
		Source:        MetadataSourceURI,
		Title:         title,
		URI:           uri,
		Transcription: transcription,
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// MetadataURI extracts the external reference from URI-sourced metadata.
// Returns false for upload-sourced or malformed metadata.
func (e *Evidence) MetadataURI() (string, bool) {
	if e == nil || len(e.Metadata) == 0 {
		return "", false
	}
	var meta URIMetadata
	if err := json.Unmarshal(e.Metadata, &meta); err != nil {
		return "", false
	}
	uri := strings.TrimSpace(meta.URI)
	if meta.Source != MetadataSourceURI || uri == "" {
		return "", false
	}
	return uri, true
}
