package evidence

import (
	"strings"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

// Classification has two deliberately different defaults. Uploaded binaries
// carry a declared MIME type and anything unrecognized is filed as a document;
// URI-only submissions have no MIME type, so we look at the extension and
// assume image unless it is a known video container. The asymmetry matches the
// populations seen in the two paths and is part of the contract.

// ClassifyMIME maps a declared media type to an evidence type. Total: every
// input, including the empty string, lands in exactly one category.
func ClassifyMIME(mimeType string) types.EvidenceType {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return types.EvidenceTypeImage
	case strings.HasPrefix(mt, "audio/"):
		return types.EvidenceTypeAudio
	case strings.HasPrefix(mt, "video/"):
		return types.EvidenceTypeVideo
	default:
		return types.EvidenceTypeDocument
	}
}

var videoExtensions = []string{".mp4", ".mov", ".avi"}

// ClassifyURI distinguishes image from video for externally hosted media
// references. Query strings are ignored when matching the extension.
func ClassifyURI(uri string) types.EvidenceType {
	u := strings.ToLower(strings.TrimSpace(uri))
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	for _, ext := range videoExtensions {
		if strings.HasSuffix(u, ext) {
			return types.EvidenceTypeVideo
		}
	}
	return types.EvidenceTypeImage
}
