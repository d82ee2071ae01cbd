package evidence

import (
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

// Categorized groups URL-resolved evidence for report detail responses.
type Categorized struct {
	Images    []Resolved `json:"images"`
	Audios    []Resolved `json:"audios"`
	Videos    []Resolved `json:"videos"`
	Documents []Resolved `json:"documents"`
}

type Summary struct {
	Total     int `json:"total"`
	Images    int `json:"images"`
	Audios    int `json:"audios"`
	Videos    int `json:"videos"`
	Documents int `json:"documents"`
}

// Categorize partitions by evidence type. Legacy rows with an unknown type
// fold into documents so the summary invariant (total == sum of buckets)
// always holds. Pure; preserves relative order within each bucket.
func Categorize(items []Resolved) Categorized {
	out := Categorized{
		Images:    []Resolved{},
		Audios:    []Resolved{},
		Videos:    []Resolved{},
		Documents: []Resolved{},
	}
	for _, item := range items {
		switch item.EvidenceType {
		case types.EvidenceTypeImage:
			out.Images = append(out.Images, item)
		case types.EvidenceTypeAudio:
			out.Audios = append(out.Audios, item)
		case types.EvidenceTypeVideo:
			out.Videos = append(out.Videos, item)
		default:
			out.Documents = append(out.Documents, item)
		}
	}
	return out
}

func Summarize(c Categorized) Summary {
	s := Summary{
		Images:    len(c.Images),
		Audios:    len(c.Audios),
		Videos:    len(c.Videos),
		Documents: len(c.Documents),
	}
	s.Total = s.Images + s.Audios + s.Videos + s.Documents
	return s
}

// SummaryFromCounts builds the same shape from a grouped tally, used by the
// report listing path where counting per item would mean one query per report.
func SummaryFromCounts(counts map[types.EvidenceType]int) Summary {
	s := Summary{}
	for evType, n := range counts {
		switch evType {
		case types.EvidenceTypeImage:
			s.Images += n
		case types.EvidenceTypeAudio:
			s.Audios += n
		case types.EvidenceTypeVideo:
			s.Videos += n
		default:
			s.Documents += n
		}
	}
	s.Total = s.Images + s.Audios + s.Videos + s.Documents
	return s
}
