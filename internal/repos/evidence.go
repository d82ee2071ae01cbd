package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

type EvidenceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, items []*types.Evidence) ([]*types.Evidence, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Evidence, error)
	GetByReportID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) ([]*types.Evidence, error)
	UpdateDescription(ctx context.Context, tx *gorm.DB, id uuid.UUID, description string) error
	UpdateAIAnalysis(ctx context.Context, tx *gorm.DB, id uuid.UUID, results datatypes.JSON) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CountByTypeForReports(ctx context.Context, tx *gorm.DB, reportIDs []uuid.UUID) (map[uuid.UUID]map[types.EvidenceType]int, error)
}

type evidenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceRepo {
	return &evidenceRepo{db: db, log: baseLog.With("repo", "EvidenceRepo")}
}

func (r *evidenceRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.Evidence) ([]*types.Evidence, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.Evidence{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *evidenceRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Evidence, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var item types.Evidence
	if err := transaction.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *evidenceRepo) GetByReportID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) ([]*types.Evidence, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Evidence
	if err := transaction.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("submitted_date DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *evidenceRepo) UpdateDescription(ctx context.Context, tx *gorm.DB, id uuid.UUID, description string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Model(&types.Evidence{}).
		Where("id = ?", id).
		Update("description", description).Error
}

func (r *evidenceRepo) UpdateAIAnalysis(ctx context.Context, tx *gorm.DB, id uuid.UUID, results datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Model(&types.Evidence{}).
		Where("id = ?", id).
		Update("ai_analysis_results", results).Error
}

func (r *evidenceRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Evidence{}).Error
}

// CountByTypeForReports tallies evidence per report and type in one grouped
// query, for the report listing path.
func (r *evidenceRepo) CountByTypeForReports(ctx context.Context, tx *gorm.DB, reportIDs []uuid.UUID) (map[uuid.UUID]map[types.EvidenceType]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[uuid.UUID]map[types.EvidenceType]int, len(reportIDs))
	if len(reportIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ReportID     uuid.UUID
		EvidenceType types.EvidenceType
		Count        int
	}
	if err := transaction.WithContext(ctx).Model(&types.Evidence{}).
		Select("report_id, evidence_type, count(*) as count").
		Where("report_id IN ?", reportIDs).
		Group("report_id, evidence_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if out[row.ReportID] == nil {
			out[row.ReportID] = make(map[types.EvidenceType]int)
		}
		out[row.ReportID][row.EvidenceType] = row.Count
	}
	return out, nil
}
