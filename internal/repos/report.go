package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/koladetyk/tabithaAI-backend-sub000/internal/logger"
	"github.com/koladetyk/tabithaAI-backend-sub000/internal/types"
)

type ReportRepo interface {
	Create(ctx context.Context, tx *gorm.DB, report *types.Report) (*types.Report, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Report, error)
	ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Report, error)
	UpdateAIAnalysis(ctx context.Context, tx *gorm.DB, id uuid.UUID, results datatypes.JSON) error
	UpdateVerificationCode(ctx context.Context, tx *gorm.DB, id uuid.UUID, codeHash string) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{db: db, log: baseLog.With("repo", "ReportRepo")}
}

func (r *reportRepo) Create(ctx context.Context, tx *gorm.DB, report *types.Report) (*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

func (r *reportRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var report types.Report
	if err := transaction.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Report
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_date DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reportRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Report
	if err := transaction.WithContext(ctx).
		Order("submitted_date DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reportRepo) UpdateAIAnalysis(ctx context.Context, tx *gorm.DB, id uuid.UUID, results datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Model(&types.Report{}).
		Where("id = ?", id).
		Update("ai_analysis_results", results).Error
}

func (r *reportRepo) UpdateVerificationCode(ctx context.Context, tx *gorm.DB, id uuid.UUID, codeHash string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Model(&types.Report{}).
		Where("id = ?", id).
		Update("verification_code", codeHash).Error
}

func (r *reportRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Report{}).Error
}
