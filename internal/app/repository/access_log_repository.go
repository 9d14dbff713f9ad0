package repository

import (
	"context"

	"github.com/sifan077/spectra/internal/app/model"
	"gorm.io/gorm"
)

// AccessLogRepository defines the data access contract for access logs.
type AccessLogRepository interface {
	Record(ctx context.Context, log *model.AccessLog) error
	ListByItem(ctx context.Context, itemID string) ([]model.AccessLog, error)
}

type accessLogRepository struct {
	db *gorm.DB
}

// NewAccessLogRepository returns a GORM-backed AccessLogRepository.
func NewAccessLogRepository(db *gorm.DB) AccessLogRepository {
	return &accessLogRepository{db: db}
}

// Record appends log. A successful get also bumps the item's visit counter
// in the same transaction, so the counter always equals the number of
// successful get rows.
func (r *accessLogRepository) Record(ctx context.Context, log *model.AccessLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		if !log.Success || log.Operation != model.OpGet {
			return nil
		}
		result := tx.Model(&model.Item{}).
			Where("id = ?", log.ItemID).
			UpdateColumn("visits", gorm.Expr("visits + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return nil
	})
}

func (r *accessLogRepository) ListByItem(ctx context.Context, itemID string) ([]model.AccessLog, error) {
	var logs []model.AccessLog
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("accessed_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
