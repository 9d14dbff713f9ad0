package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/spectra/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrItemNotFound signals that no item lives at the requested path or id.
	ErrItemNotFound = errors.New("item not found")
	// ErrItemExists signals a short path collision.
	ErrItemExists = errors.New("item already exists")
)

// ItemRepository defines the data access contract for items.
type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	GetByPath(ctx context.Context, path string) (*model.Item, error)
	Exists(ctx context.Context, path string) (bool, error)
	Paths(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
	UpdateData(ctx context.Context, id, data string, isImage bool, extraData *string) error
	MarkUnavailable(ctx context.Context, id string, dropAt time.Time) error
	ListByCreator(ctx context.Context, creator string, page Page) ([]model.Item, error)
	ListImagesByCreator(ctx context.Context, creator string, page Page) ([]model.Item, error)
	ListAll(ctx context.Context, page Page) ([]model.Item, error)
	FlagExhausted(ctx context.Context, now, dropAt time.Time) (int64, error)
	DropExpired(ctx context.Context, now time.Time) ([]model.Item, error)
}

type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository returns a GORM-backed ItemRepository.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	err := r.db.WithContext(ctx).Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrItemExists
	}
	return err
}

func (r *itemRepository) GetByPath(ctx context.Context, path string) (*model.Item, error) {
	var item model.Item
	if err := r.db.WithContext(ctx).Where("short_path = ?", path).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) Exists(ctx context.Context, path string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Item{}).Where("short_path = ?", path).Count(&count).Error
	return count > 0, err
}

func (r *itemRepository) Paths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Model(&model.Item{}).Pluck("short_path", &paths).Error
	return paths, err
}

// Delete removes the item and its access logs together.
func (r *itemRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&model.AccessLog{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Item{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return nil
	})
}

// UpdateData replaces the payload reference. A nil extraData keeps the stored value.
func (r *itemRepository) UpdateData(ctx context.Context, id, data string, isImage bool, extraData *string) error {
	fields := map[string]any{
		"data":     data,
		"is_image": isImage,
	}
	if extraData != nil {
		fields["extra_data"] = *extraData
	}
	result := r.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *itemRepository) MarkUnavailable(ctx context.Context, id string, dropAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND available = ?", id, true).
		Updates(map[string]any{
			"available":      false,
			"should_drop_at": dropAt,
		}).Error
}

func (r *itemRepository) ListByCreator(ctx context.Context, creator string, page Page) ([]model.Item, error) {
	return r.list(ctx, page, func(q *gorm.DB) *gorm.DB {
		return q.Where("creator = ?", creator)
	})
}

func (r *itemRepository) ListImagesByCreator(ctx context.Context, creator string, page Page) ([]model.Item, error) {
	return r.list(ctx, page, func(q *gorm.DB) *gorm.DB {
		return q.Where("creator = ? AND item_type = ? AND is_image = ?", creator, model.ItemFile, true)
	})
}

func (r *itemRepository) ListAll(ctx context.Context, page Page) ([]model.Item, error) {
	return r.list(ctx, page, func(q *gorm.DB) *gorm.DB { return q })
}

func (r *itemRepository) list(ctx context.Context, page Page, scope func(*gorm.DB) *gorm.DB) ([]model.Item, error) {
	page = page.normalize()

	var result []model.Item
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// FlagExhausted marks every available item that ran out of time or visits.
func (r *itemRepository) FlagExhausted(ctx context.Context, now, dropAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Item{}).
		Where("available = ?", true).
		Where("((expires_at IS NOT NULL AND expires_at < ?) OR (max_visits IS NOT NULL AND visits >= max_visits))", now).
		Updates(map[string]any{
			"available":      false,
			"should_drop_at": dropAt,
		})
	return result.RowsAffected, result.Error
}

// DropExpired deletes unavailable items whose grace period ended before now,
// along with their access logs, and returns the deleted rows.
func (r *itemRepository) DropExpired(ctx context.Context, now time.Time) ([]model.Item, error) {
	var dropped []model.Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("available = ? AND should_drop_at IS NOT NULL AND should_drop_at < ?", false, now).
			Find(&dropped).Error; err != nil {
			return err
		}
		if len(dropped) == 0 {
			return nil
		}

		ids := make([]string, len(dropped))
		for i := range dropped {
			ids[i] = dropped[i].ID
		}
		if err := tx.Where("item_id IN ?", ids).Delete(&model.AccessLog{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&model.Item{}).Error
	})
	if err != nil {
		return nil, err
	}
	return dropped, nil
}
