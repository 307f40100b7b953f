package templates

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	DB *gorm.DB
}

// GetTemplate returns nil, nil when no row exists for category.
func (r *Repo) GetTemplate(ctx context.Context, category string) (*Template, error) {
	var t Template
	err := r.DB.WithContext(ctx).Where("category = ?", category).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) List(ctx context.Context) ([]Template, error) {
	var out []Template
	err := r.DB.WithContext(ctx).Order("category asc").Find(&out).Error
	return out, err
}

func (r *Repo) Upsert(ctx context.Context, category, text string) error {
	t := Template{Category: category, Text: text, UpdatedAt: time.Now()}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
	}).Create(&t).Error
}
