package kvstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type entryModel struct {
	Key       string         `gorm:"type:text;primaryKey"`
	Value     datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

func (entryModel) TableName() string { return "kv_entries" }

// Gorm is a Postgres-backed Store.
type Gorm struct {
	orm *gorm.DB
}

// NewGorm wraps the provided GORM handle as a Store.
func NewGorm(orm *gorm.DB) (*Gorm, error) {
	if orm == nil {
		return nil, errors.New("kvstore: orm is required")
	}
	return &Gorm{orm: orm}, nil
}

func (g *Gorm) Get(ctx context.Context, key string) ([]byte, error) {
	var entry entryModel
	err := g.orm.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(entry.Value), nil
}

func (g *Gorm) Set(ctx context.Context, key string, value []byte) error {
	entry := entryModel{Key: key, Value: datatypes.JSON(value), UpdatedAt: time.Now().UTC()}
	return g.orm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (g *Gorm) Delete(ctx context.Context, key string) error {
	return g.orm.WithContext(ctx).Where("key = ?", key).Delete(&entryModel{}).Error
}
