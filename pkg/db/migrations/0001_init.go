package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

// KVEntry backs the durable batch queue and form defaults.
type KVEntry struct {
	Key       string         `gorm:"type:text;primaryKey"`
	Value     datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

func (KVEntry) TableName() string { return "kv_entries" }

// SubmissionAudit is one reconciliation outcome kept for traceability.
type SubmissionAudit struct {
	ID                 int64             `gorm:"type:bigserial;primaryKey"`
	Tag                string            `gorm:"type:text;not null;index"`
	AssetID            string            `gorm:"type:text"`
	Operation          string            `gorm:"type:text;not null"`
	ModelID            string            `gorm:"type:text"`
	ClearedAssignments int               `gorm:"type:int;not null;default:0"`
	Error              string            `gorm:"type:text"`
	Record             datatypes.JSONMap `gorm:"type:jsonb"`
	At                 time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

func (SubmissionAudit) TableName() string { return "submission_audit" }

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).AutoMigrate(
		&KVEntry{},
		&SubmissionAudit{},
	)
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&SubmissionAudit{},
		&KVEntry{},
	)
}
