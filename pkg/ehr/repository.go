package ehr

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chronicare-ai/platform/pkg/common/models"
)

var ErrRecordNotFound = errors.New("ehr record not found")

// Repository stores the raw extract in postgres. The batch runner reads the
// full set each run; upserts keep re-imports idempotent on patient id.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RecordModel{})
}

func (r *Repository) Upsert(ctx context.Context, records []models.RawPatientRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]RecordModel, 0, len(records))
	for _, rec := range records {
		rows = append(rows, toRow(rec))
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patient_id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 500).Error
}

func (r *Repository) Get(ctx context.Context, patientID string) (models.RawPatientRecord, error) {
	var row RecordModel
	result := r.db.WithContext(ctx).First(&row, "patient_id = ?", patientID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.RawPatientRecord{}, ErrRecordNotFound
	}
	if result.Error != nil {
		return models.RawPatientRecord{}, result.Error
	}
	return toDomain(&row), nil
}

// List returns the full extract ordered by patient id so batch input order
// is reproducible.
func (r *Repository) List(ctx context.Context) ([]models.RawPatientRecord, error) {
	var rows []RecordModel
	result := r.db.WithContext(ctx).Order("patient_id asc").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	records := make([]models.RawPatientRecord, 0, len(rows))
	for i := range rows {
		records = append(records, toDomain(&rows[i]))
	}
	return records, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&RecordModel{}).Count(&count)
	return count, result.Error
}

// Load satisfies the batch source contract.
func (r *Repository) Load(ctx context.Context) ([]models.RawPatientRecord, error) {
	return r.List(ctx)
}
