package batch

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunModel records one scoring batch run for auditability. Metrics holds the
// snapshot metadata (counts, AUROC/AUPRC) as a JSON column.
type RunModel struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	ModelName     string            `gorm:"column:model_name"`
	Status        string            `gorm:"column:status"`
	TotalRecords  int               `gorm:"column:total_records"`
	ScoredRecords int               `gorm:"column:scored_records"`
	Metrics       datatypes.JSONMap `gorm:"column:metrics"`
	SnapshotPath  string            `gorm:"column:snapshot_path"`
	ErrorMessage  string            `gorm:"column:error_message"`
	CreatedAt     time.Time         `gorm:"column:created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at"`
	StartedAt     *time.Time        `gorm:"column:started_at"`
	CompletedAt   *time.Time        `gorm:"column:completed_at"`
}

func (RunModel) TableName() string {
	return "scoring_runs"
}
