package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
)

// SyncRun is the append-mostly run log. A row is created when orchestration
// starts and updated exactly once on completion.
type SyncRun struct {
	ID           int        `gorm:"primary_key" json:"id"`
	ProviderId   int        `gorm:"index;not null" json:"provider_id"`
	Status       string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy  string     `gorm:"size:20" json:"triggered_by"`
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
	Partial      bool       `gorm:"default:false" json:"partial"`
	StatsJSON    []byte     `gorm:"type:json" json:"stats"`
	StartedAt    *time.Time `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	DurationMs   int64      `json:"duration_ms"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func StartSyncRun(ctx context.Context, providerId int, triggeredBy string) (*SyncRun, error) {
	db := config.GetDB()
	now := time.Now()
	run := SyncRun{
		ProviderId:  providerId,
		Status:      SyncRunStatusRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   &now,
	}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func FinishSyncRun(ctx context.Context, runId int, status string, errorMessage string, partial bool, statsJSON []byte) error {
	db := config.GetDB()
	now := time.Now()

	var run SyncRun
	if err := db.WithContext(ctx).Where("id = ?", runId).Take(&run).Error; err != nil {
		return err
	}
	durationMs := int64(0)
	if run.StartedAt != nil {
		durationMs = now.Sub(*run.StartedAt).Milliseconds()
	}

	return db.WithContext(ctx).Model(&SyncRun{}).
		Where("id = ?", runId).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
			"partial":       partial,
			"stats_json":    statsJSON,
			"ended_at":      now,
			"duration_ms":   durationMs,
		}).Error
}

func ListSyncRuns(ctx context.Context, providerId int, limit int) ([]*SyncRun, error) {
	db := config.GetDB()
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs := make([]*SyncRun, 0)
	dbCtx := db.WithContext(ctx).Order("id DESC").Limit(limit)
	if providerId > 0 {
		dbCtx = dbCtx.Where("provider_id = ?", providerId)
	}
	if err := dbCtx.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func GetSyncRun(ctx context.Context, runId int) (*SyncRun, error) {
	db := config.GetDB()
	var run SyncRun
	if err := db.WithContext(ctx).Where("id = ?", runId).Take(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
