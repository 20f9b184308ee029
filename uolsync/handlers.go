package uolsync

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/ledgermirror_backend/models"
	"gorm.io/gorm"
)

type providerStatusResponse struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type syncRunResponse struct {
	ID           int             `json:"id"`
	ProviderId   int             `json:"provider_id"`
	Status       string          `json:"status"`
	TriggeredBy  string          `json:"triggered_by"`
	Partial      bool            `json:"partial"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Stats        json.RawMessage `json:"stats,omitempty"`
	StartedAt    *string         `json:"started_at"`
	EndedAt      *string         `json:"ended_at"`
	DurationMs   int64           `json:"duration_ms"`
}

// StatusHandler reports the provider's configuration state and its most
// recent run, so operators can see at a glance whether sync is healthy.
func StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		providerId, err := providerIdParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider id"})
			return
		}

		provider, err := models.GetProviderConfig(c.Request.Context(), providerId)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		runs, err := models.ListSyncRuns(c.Request.Context(), providerId, 1)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resp := gin.H{
			"provider": providerStatusResponse{
				ID:      provider.ID,
				Name:    provider.Name,
				Enabled: provider.Enabled,
			},
		}
		if len(runs) > 0 {
			resp["last_run"] = mapRunToResponse(runs[0])
		}
		c.JSON(http.StatusOK, resp)
	}
}

// TriggerSyncHandler queues a sync run for one provider. With
// UOL_SYNC_INLINE=true the run executes in the request instead of going
// through Pub/Sub; meant for local development only.
func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		providerId, err := providerIdParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider id"})
			return
		}

		provider, err := models.GetProviderConfig(c.Request.Context(), providerId)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !provider.Enabled {
			c.JSON(http.StatusConflict, gin.H{"error": "provider is disabled"})
			return
		}

		payload := SyncPubSubPayload{
			ProviderId:  provider.ID,
			TriggeredBy: models.SyncTriggeredManual,
		}

		if envBoolDefault("UOL_SYNC_INLINE", false) {
			if err := ProcessSyncRun(c.Request.Context(), payload); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"queued": false})
			return
		}

		if err := PublishSyncRun(c.Request.Context(), payload.ProviderId, payload.TriggeredBy); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
	}
}

func SyncHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		providerId := 0
		if v := strings.TrimSpace(c.Query("provider_id")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid provider id"})
				return
			}
			providerId = n
		}

		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		runs, err := models.ListSyncRuns(c.Request.Context(), providerId, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]syncRunResponse, 0, len(runs))
		for _, run := range runs {
			items = append(items, mapRunToResponse(run))
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		run, err := models.GetSyncRun(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, mapRunToResponse(run))
	}
}

func providerIdParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid provider id")
	}
	return id, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func mapRunToResponse(run *models.SyncRun) syncRunResponse {
	return syncRunResponse{
		ID:           run.ID,
		ProviderId:   run.ProviderId,
		Status:       run.Status,
		TriggeredBy:  run.TriggeredBy,
		Partial:      run.Partial,
		ErrorMessage: run.ErrorMessage,
		Stats:        json.RawMessage(run.StatsJSON),
		StartedAt:    formatTime(run.StartedAt),
		EndedAt:      formatTime(run.EndedAt),
		DurationMs:   run.DurationMs,
	}
}
