package uolsync

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/mmdatafocus/ledgermirror_backend/utils"
)

// SyncPubSubPayload is the message published for a queued sync run. The
// worker starts the run record itself, so the payload only needs to carry
// which provider to sync and how it was triggered.
type SyncPubSubPayload struct {
	ProviderId  int    `json:"providerId"`
	TriggeredBy string `json:"triggeredBy"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func PublishSyncRun(ctx context.Context, providerId int, triggeredBy string) error {
	topicName := strings.TrimSpace(os.Getenv("UOL_SYNC_TOPIC"))
	if topicName == "" {
		topicName = "uol-sync"
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if envBoolDefault("UOL_SYNC_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	payload := SyncPubSubPayload{
		ProviderId:  providerId,
		TriggeredBy: triggeredBy,
	}
	data, _ := json.Marshal(payload)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

// PubSubPushHandler accepts push deliveries and always acks with 204;
// a redelivery of a malformed or stale message would never succeed either.
func PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_UOL_PUBSUB_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload SyncPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}
		if payload.ProviderId == 0 {
			c.Status(204)
			return
		}

		_ = ProcessSyncRun(c.Request.Context(), payload)
		c.Status(204)
	}
}

// ProcessSyncRun executes one orchestrated run for the provider named in the
// payload, under a per-provider lock so overlapping deliveries cannot run
// the same provider twice.
func ProcessSyncRun(ctx context.Context, payload SyncPubSubPayload) error {
	logger := config.GetLogger()

	provider, err := models.GetProviderConfig(ctx, payload.ProviderId)
	if err != nil {
		config.LogError(logger, "pubsub.go", "ProcessSyncRun", "Load provider config", payload.ProviderId, err)
		return err
	}

	lock, err := utils.ProviderLock(ctx, provider.ID, "pubsub.go", "ProcessSyncRun")
	if err != nil {
		if err == redislock.ErrNotObtained {
			config.LogError(logger, "pubsub.go", "ProcessSyncRun", "Sync already running", provider.ID, err)
			return nil
		}
		return err
	}
	defer lock.Release(ctx)

	triggeredBy := payload.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = models.SyncTriggeredCron
	}

	orchestrator := NewOrchestrator(provider, NewDBStore())
	_, err = orchestrator.Run(ctx, triggeredBy)
	if err != nil {
		config.LogError(logger, "pubsub.go", "ProcessSyncRun", "Sync run failed", provider.ID, err)
	}
	return err
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
