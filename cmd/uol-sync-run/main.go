package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/mmdatafocus/ledgermirror_backend/uolsync"
	"github.com/mmdatafocus/ledgermirror_backend/utils"
	"github.com/sirupsen/logrus"
)

// One-shot sync runner, meant for cron. Runs every enabled provider in
// sequence (or a single one via -provider-id) and exits non-zero if any
// run errored.
func main() {
	providerID := flag.Int("provider-id", 0, "Optional: sync only one provider. If 0, syncs all enabled providers.")
	flag.Parse()

	ctx := context.Background()
	logger := config.GetLogger()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	if !config.SkipMigrations() {
		models.MigrateTable()
	}

	ctx = utils.SetUserNameInContext(ctx, "UolSyncRun")

	var providers []*models.ProviderConfig
	if *providerID > 0 {
		provider, err := models.GetProviderConfig(ctx, *providerID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load provider %d: %v\n", *providerID, err)
			os.Exit(1)
		}
		providers = append(providers, provider)
	} else {
		var err error
		providers, err = models.GetEnabledProviderConfigs(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list providers: %v\n", err)
			os.Exit(1)
		}
	}
	if len(providers) == 0 {
		fmt.Fprintln(os.Stderr, "no enabled providers to sync")
		return
	}

	failed := 0
	for _, provider := range providers {
		err := uolsync.ProcessSyncRun(ctx, uolsync.SyncPubSubPayload{
			ProviderId:  provider.ID,
			TriggeredBy: models.SyncTriggeredCron,
		})
		if err != nil {
			failed++
			config.LogError(logger, "main.go", "main", "Provider sync failed", provider.ID, err)
			continue
		}
		logger.WithFields(logrus.Fields{"provider_id": provider.ID}).Info("provider sync finished")
	}

	if failed > 0 {
		os.Exit(1)
	}
}
