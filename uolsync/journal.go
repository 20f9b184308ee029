package uolsync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/sirupsen/logrus"
)

// JournalSyncer mirrors general-ledger postings one fiscal year at a time,
// from a fixed epoch year up to the current calendar year. After a year has
// been fetched in full, locally stored entries the provider no longer
// returns for that year are pruned; the provider is the source of truth for
// a year's open set.
type JournalSyncer struct {
	provider  *models.ProviderConfig
	client    *Client
	store     Store
	logger    *logrus.Logger
	now       func() time.Time
	epochYear int
}

func NewJournalSyncer(provider *models.ProviderConfig, client *Client, store Store, logger *logrus.Logger) *JournalSyncer {
	return &JournalSyncer{
		provider:  provider,
		client:    client,
		store:     store,
		logger:    logger,
		now:       time.Now,
		epochYear: intFromEnv("UOL_JOURNAL_EPOCH_YEAR", 2020),
	}
}

func (s *JournalSyncer) Sync(ctx context.Context, deadline time.Time) (int, error) {
	currentYear := s.now().Year()
	total := 0

	for year := s.epochYear; year <= currentYear; year++ {
		if !s.now().Before(deadline) {
			return total, nil
		}
		n, err := s.syncYear(ctx, year, deadline)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *JournalSyncer) syncYear(ctx context.Context, year int, deadline time.Time) (int, error) {
	dateFrom := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	dateTo := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	seenIds := make([]string, 0)
	complete := false
	total := 0

	for page := 1; page <= maxPageWalk; page++ {
		if !s.now().Before(deadline) {
			break
		}

		env, err := s.client.ListJournalRecords(ctx, page, dateFrom, dateTo)
		if err != nil {
			return total, err
		}

		for _, raw := range env.Items {
			var record uolJournalRecord
			if err := json.Unmarshal(raw, &record); err != nil {
				config.LogError(s.logger, "journal.go", "syncYear", "Unmarshal journal record", string(raw), err)
				continue
			}
			uolId := record.ID.String()
			if uolId == "" {
				config.LogError(s.logger, "journal.go", "syncYear", "Journal record without id", string(raw), errMissingId)
				continue
			}

			entry := &models.JournalEntry{
				ProviderId:        s.provider.ID,
				UolId:             uolId,
				EntryDate:         parseDatePtr(record.Date),
				DebitAccountCode:  record.DebitAccount.Code,
				CreditAccountCode: record.CreditAccount.Code,
				Amount:            decimalFromNumber(record.Amount),
				Text:              record.Text,
				FiscalYear:        year,
			}
			if err := s.store.UpsertJournalEntry(ctx, entry); err != nil {
				return total, err
			}
			seenIds = append(seenIds, uolId)
			total++
		}

		if !env.hasNext() {
			complete = true
			break
		}
	}

	// Prune only when the year was fetched end to end. A deadline stop or a
	// page-ceiling truncation leaves an unknown remainder upstream; deleting
	// against an incomplete id set would drop live entries.
	if complete {
		if _, err := s.store.DeleteStaleJournalEntries(ctx, s.provider.ID, year, seenIds); err != nil {
			return total, err
		}
	}
	return total, nil
}
