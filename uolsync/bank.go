package uolsync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/sirupsen/logrus"
)

var errMissingId = errors.New("provider record id missing")

// BankMovementSyncer mirrors bank movements per configured account. The
// provider's movement listing cannot be filtered by account server-side, so
// every page is fetched unfiltered and filtered locally.
type BankMovementSyncer struct {
	provider *models.ProviderConfig
	client   *Client
	store    Store
	logger   *logrus.Logger
	now      func() time.Time
}

func NewBankMovementSyncer(provider *models.ProviderConfig, client *Client, store Store, logger *logrus.Logger) *BankMovementSyncer {
	return &BankMovementSyncer{
		provider: provider,
		client:   client,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *BankMovementSyncer) Sync(ctx context.Context, deadline time.Time, index *runIndex) (int, error) {
	accounts := index.bankAccounts
	if accounts == nil {
		fetched, err := s.client.ListAllBankAccounts(ctx)
		if err != nil {
			return 0, err
		}
		index.setBankAccounts(fetched)
		accounts = fetched
	}

	total := 0
	for _, account := range accounts {
		if !s.now().Before(deadline) {
			return total, nil
		}
		n, err := s.syncAccount(ctx, account, deadline)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *BankMovementSyncer) syncAccount(ctx context.Context, account uolBankAccount, deadline time.Time) (int, error) {
	accountId := account.ID.String()

	// Watermark: only re-fetch activity since the newest stored movement.
	// No watermark means fetch everything available.
	dateFrom, err := s.store.LatestMovementDate(ctx, s.provider.ID, accountId)
	if err != nil {
		return 0, err
	}

	total := 0
	for page := 1; page <= maxPageWalk; page++ {
		if !s.now().Before(deadline) {
			return total, nil
		}

		env, err := s.client.ListBankMovements(ctx, page, dateFrom)
		if err != nil {
			return total, err
		}
		if len(env.Items) == 0 {
			return total, nil
		}

		for _, raw := range env.Items {
			var movement uolBankMovement
			if err := json.Unmarshal(raw, &movement); err != nil {
				config.LogError(s.logger, "bank.go", "syncAccount", "Unmarshal bank movement", string(raw), err)
				continue
			}
			if movement.accountID() != accountId {
				continue
			}
			if movement.ID.String() == "" {
				config.LogError(s.logger, "bank.go", "syncAccount", "Bank movement without id", string(raw), errMissingId)
				continue
			}

			record := &models.BankMovement{
				ProviderId:     s.provider.ID,
				MovementId:     movement.ID.String(),
				AccountId:      accountId,
				MovementDate:   parseDatePtr(movement.Date),
				Amount:         decimalFromNumber(movement.Amount),
				Currency:       movement.Currency,
				VariableSymbol: movement.VariableSymbol,
				Note:           movement.Note,
				RawPayload:     raw,
			}
			if err := s.store.UpsertBankMovement(ctx, record); err != nil {
				return total, err
			}
			total++
		}

		if !env.hasNext() {
			return total, nil
		}
	}
	return total, nil
}
