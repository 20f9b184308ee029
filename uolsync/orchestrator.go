package uolsync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/sirupsen/logrus"
)

// Phase names, in execution order. Later phases depend on earlier phases'
// writes: reconciliation can only see documents and movements that are
// already upserted.
const (
	PhaseContacts         = "contacts"
	PhaseSalesInvoices    = "sales_invoices"
	PhasePurchaseInvoices = "purchase_invoices"
	PhaseBankMovements    = "bank_movements"
	PhaseJournal          = "journal"
	PhaseReceivables      = "receivables"
	PhasePayables         = "payables"
)

// RunSummary is what one completed orchestration reports back.
type RunSummary struct {
	RunId   int            `json:"run_id"`
	Counts  map[string]int `json:"counts"`
	Partial bool           `json:"partial"`
}

// Orchestrator sequences all sync phases for one provider under a single
// wall-clock budget. A phase skipped because the budget ran out makes the
// run partial, which is a normal outcome; a phase error aborts the run.
type Orchestrator struct {
	provider *models.ProviderConfig
	client   *Client
	store    Store
	logger   *logrus.Logger
	budget   time.Duration
	now      func() time.Time

	documents *DocumentSyncer
	bank      *BankMovementSyncer
	journal   *JournalSyncer
	matcher   *ReconciliationMatcher
}

func NewOrchestrator(provider *models.ProviderConfig, store Store) *Orchestrator {
	client := NewClient(provider)
	logger := config.GetLogger()
	budgetMinutes := intFromEnv("UOL_SYNC_BUDGET_MINUTES", 10)

	return &Orchestrator{
		provider:  provider,
		client:    client,
		store:     store,
		logger:    logger,
		budget:    time.Duration(budgetMinutes) * time.Minute,
		now:       time.Now,
		documents: NewDocumentSyncer(provider, client, store, logger),
		bank:      NewBankMovementSyncer(provider, client, store, logger),
		journal:   NewJournalSyncer(provider, client, store, logger),
		matcher:   NewReconciliationMatcher(provider, client, store, logger),
	}
}

// Run executes one sync run: open the run log, execute the phases in order
// against a shared deadline, close the run log. Only phase errors propagate;
// deadline exhaustion degrades to a partial run with status success.
func (o *Orchestrator) Run(ctx context.Context, triggeredBy string) (*RunSummary, error) {
	run, err := o.store.StartSyncRun(ctx, o.provider.ID, triggeredBy)
	if err != nil {
		return nil, err
	}

	deadline := o.now().Add(o.budget)
	index := newRunIndex()
	counts := make(map[string]int)
	partial := false

	phases := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{PhaseContacts, func(ctx context.Context) (int, error) {
			return o.syncContacts(ctx, deadline, index)
		}},
		{PhaseSalesInvoices, func(ctx context.Context) (int, error) {
			return o.documents.Sync(ctx, models.DocumentTypeSalesInvoice, deadline, index)
		}},
		{PhasePurchaseInvoices, func(ctx context.Context) (int, error) {
			return o.documents.Sync(ctx, models.DocumentTypePurchaseInvoice, deadline, index)
		}},
		{PhaseBankMovements, func(ctx context.Context) (int, error) {
			return o.bank.Sync(ctx, deadline, index)
		}},
		{PhaseJournal, func(ctx context.Context) (int, error) {
			return o.journal.Sync(ctx, deadline)
		}},
		{PhaseReceivables, func(ctx context.Context) (int, error) {
			return o.matcher.SyncReceivables(ctx, deadline)
		}},
		{PhasePayables, func(ctx context.Context) (int, error) {
			return o.matcher.LinkPayables(ctx, deadline)
		}},
	}

	for _, phase := range phases {
		if !o.now().Before(deadline) {
			counts[phase.name] = 0
			partial = true
			continue
		}

		n, phaseErr := phase.fn(ctx)
		counts[phase.name] = n
		if phaseErr != nil {
			statsJSON, _ := json.Marshal(counts)
			if finishErr := o.store.FinishSyncRun(ctx, run.ID, models.SyncRunStatusError, phaseErr.Error(), false, statsJSON); finishErr != nil {
				config.LogError(o.logger, "orchestrator.go", "Run", "Finish sync run after phase error", run.ID, finishErr)
			}
			return nil, phaseErr
		}

		o.logger.WithFields(logrus.Fields{
			"provider_id": o.provider.ID,
			"run_id":      run.ID,
			"phase":       phase.name,
			"count":       n,
		}).Info("sync phase done")
	}

	statsJSON, _ := json.Marshal(counts)
	if err := o.store.FinishSyncRun(ctx, run.ID, models.SyncRunStatusSuccess, "", partial, statsJSON); err != nil {
		return nil, err
	}

	return &RunSummary{RunId: run.ID, Counts: counts, Partial: partial}, nil
}

func (o *Orchestrator) syncContacts(ctx context.Context, deadline time.Time, index *runIndex) (int, error) {
	total := 0

	for page := 1; page <= maxPageWalk; page++ {
		if !o.now().Before(deadline) {
			return total, nil
		}

		env, err := o.client.ListContacts(ctx, page)
		if err != nil {
			return total, err
		}
		if len(env.Items) == 0 {
			return total, nil
		}

		for _, raw := range env.Items {
			var item uolContact
			if err := json.Unmarshal(raw, &item); err != nil {
				config.LogError(o.logger, "orchestrator.go", "syncContacts", "Unmarshal contact", string(raw), err)
				continue
			}
			contact := contactFromProvider(o.provider.ID, item)
			if contact.ExternalId == "" {
				continue
			}
			if err := o.store.UpsertContact(ctx, contact); err != nil {
				return total, err
			}
			index.addContact(contact)
			total++
		}

		if !env.hasNext() {
			return total, nil
		}
	}
	return total, nil
}
