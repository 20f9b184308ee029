package uolsync

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ReconciliationMatcher links unpaid purchase invoices to bank outflows in
// three ordered passes, and sales invoices to the inbound receivables feed by
// invoice number. Manually settled invoices never enter any pass; the store
// query excludes them.
type ReconciliationMatcher struct {
	provider *models.ProviderConfig
	client   *Client
	store    Store
	logger   *logrus.Logger
	now      func() time.Time

	// dateTolerance bounds the fuzzy pass: a movement only matches an
	// invoice when its date falls within this window around the issue date.
	dateTolerance time.Duration
}

func NewReconciliationMatcher(provider *models.ProviderConfig, client *Client, store Store, logger *logrus.Logger) *ReconciliationMatcher {
	tolDays := intFromEnv("UOL_MATCH_DATE_TOLERANCE_DAYS", 30)
	return &ReconciliationMatcher{
		provider:      provider,
		client:        client,
		store:         store,
		logger:        logger,
		now:           time.Now,
		dateTolerance: time.Duration(tolDays) * 24 * time.Hour,
	}
}

// LinkPayables matches purchase invoices against bank outflows.
// Pass 1: the movement payload echoes the settled document's number.
// Pass 2: the movement's variable symbol equals the invoice number.
// Pass 3: unique amount+currency+date match; any ambiguity leaves the
// invoice unmatched rather than guessing.
func (m *ReconciliationMatcher) LinkPayables(ctx context.Context, deadline time.Time) (int, error) {
	if !m.now().Before(deadline) {
		return 0, nil
	}

	invoices, err := m.store.ListUnpaidDocuments(ctx, m.provider.ID, models.DocumentTypePurchaseInvoice)
	if err != nil {
		return 0, err
	}
	movements, err := m.store.ListMovementsForMatching(ctx, m.provider.ID, true)
	if err != nil {
		return 0, err
	}

	matchedInvoices := make(map[int]bool)
	usedMovements := make(map[int]bool)
	linked := 0

	settle := func(invoice *models.AccountingDocument, movement *models.BankMovement) error {
		if err := m.store.SetDocumentPaidAmount(ctx, invoice.ID, movement.Amount.Abs()); err != nil {
			return err
		}
		matchedInvoices[invoice.ID] = true
		usedMovements[movement.ID] = true
		linked++
		return nil
	}

	byNumber := make(map[string]*models.AccountingDocument, len(invoices))
	for _, invoice := range invoices {
		if invoice.DocumentNumber != "" {
			byNumber[invoice.DocumentNumber] = invoice
		}
	}

	// Pass 1: explicit linked-document reference.
	for _, movement := range movements {
		ref := movementLinkedDocument(movement.RawPayload)
		if ref == "" {
			continue
		}
		invoice, ok := byNumber[ref]
		if !ok || matchedInvoices[invoice.ID] {
			continue
		}
		if err := settle(invoice, movement); err != nil {
			return linked, err
		}
	}

	// Pass 2: variable symbol equals invoice number.
	for _, movement := range movements {
		if usedMovements[movement.ID] {
			continue
		}
		symbol := strings.TrimSpace(movement.VariableSymbol)
		if symbol == "" {
			continue
		}
		invoice, ok := byNumber[symbol]
		if !ok || matchedInvoices[invoice.ID] {
			continue
		}
		if err := settle(invoice, movement); err != nil {
			return linked, err
		}
	}

	// Pass 3: fuzzy amount+date, accepted only when the pairing is unique in
	// both directions. The double loop is the expensive part, so the shared
	// deadline is re-checked before it.
	if !m.now().Before(deadline) {
		return linked, nil
	}
	candidatesByInvoice := make(map[int][]*models.BankMovement)
	candidateCountByMovement := make(map[int]int)
	for _, invoice := range invoices {
		if matchedInvoices[invoice.ID] {
			continue
		}
		for _, movement := range movements {
			if usedMovements[movement.ID] {
				continue
			}
			if m.fuzzyMatch(invoice, movement) {
				candidatesByInvoice[invoice.ID] = append(candidatesByInvoice[invoice.ID], movement)
				candidateCountByMovement[movement.ID]++
			}
		}
	}
	for _, invoice := range invoices {
		candidates := candidatesByInvoice[invoice.ID]
		if len(candidates) != 1 {
			continue
		}
		movement := candidates[0]
		if candidateCountByMovement[movement.ID] != 1 {
			continue
		}
		if err := settle(invoice, movement); err != nil {
			return linked, err
		}
	}

	return linked, nil
}

func (m *ReconciliationMatcher) fuzzyMatch(invoice *models.AccountingDocument, movement *models.BankMovement) bool {
	if invoice.IssueDate == nil || movement.MovementDate == nil {
		return false
	}
	if !invoice.Amount.Abs().Equal(movement.Amount.Abs()) {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(invoice.Currency), strings.TrimSpace(movement.Currency)) {
		return false
	}
	gap := movement.MovementDate.Sub(*invoice.IssueDate)
	if gap < 0 {
		gap = -gap
	}
	return gap <= m.dateTolerance
}

// SyncReceivables settles sales invoices against the inbound receivables
// feed by invoice number only; the feed already carries the public
// identifier, so no fuzzy pass is needed. Fetch failure behavior is
// policy-driven: abort the run like sibling phases, or tolerate and move on.
func (m *ReconciliationMatcher) SyncReceivables(ctx context.Context, deadline time.Time) (int, error) {
	total := 0

	for page := 1; page <= maxPageWalk; page++ {
		if !m.now().Before(deadline) {
			return total, nil
		}

		env, err := m.client.ListReceivables(ctx, page)
		if err != nil {
			if config.ReceivablesFailurePolicy() == config.ReceivablesPolicyTolerate {
				config.LogError(m.logger, "reconcile.go", "SyncReceivables", "Receivables fetch tolerated", m.provider.ID, err)
				return total, nil
			}
			return total, err
		}
		if len(env.Items) == 0 {
			return total, nil
		}

		for _, raw := range env.Items {
			var receivable uolReceivable
			if err := json.Unmarshal(raw, &receivable); err != nil {
				config.LogError(m.logger, "reconcile.go", "SyncReceivables", "Unmarshal receivable", string(raw), err)
				continue
			}
			number := strings.TrimSpace(receivable.InvoiceNumber)
			if number == "" {
				continue
			}

			invoice, err := m.store.FindDocumentByNumber(ctx, m.provider.ID, models.DocumentTypeSalesInvoice, number)
			if err != nil {
				return total, err
			}
			if invoice == nil || invoice.ManuallyPaid {
				continue
			}

			amount := decimalFromNumber(receivable.Amount).Abs()
			if amount.Equal(decimal.Zero) {
				continue
			}
			if err := m.store.SetDocumentPaidAmount(ctx, invoice.ID, amount); err != nil {
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

func movementLinkedDocument(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var probe struct {
		LinkedDocumentNumber string `json:"linked_document_number"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.LinkedDocumentNumber)
}
