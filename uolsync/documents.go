package uolsync

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/mmdatafocus/ledgermirror_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DocumentSyncer mirrors sales and purchase invoices. Listing pages only
// carry summaries, so every item costs one extra detail fetch plus, when the
// counterparty is not cached yet, one contact fetch.
type DocumentSyncer struct {
	provider *models.ProviderConfig
	client   *Client
	store    Store
	logger   *logrus.Logger
	now      func() time.Time
}

func NewDocumentSyncer(provider *models.ProviderConfig, client *Client, store Store, logger *logrus.Logger) *DocumentSyncer {
	return &DocumentSyncer{
		provider: provider,
		client:   client,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Sync walks one invoice listing until the pages run out or the shared
// deadline passes. A deadline stop returns the count accumulated so far with
// no error; the orchestrator marks the run partial.
func (s *DocumentSyncer) Sync(ctx context.Context, docType models.DocumentType, deadline time.Time, index *runIndex) (int, error) {
	total := 0

	for page := 1; page <= maxPageWalk; page++ {
		if !s.now().Before(deadline) {
			return total, nil
		}

		env, err := s.listPage(ctx, docType, page)
		if err != nil {
			return total, err
		}
		if len(env.Items) == 0 {
			return total, nil
		}

		for _, raw := range env.Items {
			var summary uolInvoiceSummary
			if err := json.Unmarshal(raw, &summary); err != nil {
				config.LogError(s.logger, "documents.go", "Sync", "Unmarshal invoice summary", string(raw), err)
				continue
			}

			if err := s.syncOne(ctx, docType, summary, index); err != nil {
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

func (s *DocumentSyncer) listPage(ctx context.Context, docType models.DocumentType, page int) (listEnvelope, error) {
	if docType == models.DocumentTypeSalesInvoice {
		return s.client.ListSalesInvoices(ctx, page)
	}
	return s.client.ListPurchaseInvoices(ctx, page)
}

func (s *DocumentSyncer) syncOne(ctx context.Context, docType models.DocumentType, summary uolInvoiceSummary, index *runIndex) error {
	href := summary.Href
	if strings.TrimSpace(href) == "" {
		href = detailPath(docType, summary.ID.String())
	}

	detail, rawDetail, err := s.client.GetInvoiceDetail(ctx, href)
	if err != nil {
		return err
	}

	// Sales invoices belong to the buyer side, purchase invoices to the
	// seller. Contact failure is tolerated: the document still lands, with
	// empty counterparty fields.
	ref := detail.Seller
	if docType == models.DocumentTypeSalesInvoice {
		ref = detail.Buyer
	}
	counterparty := s.resolveCounterparty(ctx, ref, index)

	doc := &models.AccountingDocument{
		ProviderId:     s.provider.ID,
		DocumentType:   docType,
		ExternalId:     detail.ID.String(),
		DocumentNumber: strings.TrimSpace(detail.DocumentNumber),
		Amount:         invoiceNetAmount(detail),
		Currency:       strings.TrimSpace(detail.Currency),
		IssueDate:      parseDatePtr(detail.IssueDate),
		DueDate:        parseDatePtr(detail.DueDate),
		TaxDate:        parseDatePtr(detail.TaxDate),
		Description:    strings.TrimSpace(detail.Description),
		Status:         strings.TrimSpace(detail.Status),
		RawPayload:     rawDetail,
	}
	if doc.ExternalId == "" {
		doc.ExternalId = summary.ID.String()
	}
	if counterparty != nil {
		doc.CounterpartyName = counterparty.Name
		doc.CounterpartyRegId = counterparty.RegId
		doc.CounterpartyTaxId = counterparty.TaxId
	}

	return s.store.UpsertDocument(ctx, doc)
}

func (s *DocumentSyncer) resolveCounterparty(ctx context.Context, ref contactRef, index *runIndex) *models.Contact {
	if ref.empty() {
		return nil
	}
	if extID := ref.ID.String(); extID != "" {
		if contact, ok := index.contactsByExternalId[extID]; ok {
			return contact
		}
		// Not in this run's index, but possibly stored by an earlier run.
		if contact, err := s.store.GetContactByExternalId(ctx, s.provider.ID, extID); err == nil && contact != nil {
			index.addContact(contact)
			return contact
		}
	}

	raw, err := s.client.GetContact(ctx, ref)
	if err != nil {
		config.LogError(s.logger, "documents.go", "resolveCounterparty", "Fetch contact", ref, err)
		return nil
	}

	contact := contactFromProvider(s.provider.ID, raw)
	if contact.ExternalId == "" {
		return nil
	}
	if err := s.store.UpsertContact(ctx, contact); err != nil {
		config.LogError(s.logger, "documents.go", "resolveCounterparty", "Upsert contact", contact.ExternalId, err)
		return nil
	}
	index.addContact(contact)
	return contact
}

func detailPath(docType models.DocumentType, externalId string) string {
	if docType == models.DocumentTypeSalesInvoice {
		return "/sales_invoices/" + externalId
	}
	return "/purchase_invoices/" + externalId
}

// invoiceNetAmount computes the signed net: total minus all three VAT
// buckets, negated for corrective (credit/adjustment) documents.
func invoiceNetAmount(detail uolInvoiceDetail) decimal.Decimal {
	net := decimalFromNumber(detail.TotalAmount).
		Sub(decimalFromNumber(detail.Vat1Amount)).
		Sub(decimalFromNumber(detail.Vat2Amount)).
		Sub(decimalFromNumber(detail.Vat3Amount))
	if strings.EqualFold(strings.TrimSpace(detail.Subtype), subtypeCorrective) {
		net = net.Neg()
	}
	return net
}

func contactFromProvider(providerId int, raw uolContact) *models.Contact {
	return &models.Contact{
		ProviderId:  providerId,
		ExternalId:  raw.ID.String(),
		Name:        strings.TrimSpace(raw.Name),
		RegId:       strings.TrimSpace(raw.RegistrationId),
		TaxId:       strings.TrimSpace(raw.TaxId),
		Street:      strings.TrimSpace(raw.Street),
		City:        strings.TrimSpace(raw.City),
		Zip:         strings.TrimSpace(raw.Zip),
		BankAccount: strings.TrimSpace(raw.BankAccount),
	}
}

func decimalFromNumber(num json.Number) decimal.Decimal {
	if num.String() == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(num.String()); err == nil {
		return d
	}
	return decimal.Zero
}

func parseDatePtr(value string) *time.Time {
	t, err := utils.ParseProviderDate(value)
	if err != nil || t.IsZero() {
		return nil
	}
	return &t
}
