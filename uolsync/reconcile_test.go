package uolsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/shopspring/decimal"
)

func testMatcher(store *fakeStore, client *Client) *ReconciliationMatcher {
	return NewReconciliationMatcher(&models.ProviderConfig{ID: 1}, client, store, config.GetLogger())
}

func unpaidInvoice(id int, number string, amount int64, issueDate time.Time) *models.AccountingDocument {
	return &models.AccountingDocument{
		ID:             id,
		ProviderId:     1,
		DocumentType:   models.DocumentTypePurchaseInvoice,
		ExternalId:     number,
		DocumentNumber: number,
		Amount:         decimal.NewFromInt(amount),
		Currency:       "CZK",
		IssueDate:      &issueDate,
	}
}

func outflowMovement(id int, amount int64, date time.Time) *models.BankMovement {
	return &models.BankMovement{
		ID:           id,
		ProviderId:   1,
		MovementId:   "m",
		MovementDate: &date,
		Amount:       decimal.NewFromInt(amount),
		Currency:     "CZK",
	}
}

func TestLinkPayablesExplicitReferenceWins(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.unpaidDocs = []*models.AccountingDocument{unpaidInvoice(1, "PF-001", 5000, day)}

	movement := outflowMovement(10, -5000, day.AddDate(0, 0, 5))
	movement.RawPayload = []byte(`{"id":10,"linked_document_number":"PF-001"}`)
	store.matchMovements = []*models.BankMovement{movement}

	linked, err := testMatcher(store, nil).LinkPayables(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("LinkPayables error: %v", err)
	}
	if linked != 1 {
		t.Fatalf("expected 1 link, got %d", linked)
	}
	if !store.paid[1].Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("paid amount expected 5000, got %s", store.paid[1])
	}
}

func TestLinkPayablesVariableSymbolMatch(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.unpaidDocs = []*models.AccountingDocument{unpaidInvoice(1, "20260042", 1200, day)}

	movement := outflowMovement(10, -1200, day.AddDate(0, 0, 3))
	movement.VariableSymbol = "20260042"
	store.matchMovements = []*models.BankMovement{movement}

	linked, err := testMatcher(store, nil).LinkPayables(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("LinkPayables error: %v", err)
	}
	if linked != 1 {
		t.Fatalf("expected 1 link, got %d", linked)
	}
}

func TestLinkPayablesFuzzyUniquePair(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.unpaidDocs = []*models.AccountingDocument{unpaidInvoice(1, "PF-002", 7500, day)}
	store.matchMovements = []*models.BankMovement{outflowMovement(10, -7500, day.AddDate(0, 0, 10))}

	linked, err := testMatcher(store, nil).LinkPayables(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("LinkPayables error: %v", err)
	}
	if linked != 1 {
		t.Fatalf("expected 1 fuzzy link, got %d", linked)
	}
	if !store.paid[1].Equal(decimal.NewFromInt(7500)) {
		t.Fatalf("paid amount expected 7500, got %s", store.paid[1])
	}
}

func TestLinkPayablesFuzzyAmbiguousMovementsSkip(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.unpaidDocs = []*models.AccountingDocument{unpaidInvoice(1, "PF-003", 7500, day)}
	store.matchMovements = []*models.BankMovement{
		outflowMovement(10, -7500, day.AddDate(0, 0, 5)),
		outflowMovement(11, -7500, day.AddDate(0, 0, 7)),
	}

	linked, err := testMatcher(store, nil).LinkPayables(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("LinkPayables error: %v", err)
	}
	if linked != 0 {
		t.Fatalf("two candidate movements must not guess; got %d links", linked)
	}
	if len(store.paid) != 0 {
		t.Fatalf("no paid amounts expected, got %v", store.paid)
	}
}

func TestLinkPayablesFuzzyAmbiguousInvoicesSkip(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.unpaidDocs = []*models.AccountingDocument{
		unpaidInvoice(1, "PF-004", 7500, day),
		unpaidInvoice(2, "PF-005", 7500, day.AddDate(0, 0, 1)),
	}
	store.matchMovements = []*models.BankMovement{outflowMovement(10, -7500, day.AddDate(0, 0, 5))}

	linked, err := testMatcher(store, nil).LinkPayables(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("LinkPayables error: %v", err)
	}
	if linked != 0 {
		t.Fatalf("one movement shared by two invoices must not guess; got %d links", linked)
	}
}

func TestLinkPayablesFuzzyRespectsDateTolerance(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.unpaidDocs = []*models.AccountingDocument{unpaidInvoice(1, "PF-006", 7500, day)}
	store.matchMovements = []*models.BankMovement{outflowMovement(10, -7500, day.AddDate(0, 0, 45))}

	linked, err := testMatcher(store, nil).LinkPayables(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("LinkPayables error: %v", err)
	}
	if linked != 0 {
		t.Fatalf("a movement 45 days out is beyond the default tolerance; got %d links", linked)
	}
}

func TestLinkPayablesStopsAtDeadline(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.unpaidDocs = []*models.AccountingDocument{unpaidInvoice(1, "PF-007", 7500, day)}
	store.matchMovements = []*models.BankMovement{outflowMovement(10, -7500, day.AddDate(0, 0, 10))}

	linked, err := testMatcher(store, nil).LinkPayables(context.Background(), time.Now().Add(-time.Second))
	if err != nil {
		t.Fatalf("deadline stop must not error: %v", err)
	}
	if linked != 0 || len(store.paid) != 0 {
		t.Fatalf("expected no matching past the deadline, got linked=%d paid=%v", linked, store.paid)
	}
}

func TestSyncReceivablesSettlesByInvoiceNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"invoice_number":"FV-001","amount":"500","currency_code":"CZK"},
			{"invoice_number":"FV-MISSING","amount":"100","currency_code":"CZK"},
			{"invoice_number":"FV-MANUAL","amount":"200","currency_code":"CZK"}
		]}`))
	}))
	defer srv.Close()

	store := newFakeStore()
	store.docsByNumber["FV-001"] = &models.AccountingDocument{ID: 1, DocumentNumber: "FV-001"}
	store.docsByNumber["FV-MANUAL"] = &models.AccountingDocument{ID: 2, DocumentNumber: "FV-MANUAL", ManuallyPaid: true}

	provider := testProvider(srv.URL)
	matcher := NewReconciliationMatcher(provider, NewClient(provider), store, config.GetLogger())

	count, err := matcher.SyncReceivables(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SyncReceivables error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 settlement, got %d", count)
	}
	if !store.paid[1].Equal(decimal.NewFromInt(500)) {
		t.Fatalf("paid amount expected 500, got %s", store.paid[1])
	}
	if _, touched := store.paid[2]; touched {
		t.Fatal("manually settled invoice must not be touched")
	}
}

func TestSyncReceivablesFetchFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	provider := testProvider(srv.URL)
	matcher := NewReconciliationMatcher(provider, NewClient(provider), newFakeStore(), config.GetLogger())

	if _, err := matcher.SyncReceivables(context.Background(), time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected fetch failure to abort under the default policy")
	}
}

func TestSyncReceivablesFetchFailureTolerated(t *testing.T) {
	t.Setenv("RECEIVABLES_FAILURE_POLICY", "tolerate")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	provider := testProvider(srv.URL)
	matcher := NewReconciliationMatcher(provider, NewClient(provider), newFakeStore(), config.GetLogger())

	count, err := matcher.SyncReceivables(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("tolerate policy must swallow the fetch failure, got: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 settlements, got %d", count)
	}
}
