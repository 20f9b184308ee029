package uolsync

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/shopspring/decimal"
)

type finishedRun struct {
	runId        int
	status       string
	errorMessage string
	partial      bool
	statsJSON    []byte
}

type pruneCall struct {
	fiscalYear int
	keepIds    []string
}

// fakeStore is the in-memory Store used across the package tests.
type fakeStore struct {
	runs     []*models.SyncRun
	finished []finishedRun

	contacts  map[string]*models.Contact
	documents []*models.AccountingDocument
	movements []*models.BankMovement
	journal   map[string]*models.JournalEntry

	// Preset query results.
	unpaidDocs     []*models.AccountingDocument
	matchMovements []*models.BankMovement
	docsByNumber   map[string]*models.AccountingDocument
	latestByAcct   map[string]*time.Time

	paid       map[int]decimal.Decimal
	pruneCalls []pruneCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contacts:     make(map[string]*models.Contact),
		journal:      make(map[string]*models.JournalEntry),
		docsByNumber: make(map[string]*models.AccountingDocument),
		latestByAcct: make(map[string]*time.Time),
		paid:         make(map[int]decimal.Decimal),
	}
}

func (s *fakeStore) StartSyncRun(ctx context.Context, providerId int, triggeredBy string) (*models.SyncRun, error) {
	now := time.Now()
	run := &models.SyncRun{
		ID:          len(s.runs) + 1,
		ProviderId:  providerId,
		Status:      models.SyncRunStatusRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   &now,
	}
	s.runs = append(s.runs, run)
	return run, nil
}

func (s *fakeStore) FinishSyncRun(ctx context.Context, runId int, status string, errorMessage string, partial bool, statsJSON []byte) error {
	s.finished = append(s.finished, finishedRun{
		runId:        runId,
		status:       status,
		errorMessage: errorMessage,
		partial:      partial,
		statsJSON:    statsJSON,
	})
	return nil
}

func (s *fakeStore) UpsertContact(ctx context.Context, contact *models.Contact) error {
	s.contacts[contact.ExternalId] = contact
	return nil
}

func (s *fakeStore) GetContactByExternalId(ctx context.Context, providerId int, externalId string) (*models.Contact, error) {
	return s.contacts[externalId], nil
}

func (s *fakeStore) UpsertDocument(ctx context.Context, doc *models.AccountingDocument) error {
	for i, existing := range s.documents {
		if existing.DocumentType == doc.DocumentType && existing.ExternalId == doc.ExternalId {
			s.documents[i] = doc
			return nil
		}
	}
	s.documents = append(s.documents, doc)
	return nil
}

func (s *fakeStore) ListUnpaidDocuments(ctx context.Context, providerId int, docType models.DocumentType) ([]*models.AccountingDocument, error) {
	return s.unpaidDocs, nil
}

func (s *fakeStore) FindDocumentByNumber(ctx context.Context, providerId int, docType models.DocumentType, documentNumber string) (*models.AccountingDocument, error) {
	return s.docsByNumber[documentNumber], nil
}

func (s *fakeStore) SetDocumentPaidAmount(ctx context.Context, documentId int, paidAmount decimal.Decimal) error {
	s.paid[documentId] = paidAmount
	return nil
}

func (s *fakeStore) UpsertBankMovement(ctx context.Context, movement *models.BankMovement) error {
	s.movements = append(s.movements, movement)
	return nil
}

func (s *fakeStore) LatestMovementDate(ctx context.Context, providerId int, accountId string) (*time.Time, error) {
	return s.latestByAcct[accountId], nil
}

func (s *fakeStore) ListMovementsForMatching(ctx context.Context, providerId int, outflow bool) ([]*models.BankMovement, error) {
	return s.matchMovements, nil
}

func (s *fakeStore) UpsertJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	s.journal[entry.UolId] = entry
	return nil
}

func (s *fakeStore) DeleteStaleJournalEntries(ctx context.Context, providerId int, fiscalYear int, keepIds []string) (int64, error) {
	s.pruneCalls = append(s.pruneCalls, pruneCall{fiscalYear: fiscalYear, keepIds: keepIds})
	return 0, nil
}
