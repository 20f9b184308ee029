package uolsync

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/models"
	"github.com/shopspring/decimal"
)

// Store is the persistence surface the sync phases write through. It is
// injected into the orchestrator and every syncer at construction time so
// tests can substitute an in-memory fake.
type Store interface {
	StartSyncRun(ctx context.Context, providerId int, triggeredBy string) (*models.SyncRun, error)
	FinishSyncRun(ctx context.Context, runId int, status string, errorMessage string, partial bool, statsJSON []byte) error

	UpsertContact(ctx context.Context, contact *models.Contact) error
	GetContactByExternalId(ctx context.Context, providerId int, externalId string) (*models.Contact, error)

	UpsertDocument(ctx context.Context, doc *models.AccountingDocument) error
	ListUnpaidDocuments(ctx context.Context, providerId int, docType models.DocumentType) ([]*models.AccountingDocument, error)
	FindDocumentByNumber(ctx context.Context, providerId int, docType models.DocumentType, documentNumber string) (*models.AccountingDocument, error)
	SetDocumentPaidAmount(ctx context.Context, documentId int, paidAmount decimal.Decimal) error

	UpsertBankMovement(ctx context.Context, movement *models.BankMovement) error
	LatestMovementDate(ctx context.Context, providerId int, accountId string) (*time.Time, error)
	ListMovementsForMatching(ctx context.Context, providerId int, outflow bool) ([]*models.BankMovement, error)

	UpsertJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	DeleteStaleJournalEntries(ctx context.Context, providerId int, fiscalYear int, keepIds []string) (int64, error)
}

// DBStore backs Store with the models package (MySQL via gorm).
type DBStore struct{}

func NewDBStore() *DBStore { return &DBStore{} }

func (s *DBStore) StartSyncRun(ctx context.Context, providerId int, triggeredBy string) (*models.SyncRun, error) {
	return models.StartSyncRun(ctx, providerId, triggeredBy)
}

func (s *DBStore) FinishSyncRun(ctx context.Context, runId int, status string, errorMessage string, partial bool, statsJSON []byte) error {
	return models.FinishSyncRun(ctx, runId, status, errorMessage, partial, statsJSON)
}

func (s *DBStore) UpsertContact(ctx context.Context, contact *models.Contact) error {
	return models.UpsertContact(ctx, contact)
}

func (s *DBStore) GetContactByExternalId(ctx context.Context, providerId int, externalId string) (*models.Contact, error) {
	return models.GetContactByExternalId(ctx, providerId, externalId)
}

func (s *DBStore) UpsertDocument(ctx context.Context, doc *models.AccountingDocument) error {
	return models.UpsertAccountingDocument(ctx, doc)
}

func (s *DBStore) ListUnpaidDocuments(ctx context.Context, providerId int, docType models.DocumentType) ([]*models.AccountingDocument, error) {
	return models.ListUnpaidDocuments(ctx, providerId, docType)
}

func (s *DBStore) FindDocumentByNumber(ctx context.Context, providerId int, docType models.DocumentType, documentNumber string) (*models.AccountingDocument, error) {
	return models.FindDocumentByNumber(ctx, providerId, docType, documentNumber)
}

func (s *DBStore) SetDocumentPaidAmount(ctx context.Context, documentId int, paidAmount decimal.Decimal) error {
	return models.SetDocumentPaidAmount(ctx, documentId, paidAmount)
}

func (s *DBStore) UpsertBankMovement(ctx context.Context, movement *models.BankMovement) error {
	return models.UpsertBankMovement(ctx, movement)
}

func (s *DBStore) LatestMovementDate(ctx context.Context, providerId int, accountId string) (*time.Time, error) {
	return models.LatestMovementDate(ctx, providerId, accountId)
}

func (s *DBStore) ListMovementsForMatching(ctx context.Context, providerId int, outflow bool) ([]*models.BankMovement, error) {
	return models.ListMovementsForMatching(ctx, providerId, outflow)
}

func (s *DBStore) UpsertJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	return models.UpsertJournalEntry(ctx, entry)
}

func (s *DBStore) DeleteStaleJournalEntries(ctx context.Context, providerId int, fiscalYear int, keepIds []string) (int64, error) {
	return models.DeleteStaleJournalEntries(ctx, providerId, fiscalYear, keepIds)
}
