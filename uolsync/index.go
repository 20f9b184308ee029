package uolsync

import "github.com/mmdatafocus/ledgermirror_backend/models"

// runIndex is the shared lookup structure built once per run and passed
// explicitly between phases. Later phases read it instead of rebuilding the
// same maps from the database.
type runIndex struct {
	contactsByExternalId map[string]*models.Contact
	bankAccounts         []uolBankAccount
	accountNumberById    map[string]string
}

func newRunIndex() *runIndex {
	return &runIndex{
		contactsByExternalId: make(map[string]*models.Contact),
		accountNumberById:    make(map[string]string),
	}
}

func (ix *runIndex) addContact(contact *models.Contact) {
	if contact == nil || contact.ExternalId == "" {
		return
	}
	ix.contactsByExternalId[contact.ExternalId] = contact
}

func (ix *runIndex) setBankAccounts(accounts []uolBankAccount) {
	ix.bankAccounts = accounts
	for _, account := range accounts {
		if id := account.ID.String(); id != "" {
			ix.accountNumberById[id] = account.AccountNumber
		}
	}
}
