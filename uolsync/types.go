package uolsync

import (
	"bytes"
	"encoding/json"
	"strings"
)

// List endpoints wrap their items in a pagination envelope.
type listEnvelope struct {
	Items []json.RawMessage `json:"items"`
	Meta  listMeta          `json:"_meta"`
}

type listMeta struct {
	Href       string         `json:"href"`
	Pagination listPagination `json:"pagination"`
}

type listPagination struct {
	Next  string `json:"next"`
	Prev  string `json:"prev"`
	First string `json:"first"`
	Last  string `json:"last"`
}

func (e listEnvelope) hasNext() bool {
	return strings.TrimSpace(e.Meta.Pagination.Next) != "" && len(e.Items) > 0
}

// contactRef points at a counterparty record, either by id or by href.
type contactRef struct {
	ID   json.Number `json:"id"`
	Href string      `json:"href"`
}

func (r contactRef) empty() bool {
	return r.ID.String() == "" && strings.TrimSpace(r.Href) == ""
}

type uolInvoiceSummary struct {
	ID             json.Number `json:"id"`
	DocumentNumber string      `json:"document_number"`
	Href           string      `json:"href"`
}

type uolInvoiceDetail struct {
	ID             json.Number `json:"id"`
	DocumentNumber string      `json:"document_number"`
	Subtype        string      `json:"subtype"`
	TotalAmount    json.Number `json:"total_amount"`
	Vat1Amount     json.Number `json:"vat1_amount"`
	Vat2Amount     json.Number `json:"vat2_amount"`
	Vat3Amount     json.Number `json:"vat3_amount"`
	Currency       string      `json:"currency_code"`
	IssueDate      string      `json:"issue_date"`
	DueDate        string      `json:"due_date"`
	TaxDate        string      `json:"tax_date"`
	Description    string      `json:"description"`
	Status         string      `json:"status"`
	Buyer          contactRef  `json:"buyer"`
	Seller         contactRef  `json:"seller"`
}

const subtypeCorrective = "corrective"

type uolContact struct {
	ID             json.Number `json:"id"`
	Name           string      `json:"name"`
	RegistrationId string      `json:"registration_id"`
	TaxId          string      `json:"tax_id"`
	Street         string      `json:"street"`
	City           string      `json:"city"`
	Zip            string      `json:"zip"`
	BankAccount    string      `json:"bank_account"`
}

type uolBankAccount struct {
	ID            json.Number `json:"id"`
	AccountNumber string      `json:"account_number"`
	Name          string      `json:"name"`
	Currency      string      `json:"currency_code"`
}

type uolBankMovement struct {
	ID             json.Number `json:"id"`
	Date           string      `json:"date"`
	Amount         json.Number `json:"amount"`
	Currency       string      `json:"currency_code"`
	VariableSymbol string      `json:"variable_symbol"`
	Note           string      `json:"note"`

	// The provider is inconsistent about how a movement references its
	// account: sometimes a nested object, sometimes a flat id field.
	BankAccount   *contactRef `json:"bank_account"`
	BankAccountId json.Number `json:"bank_account_id"`

	// Occasionally the provider echoes the number of the document the
	// movement settled.
	LinkedDocumentNumber string `json:"linked_document_number"`
}

// accountID resolves the movement's account id, preferring the nested
// reference over the flat fallback field.
func (m uolBankMovement) accountID() string {
	if m.BankAccount != nil && m.BankAccount.ID.String() != "" {
		return m.BankAccount.ID.String()
	}
	return m.BankAccountId.String()
}

type uolJournalRecord struct {
	ID            json.Number `json:"id"`
	Date          string      `json:"date"`
	DebitAccount  AccountCode `json:"debit_account"`
	CreditAccount AccountCode `json:"credit_account"`
	Amount        json.Number `json:"amount"`
	Text          string      `json:"text"`
}

type uolReceivable struct {
	InvoiceNumber string      `json:"invoice_number"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency_code"`
	Date          string      `json:"date"`
}

// AccountCode normalizes the shapes the provider uses for a ledger account
// reference: a bare code string, a numeric code, a JSON-encoded string, or an
// object carrying the code. An unexpected shape yields an empty code, never
// an error; malformed per-record data must not kill a whole page.
type AccountCode struct {
	Code string
}

func (a *AccountCode) UnmarshalJSON(data []byte) error {
	a.Code = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		// A JSON-encoded string: the string itself holds another JSON value.
		if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "\"") {
			var inner AccountCode
			if err := json.Unmarshal([]byte(s), &inner); err == nil {
				a.Code = inner.Code
			}
			return nil
		}
		a.Code = s
	case '{':
		var obj struct {
			Code        string      `json:"code"`
			AccountCode string      `json:"account_code"`
			Number      json.Number `json:"number"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil
		}
		switch {
		case obj.Code != "":
			a.Code = obj.Code
		case obj.AccountCode != "":
			a.Code = obj.AccountCode
		default:
			a.Code = obj.Number.String()
		}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil
		}
		a.Code = n.String()
	}
	return nil
}

func (a AccountCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Code)
}
