package uolsync

import (
	"encoding/json"
	"testing"
)

func TestAccountCodeShapes(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		expected string
	}{
		{"bare string", `"311"`, "311"},
		{"number", `311`, "311"},
		{"decimal number", `311.1`, "311.1"},
		{"json-encoded string", `"\"311\""`, "311"},
		{"json-encoded object", `"{\"code\":\"311000\"}"`, "311000"},
		{"object with code", `{"code":"311000"}`, "311000"},
		{"object with account_code", `{"account_code":"221"}`, "221"},
		{"object with number", `{"number":521}`, "521"},
		{"code wins over account_code", `{"code":"311","account_code":"221"}`, "311"},
		{"null", `null`, ""},
		{"unexpected array", `[1,2]`, ""},
		{"empty object", `{}`, ""},
	}
	for _, tc := range cases {
		var code AccountCode
		if err := json.Unmarshal([]byte(tc.in), &code); err != nil {
			t.Fatalf("%s: unmarshal %s error: %v", tc.name, tc.in, err)
		}
		if code.Code != tc.expected {
			t.Fatalf("%s: unmarshal %s expected %q, got %q", tc.name, tc.in, tc.expected, code.Code)
		}
	}
}

func TestAccountCodeInsideJournalRecord(t *testing.T) {
	raw := `{"id":42,"debit_account":"311","credit_account":{"code":"601"},"amount":"150.50"}`
	var record uolJournalRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.Fatalf("unmarshal journal record error: %v", err)
	}
	if record.DebitAccount.Code != "311" {
		t.Fatalf("debit account expected 311, got %q", record.DebitAccount.Code)
	}
	if record.CreditAccount.Code != "601" {
		t.Fatalf("credit account expected 601, got %q", record.CreditAccount.Code)
	}
}

func TestListEnvelopeHasNext(t *testing.T) {
	var env listEnvelope
	raw := `{"items":[{"id":1}],"_meta":{"pagination":{"next":"/contacts?page=2"}}}`
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal envelope error: %v", err)
	}
	if !env.hasNext() {
		t.Fatal("expected hasNext with next link and items")
	}

	var last listEnvelope
	raw = `{"items":[{"id":1}],"_meta":{"pagination":{"next":""}}}`
	if err := json.Unmarshal([]byte(raw), &last); err != nil {
		t.Fatalf("unmarshal envelope error: %v", err)
	}
	if last.hasNext() {
		t.Fatal("expected no next on the last page")
	}

	// A next link with an empty page means the provider is confused; stop.
	var empty listEnvelope
	raw = `{"items":[],"_meta":{"pagination":{"next":"/contacts?page=3"}}}`
	if err := json.Unmarshal([]byte(raw), &empty); err != nil {
		t.Fatalf("unmarshal envelope error: %v", err)
	}
	if empty.hasNext() {
		t.Fatal("expected no next when the page carries no items")
	}
}

func TestBankMovementAccountIDFallback(t *testing.T) {
	var nested uolBankMovement
	if err := json.Unmarshal([]byte(`{"id":1,"bank_account":{"id":10},"bank_account_id":99}`), &nested); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if nested.accountID() != "10" {
		t.Fatalf("nested reference expected 10, got %q", nested.accountID())
	}

	var flat uolBankMovement
	if err := json.Unmarshal([]byte(`{"id":2,"bank_account_id":99}`), &flat); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if flat.accountID() != "99" {
		t.Fatalf("flat fallback expected 99, got %q", flat.accountID())
	}
}
