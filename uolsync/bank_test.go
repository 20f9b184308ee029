package uolsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmdatafocus/ledgermirror_backend/config"
)

func TestBankSyncFiltersByAccountLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bank_movements" {
			http.NotFound(w, r)
			return
		}
		// Mixed account reference shapes, plus a movement of another account.
		w.Write([]byte(`{"items":[
			{"id":101,"date":"2026-02-01","amount":"-1500.00","currency_code":"CZK","variable_symbol":"20260001","bank_account":{"id":10}},
			{"id":102,"date":"2026-02-02","amount":"2000.00","currency_code":"CZK","bank_account_id":10},
			{"id":103,"date":"2026-02-03","amount":"-99.00","currency_code":"CZK","bank_account":{"id":99}}
		]}`))
	}))
	defer srv.Close()

	provider := testProvider(srv.URL)
	store := newFakeStore()
	syncer := NewBankMovementSyncer(provider, NewClient(provider), store, config.GetLogger())

	index := newRunIndex()
	index.setBankAccounts([]uolBankAccount{{ID: json.Number("10"), AccountNumber: "123456789/0100"}})

	count, err := syncer.Sync(context.Background(), time.Now().Add(time.Hour), index)
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 movements for account 10, got %d", count)
	}
	for _, movement := range store.movements {
		if movement.AccountId != "10" {
			t.Fatalf("stored movement for wrong account: %q", movement.AccountId)
		}
	}
	if store.movements[0].MovementId != "101" || store.movements[1].MovementId != "102" {
		t.Fatalf("unexpected movement ids: %q, %q", store.movements[0].MovementId, store.movements[1].MovementId)
	}
	if store.movements[0].VariableSymbol != "20260001" {
		t.Fatalf("variable symbol expected 20260001, got %q", store.movements[0].VariableSymbol)
	}
}

func TestBankSyncSendsWatermarkDate(t *testing.T) {
	var gotDateFrom []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bank_movements" {
			http.NotFound(w, r)
			return
		}
		gotDateFrom = append(gotDateFrom, r.URL.Query().Get("date_from"))
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	provider := testProvider(srv.URL)
	store := newFakeStore()
	latest := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	store.latestByAcct["10"] = &latest

	syncer := NewBankMovementSyncer(provider, NewClient(provider), store, config.GetLogger())
	index := newRunIndex()
	index.setBankAccounts([]uolBankAccount{{ID: json.Number("10")}})

	if _, err := syncer.Sync(context.Background(), time.Now().Add(time.Hour), index); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if len(gotDateFrom) != 1 || gotDateFrom[0] != "2026-01-15" {
		t.Fatalf("expected date_from 2026-01-15, got %v", gotDateFrom)
	}
}

func TestBankSyncFetchesAccountsWhenIndexEmpty(t *testing.T) {
	accountHits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/bank_accounts", func(w http.ResponseWriter, r *http.Request) {
		accountHits++
		w.Write([]byte(`{"items":[{"id":10,"account_number":"123456789/0100","currency_code":"CZK"}]}`))
	})
	mux.HandleFunc("/bank_movements", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	provider := testProvider(srv.URL)
	store := newFakeStore()
	syncer := NewBankMovementSyncer(provider, NewClient(provider), store, config.GetLogger())

	index := newRunIndex()
	if _, err := syncer.Sync(context.Background(), time.Now().Add(time.Hour), index); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if accountHits != 1 {
		t.Fatalf("expected one bank account listing call, got %d", accountHits)
	}
	if len(index.bankAccounts) != 1 {
		t.Fatalf("fetched accounts must land in the run index, got %d", len(index.bankAccounts))
	}
	if index.accountNumberById["10"] != "123456789/0100" {
		t.Fatalf("account number lookup missing, got %q", index.accountNumberById["10"])
	}
}
