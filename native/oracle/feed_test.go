package oracle

import (
	"errors"
	"math/big"
	"testing"

	"liquidroute/storage"
)

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func newTestFeed(t *testing.T) (*Feed, [20]byte, [20]byte) {
	t.Helper()
	admin := addr(1)
	updater := addr(2)
	feed := NewFeed(storage.NewState(storage.NewMemDB()), admin)
	if err := feed.SetUpdater(admin, updater); err != nil {
		t.Fatalf("setUpdater: %v", err)
	}
	return feed, admin, updater
}

func TestDefaultsBeforeFirstUpdate(t *testing.T) {
	feed := NewFeed(storage.NewState(storage.NewMemDB()), addr(1))
	price, err := feed.FairPrice()
	if err != nil {
		t.Fatalf("fairPrice: %v", err)
	}
	if price.Cmp(big.NewInt(PriceScale)) != 0 {
		t.Fatalf("expected par price, got %s", price)
	}
	risk, err := feed.RiskBps()
	if err != nil {
		t.Fatalf("riskBps: %v", err)
	}
	if risk != 1000 {
		t.Fatalf("expected default risk 1000, got %d", risk)
	}
}

func TestUpdateRequiresUpdater(t *testing.T) {
	feed, admin, updater := newTestFeed(t)
	if err := feed.Update(admin, big.NewInt(12_000_000), 700); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := feed.Update(updater, big.NewInt(12_000_000), 700); err != nil {
		t.Fatalf("update: %v", err)
	}
	price, _ := feed.FairPrice()
	if price.Cmp(big.NewInt(12_000_000)) != 0 {
		t.Fatalf("expected 12000000, got %s", price)
	}
	risk, _ := feed.RiskBps()
	if risk != 700 {
		t.Fatalf("expected risk 700, got %d", risk)
	}
}

func TestUpdateValidatesInputs(t *testing.T) {
	feed, _, updater := newTestFeed(t)
	if err := feed.Update(updater, big.NewInt(0), 100); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if err := feed.Update(updater, nil, 100); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for nil, got %v", err)
	}
	if err := feed.Update(updater, big.NewInt(PriceScale), MaxRiskBps+1); !errors.Is(err, ErrInvalidRisk) {
		t.Fatalf("expected ErrInvalidRisk, got %v", err)
	}
}

func TestSetUpdaterRequiresAdmin(t *testing.T) {
	feed, _, updater := newTestFeed(t)
	if err := feed.SetUpdater(updater, addr(9)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
