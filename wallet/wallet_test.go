package wallet

import (
	"math/rand"
	"testing"
)

func TestSplitWaterfallDrainsBalanceThenDeposit(t *testing.T) {
	b := splitWaterfall(100, 500, 400)

	if b.FromBalance != 100 {
		t.Errorf("FromBalance = %d, want 100", b.FromBalance)
	}
	if b.FromDeposit != 300 {
		t.Errorf("FromDeposit = %d, want 300", b.FromDeposit)
	}
	if b.ToNegative != 0 {
		t.Errorf("ToNegative = %d, want 0", b.ToNegative)
	}
}

func TestSplitWaterfallRecordsShortfall(t *testing.T) {
	b := splitWaterfall(50, 100, 400)

	if b.FromBalance != 50 || b.FromDeposit != 100 || b.ToNegative != 250 {
		t.Errorf("got %+v, want 50/100/250", b)
	}
}

func TestSplitWaterfallCoveredByBalance(t *testing.T) {
	b := splitWaterfall(1000, 500, 400)

	if b.FromBalance != 400 || b.FromDeposit != 0 || b.ToNegative != 0 {
		t.Errorf("got %+v, want 400/0/0", b)
	}
}

// Conservation: the split always sums to the debited amount, and no bucket
// is overdrawn.
func TestSplitWaterfallConservation(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 10000; i++ {
		balance := r.Int63n(100000)
		deposit := r.Int63n(100000)
		amount := r.Int63n(250000)

		b := splitWaterfall(balance, deposit, amount)

		if b.FromBalance+b.FromDeposit+b.ToNegative != amount {
			t.Fatalf("split of %d from (%d,%d) does not conserve: %+v", amount, balance, deposit, b)
		}
		if b.FromBalance > balance {
			t.Fatalf("balance overdrawn: %+v with balance %d", b, balance)
		}
		if b.FromDeposit > deposit {
			t.Fatalf("deposit overdrawn: %+v with deposit %d", b, deposit)
		}
		if b.FromBalance < 0 || b.FromDeposit < 0 || b.ToNegative < 0 {
			t.Fatalf("negative bucket in split: %+v", b)
		}
	}
}

func TestSplitWaterfallZeroAmount(t *testing.T) {
	b := splitWaterfall(100, 100, 0)

	if b != (Breakdown{}) {
		t.Errorf("got %+v, want zero breakdown", b)
	}
}
