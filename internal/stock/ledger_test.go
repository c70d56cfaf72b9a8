package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBalance(t *testing.T) {
	movements := []Movement{
		{Direction: DirectionEntry, Quantity: dec("100")},
		{Direction: DirectionExit, Quantity: dec("30")},
		{Direction: DirectionEntry, Quantity: dec("2.5")},
		{Direction: DirectionExit, Quantity: dec("0.5")},
	}
	if got := Balance(movements); !got.Equal(dec("72")) {
		t.Fatalf("expected balance 72, got %s", got)
	}
	if !Balance(nil).IsZero() {
		t.Fatal("empty ledger must balance to zero")
	}
}

func TestCheckConservation(t *testing.T) {
	policy := Policy{ControlActive: true, BlockOnShortage: true}
	balance := dec("50")
	reserved := dec("20")
	held := dec("5")

	res := Check(balance, reserved, held, dec("10"), policy)
	if !res.Available.Equal(dec("35")) {
		t.Fatalf("expected available 35, got %s", res.Available)
	}
	if !res.Allowed || res.Shortfall.Sign() != 0 {
		t.Fatalf("expected allowed with no shortfall, got %+v", res)
	}

	// An extra entry of +N raises availability by N.
	withEntry := Check(balance.Add(dec("7")), reserved, held, dec("10"), policy)
	if !withEntry.Available.Equal(dec("42")) {
		t.Fatalf("expected available 42, got %s", withEntry.Available)
	}

	// A backlog reservation of +N for another order lowers it by N.
	withBacklog := Check(balance, reserved.Add(dec("7")), held, dec("10"), policy)
	if !withBacklog.Available.Equal(dec("28")) {
		t.Fatalf("expected available 28, got %s", withBacklog.Available)
	}
}

func TestCheckBlocksOnShortage(t *testing.T) {
	res := Check(dec("10"), dec("4"), decimal.Zero, dec("8"), Policy{ControlActive: true, BlockOnShortage: true})
	if res.Allowed {
		t.Fatal("expected the request to be blocked")
	}
	if !res.Shortfall.Equal(dec("2")) {
		t.Fatalf("expected shortfall 2, got %s", res.Shortfall)
	}
	if res.Reason == "" {
		t.Fatal("expected a shortfall reason")
	}
}

func TestCheckWarnsWhenNotBlocking(t *testing.T) {
	res := Check(dec("10"), dec("4"), decimal.Zero, dec("8"), Policy{ControlActive: true, BlockOnShortage: false})
	if !res.Allowed {
		t.Fatal("expected the request to pass with a warning")
	}
	if !res.Shortfall.Equal(dec("2")) {
		t.Fatalf("shortfall must still be surfaced, got %s", res.Shortfall)
	}
}

func TestCheckInactiveControlAlwaysAllows(t *testing.T) {
	res := Check(dec("0"), dec("100"), decimal.Zero, dec("50"), Policy{ControlActive: false, BlockOnShortage: true})
	if !res.Allowed {
		t.Fatal("inactive control must always allow")
	}
	if res.Shortfall.Sign() != 0 {
		t.Fatalf("inactive control must not report a shortfall, got %s", res.Shortfall)
	}
}

func TestCheckHeldQuantityDoesNotCountAgainstItself(t *testing.T) {
	// The edited line already reserves 10; raising it to 12 only needs the
	// delta to fit.
	res := Check(dec("12"), dec("10"), dec("10"), dec("12"), Policy{ControlActive: true, BlockOnShortage: true})
	if !res.Allowed {
		t.Fatalf("expected edit within balance to be allowed: %+v", res)
	}
	if !res.Available.Equal(dec("12")) {
		t.Fatalf("expected available 12, got %s", res.Available)
	}
}

func TestBalancePanicsOnNegativeQuantity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for negative movement quantity")
		}
	}()
	Balance([]Movement{{Direction: DirectionEntry, Quantity: dec("-1")}})
}

type fakeMovements struct {
	byProduct map[uuid.UUID][]Movement
}

func (f fakeMovements) ListMovementsByProduct(_ context.Context, id uuid.UUID) ([]Movement, error) {
	return f.byProduct[id], nil
}

type fakeBacklog struct {
	byProduct map[uuid.UUID]decimal.Decimal
}

func (f fakeBacklog) ReservedQuantity(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	if q, ok := f.byProduct[id]; ok {
		return q, nil
	}
	return decimal.Zero, nil
}

func TestServiceCheckAvailability(t *testing.T) {
	productID := uuid.New()
	svc := &Service{
		Movements: fakeMovements{byProduct: map[uuid.UUID][]Movement{
			productID: {
				{ProductID: productID, Direction: DirectionEntry, Quantity: dec("40")},
				{ProductID: productID, Direction: DirectionExit, Quantity: dec("15")},
			},
		}},
		Backlog: fakeBacklog{byProduct: map[uuid.UUID]decimal.Decimal{
			productID: dec("10"),
		}},
		Policy: Policy{ControlActive: true, BlockOnShortage: true},
	}

	res, err := svc.CheckAvailability(context.Background(), productID, dec("15"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.True(t, res.Available.Equal(dec("15")))

	res, err = svc.CheckAvailability(context.Background(), productID, dec("16"), decimal.Zero)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.True(t, res.Shortfall.Equal(dec("1")))
}

func TestServiceNotConfigured(t *testing.T) {
	var svc *Service
	_, err := svc.CheckAvailability(context.Background(), uuid.New(), dec("1"), decimal.Zero)
	require.Error(t, err)
}
