package domain

import (
	"errors"
	"testing"
	"time"
)

func validOrder() Order {
	now := time.Now().UTC()
	return Order{
		ID:          "order-1",
		Number:      "ORD-1756600000000-ab12",
		UserID:      "user-1",
		Status:      OrderStatusPending,
		AmountMinor: 500,
		Items: []OrderItem{
			{ID: "item-1", ProductID: "product-1", Qty: 5, PriceMinor: 100, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr error
	}{
		{
			name:   "valid order",
			mutate: func(*Order) {},
		},
		{
			name:    "missing user",
			mutate:  func(o *Order) { o.UserID = "" },
			wantErr: ErrUserRequired,
		},
		{
			name: "no items",
			mutate: func(o *Order) {
				o.Items = nil
				o.AmountMinor = 0
			},
			wantErr: ErrItemsRequired,
		},
		{
			name:    "item without product",
			mutate:  func(o *Order) { o.Items[0].ProductID = "" },
			wantErr: ErrItemProductRequired,
		},
		{
			name: "non-positive qty",
			mutate: func(o *Order) {
				o.Items[0].Qty = 0
				o.AmountMinor = 0
			},
			wantErr: ErrItemQtyInvalid,
		},
		{
			name: "negative price",
			mutate: func(o *Order) {
				o.Items[0].PriceMinor = -1
				o.AmountMinor = -5
			},
			wantErr: ErrItemPriceInvalid,
		},
		{
			name:    "amount does not match items",
			mutate:  func(o *Order) { o.AmountMinor = 499 },
			wantErr: ErrAmountMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := validOrder()
			tt.mutate(&order)

			errs := order.ValidateInvariants()
			if tt.wantErr == nil {
				if len(errs) != 0 {
					t.Fatalf("expected no violations, got %v", errs)
				}
				return
			}

			if !containsErr(errs, tt.wantErr) {
				t.Fatalf("expected %v among violations, got %v", tt.wantErr, errs)
			}
		})
	}
}

func containsErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func TestIsInsufficientStock(t *testing.T) {
	if !IsInsufficientStock(ErrInsufficientStock) {
		t.Error("expected sentinel to match")
	}
	if !IsInsufficientStock(errors.Join(ErrInsufficientStock, errors.New("context"))) {
		t.Error("expected wrapped sentinel to match")
	}
	if IsInsufficientStock(ErrProductNotFound) {
		t.Error("unrelated error must not match")
	}
	if IsInsufficientStock(nil) {
		t.Error("nil must not match")
	}
}

func TestIsInvalidTransition(t *testing.T) {
	if !IsInvalidTransition(ErrInvalidStatusTransition) {
		t.Error("expected sentinel to match")
	}
	if IsInvalidTransition(ErrOrderNotFound) {
		t.Error("unrelated error must not match")
	}
}
