package domain

import "time"

// OrderStatus описывает жизненный цикл клиентского заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, остаток уже списан, подтверждение не получено.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — заказ подтверждён и передан в исполнение.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен клиенту.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён, списанный остаток возвращён на склад.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded — по доставленному заказу оформлен возврат средств.
	OrderStatusRefunded OrderStatus = "refunded"
)

// OrderItem представляет одну позицию заказа.
// Позиции неизменяемы после создания заказа: цена фиксируется на момент оформления.
type OrderItem struct {
	ID        string
	ProductID string
	// Qty — количество единиц товара, списанное со склада при создании заказа.
	Qty int32
	// PriceMinor — зафиксированная цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	CreatedAt  time.Time
}

// Order агрегирует заказ и его позиции.
type Order struct {
	ID string
	// Number — человекочитаемый номер заказа (timestamp + случайный суффикс).
	Number string
	UserID string
	Status OrderStatus
	// AmountMinor — денормализованная сумма позиций: Σ(Qty × PriceMinor).
	AmountMinor int64
	Items       []OrderItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
