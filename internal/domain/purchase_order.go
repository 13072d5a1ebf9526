package domain

import (
	"fmt"
	"time"
)

// PurchaseOrderStatus описывает состояние заявки на закупку у поставщика.
type PurchaseOrderStatus string

const (
	// POStatusDraft — заявка создана, но ещё не отправлена поставщику.
	POStatusDraft PurchaseOrderStatus = "draft"
	// POStatusSent — заявка отправлена поставщику.
	POStatusSent PurchaseOrderStatus = "sent"
	// POStatusConfirmed — поставщик подтвердил заявку.
	POStatusConfirmed PurchaseOrderStatus = "confirmed"
	// POStatusPartial — часть позиций принята на склад.
	POStatusPartial PurchaseOrderStatus = "partial"
	// POStatusReceived — все позиции приняты; терминальный статус.
	POStatusReceived PurchaseOrderStatus = "received"
	// POStatusCancelled — заявка отменена; терминальный статус.
	POStatusCancelled PurchaseOrderStatus = "cancelled"
)

// IsTerminal сообщает, завершён ли жизненный цикл заявки.
func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == POStatusReceived || s == POStatusCancelled
}

// CanTransition проверяет допустимость перехода s -> target.
// Отмена разрешена из любого нетерминального статуса.
func (s PurchaseOrderStatus) CanTransition(target PurchaseOrderStatus) bool {
	if target == POStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case POStatusDraft:
		return target == POStatusSent
	case POStatusSent:
		return target == POStatusConfirmed || target == POStatusPartial || target == POStatusReceived
	case POStatusConfirmed, POStatusPartial:
		return target == POStatusPartial || target == POStatusReceived
	}
	return false
}

// CanReceive сообщает, допускается ли приёмка товара в текущем статусе.
// Приёмка возможна только после отправки поставщику; в received допускается
// дополнительная поставка (перепоставка не отсекается), отменённая заявка
// товар не принимает.
func (s PurchaseOrderStatus) CanReceive() bool {
	switch s {
	case POStatusSent, POStatusConfirmed, POStatusPartial, POStatusReceived:
		return true
	}
	return false
}

// PurchaseOrderItem представляет одну строку заявки на закупку.
type PurchaseOrderItem struct {
	ID        string
	ProductID string
	// Qty — заказанное количество.
	Qty int32
	// PriceMinor — закупочная цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// ReceivedQty — накопленное принятое количество; монотонно растёт между приёмками.
	// Превышение Qty не отсекается: перепоставка допускается и только логируется.
	ReceivedQty int32
	// AmountMinor — сумма строки: Qty × PriceMinor.
	AmountMinor int64
	CreatedAt   time.Time
}

// PurchaseOrder агрегирует заявку на закупку и её строки.
type PurchaseOrder struct {
	ID string
	// Number — номер заявки вида PO-{год}-NNN, уникальный на (заявитель, год).
	Number     string
	SupplierID string
	// RequestedBy — пользователь-заявитель; определяет scope нумерации.
	RequestedBy string
	Status      PurchaseOrderStatus
	// AmountMinor — сумма заявки, вычисленная один раз при создании.
	AmountMinor int64
	// ReceivedAmountMinor — накопленная стоимость принятых поставок.
	ReceivedAmountMinor int64
	ExpectedDate        *time.Time
	// ActualDate проставляется при переходе в received.
	ActualDate *time.Time
	Items      []PurchaseOrderItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateInvariants проверяет базовые инварианты заявки и возвращает список замечаний.
func (po *PurchaseOrder) ValidateInvariants() []error {
	var errs []error

	if po.SupplierID == "" {
		errs = append(errs, ErrSupplierRequired)
	}
	if po.RequestedBy == "" {
		errs = append(errs, ErrRequesterRequired)
	}
	if len(po.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	for _, item := range po.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}

// DeriveStatus выводит статус заявки из агрегата принятого против заказанного
// по ВСЕМ строкам. Статус received/partial не выставляется напрямую.
func (po *PurchaseOrder) DeriveStatus() PurchaseOrderStatus {
	var ordered, received int64
	for _, item := range po.Items {
		ordered += int64(item.Qty)
		received += int64(item.ReceivedQty)
	}
	if ordered > 0 && received >= ordered {
		return POStatusReceived
	}
	return POStatusPartial
}

// FormatPONumber форматирует номер заявки: PO-{год}-NNN, суффикс дополняется
// нулями до трёх знаков и растёт дальше без усечения.
func FormatPONumber(year, seq int) string {
	return fmt.Sprintf("PO-%d-%03d", year, seq)
}

// ReceiptLine описывает принятое количество по одной строке заявки.
type ReceiptLine struct {
	ItemID string
	Qty    int32
}
