package domain

import "errors"

var (
	// ErrInsufficientStock возвращается, когда условное списание не может быть выполнено.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrSupplierNotFound возвращается, если поставщик не найден.
	ErrSupplierNotFound = errors.New("supplier not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists возвращается при попытке создать заказ с занятым id.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrDuplicateOrderNumber сигнализирует о нарушении уникальности номера заказа.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	// ErrOrderAlreadyCancelled защищает от повторной отмены и двойного возврата остатка.
	ErrOrderAlreadyCancelled = errors.New("order already cancelled")
	// ErrPurchaseOrderNotFound возвращается, если заявка на закупку не найдена.
	ErrPurchaseOrderNotFound = errors.New("purchase order not found")
	// ErrInvalidStatusTransition возвращается при недопустимом переходе статуса.
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	// ErrDuplicatePONumber сигнализирует о нарушении уникальности номера заявки.
	ErrDuplicatePONumber = errors.New("duplicate purchase order number")
	// ErrAuditRecordNotFound возвращается, если запись аудита не найдена в буфере.
	ErrAuditRecordNotFound = errors.New("audit record not found")

	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одной позиции.
	ErrItemsRequired = errors.New("at least one item is required")
	// Ошибка отсутствующего товара в позиции.
	ErrItemProductRequired = errors.New("item product_id is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")
	// Ошибка отсутствующего идентификатора поставщика.
	ErrSupplierRequired = errors.New("supplier_id is required")
	// Ошибка отсутствующего заявителя закупки.
	ErrRequesterRequired = errors.New("requested_by is required")
	// Ошибка отрицательного количества в строке приёмки.
	ErrReceiveQtyNegative = errors.New("receipt qty must be non-negative")
	// Ошибка ссылки приёмки на несуществующую строку заявки.
	ErrReceiptLineUnknown = errors.New("receipt line does not belong to purchase order")
)

// IsInsufficientStock проверяет, является ли ошибка нехваткой остатка.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

// IsInvalidTransition проверяет, является ли ошибка недопустимым переходом статуса.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}
