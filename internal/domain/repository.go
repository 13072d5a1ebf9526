package domain

// ProductRepository объединяет каталожные операции и примитивы Stock Ledger.
// Остаток товара меняется ТОЛЬКО через Decrement/Increment: никакой компонент
// не читает и не перезаписывает stock напрямую.
type ProductRepository interface {
	// Create сохраняет новый товар каталога.
	Create(product Product) error
	// Get возвращает товар или ErrProductNotFound.
	Get(id string) (Product, error)
	// Decrement условно уменьшает остаток на qty одним атомарным оператором:
	// при нехватке остатка возвращает ErrInsufficientStock, ничего не меняя.
	Decrement(productID string, qty int32) error
	// Increment безусловно увеличивает остаток на qty (отмена заказа, приёмка закупки).
	Increment(productID string, qty int32) error
}

// SupplierRepository описывает требования к хранилищу поставщиков.
type SupplierRepository interface {
	Create(supplier Supplier) error
	Get(id string) (Supplier, error)
}

// OrderRepository описывает требования к хранилищу заказов.
// Мультишаговые операции атомарны: либо применяются все записи, либо ни одна.
type OrderRepository interface {
	// Create сохраняет заказ с позициями и списывает остаток по каждой позиции
	// в одной транзакции. Любая нехватка остатка откатывает транзакцию целиком.
	Create(order Order) error
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(id string) (Order, error)
	// ListByUser возвращает заказы пользователя с опциональным лимитом.
	ListByUser(userID string, limit int) ([]Order, error)
	// Cancel возвращает списанный остаток по всем позициям и ставит статус cancelled.
	// Повторная отмена отклоняется с ErrOrderAlreadyCancelled.
	Cancel(id string) (Order, error)
	// UpdateStatus переводит заказ в статус next, сверяясь с таблицей переходов.
	UpdateStatus(id string, next OrderStatus) (Order, error)
	// Delete удаляет позиции и сам заказ, не трогая остаток (в отличие от Cancel).
	Delete(id string) error
}

// PurchaseOrderRepository описывает требования к хранилищу заявок на закупку.
type PurchaseOrderRepository interface {
	// Create сохраняет draft-заявку со строками в одной транзакции.
	Create(po PurchaseOrder) error
	// Get возвращает заявку со строками или ErrPurchaseOrderNotFound.
	Get(id string) (PurchaseOrder, error)
	// ListBySupplier возвращает заявки поставщика с опциональным лимитом.
	ListBySupplier(supplierID string, limit int) ([]PurchaseOrder, error)
	// Send переводит draft-заявку в sent и инкрементирует счётчик заявок поставщика.
	Send(id string) (PurchaseOrder, error)
	// Confirm переводит sent-заявку в confirmed.
	Confirm(id string) (PurchaseOrder, error)
	// Receive применяет приёмку: накапливает received_qty по строкам, увеличивает
	// остаток товаров и выводит новый статус из агрегата по всем строкам заявки.
	Receive(id string, lines []ReceiptLine) (PurchaseOrder, error)
	// Cancel отменяет заявку из любого нетерминального статуса.
	Cancel(id string) (PurchaseOrder, error)
	// NextNumber атомарно выделяет следующий номер вида PO-{year}-NNN
	// в рамках (заявитель, год).
	NextNumber(requesterID string, year int) (string, error)
}
