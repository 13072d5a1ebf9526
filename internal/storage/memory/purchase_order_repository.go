package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

type sequenceKey struct {
	requesterID string
	year        int
}

// purchaseOrderRepositoryInMemory — in-memory реализация PurchaseOrderRepository.
// Повторяет семантику PostgreSQL-версии: приёмка накапливает received_qty,
// увеличивает остаток и выводит статус из агрегата по всем строкам.
type purchaseOrderRepositoryInMemory struct {
	mu        sync.RWMutex
	items     map[string]domain.PurchaseOrder
	numbers   map[string]bool
	sequences map[sequenceKey]int
	products  *ProductRepository
	suppliers *SupplierRepository
}

// NewPurchaseOrderRepository возвращает in-memory репозиторий заявок на закупку.
func NewPurchaseOrderRepository(products *ProductRepository, suppliers *SupplierRepository) domain.PurchaseOrderRepository {
	return &purchaseOrderRepositoryInMemory{
		items:     make(map[string]domain.PurchaseOrder),
		numbers:   make(map[string]bool),
		sequences: make(map[sequenceKey]int),
		products:  products,
		suppliers: suppliers,
	}
}

// Create сохраняет draft-заявку; сумма вычисляется из строк.
func (r *purchaseOrderRepositoryInMemory) Create(po domain.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.numbers[po.Number] {
		return domain.ErrDuplicatePONumber
	}

	var total int64
	items := append([]domain.PurchaseOrderItem(nil), po.Items...)
	for i := range items {
		items[i].AmountMinor = int64(items[i].Qty) * items[i].PriceMinor
		total += items[i].AmountMinor
	}
	po.Items = items
	po.AmountMinor = total

	r.items[po.ID] = po
	r.numbers[po.Number] = true
	return nil
}

// Get возвращает заявку или ErrPurchaseOrderNotFound.
func (r *purchaseOrderRepositoryInMemory) Get(id string) (domain.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	po, ok := r.items[id]
	if !ok {
		return domain.PurchaseOrder{}, domain.ErrPurchaseOrderNotFound
	}
	return clonePO(po), nil
}

// ListBySupplier возвращает заявки поставщика, ограничивая выборку limit (если >0).
func (r *purchaseOrderRepositoryInMemory) ListBySupplier(supplierID string, limit int) ([]domain.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.PurchaseOrder, 0, len(r.items))
	for _, po := range r.items {
		if po.SupplierID != supplierID {
			continue
		}
		result = append(result, clonePO(po))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Send переводит draft-заявку в sent и инкрементирует счётчик поставщика.
func (r *purchaseOrderRepositoryInMemory) Send(id string) (domain.PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	po, ok := r.items[id]
	if !ok {
		return domain.PurchaseOrder{}, domain.ErrPurchaseOrderNotFound
	}
	if !po.Status.CanTransition(domain.POStatusSent) {
		return domain.PurchaseOrder{}, domain.ErrInvalidStatusTransition
	}

	if err := r.suppliers.IncrementOrders(po.SupplierID); err != nil {
		return domain.PurchaseOrder{}, err
	}

	po.Status = domain.POStatusSent
	po.UpdatedAt = time.Now().UTC()
	r.items[id] = po
	return clonePO(po), nil
}

// Confirm переводит sent-заявку в confirmed.
func (r *purchaseOrderRepositoryInMemory) Confirm(id string) (domain.PurchaseOrder, error) {
	return r.transition(id, domain.POStatusConfirmed)
}

// Receive применяет приёмку под одной блокировкой: две конкурирующие приёмки
// не потеряют обновления агрегата.
func (r *purchaseOrderRepositoryInMemory) Receive(id string, lines []domain.ReceiptLine) (domain.PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	po, ok := r.items[id]
	if !ok {
		return domain.PurchaseOrder{}, domain.ErrPurchaseOrderNotFound
	}
	if !po.Status.CanReceive() {
		return domain.PurchaseOrder{}, domain.ErrInvalidStatusTransition
	}

	byID := make(map[string]int, len(po.Items))
	for i, item := range po.Items {
		byID[item.ID] = i
	}

	// Проверяем строки до применения: ошибка не должна оставить частичную приёмку.
	for _, line := range lines {
		if line.Qty < 0 {
			return domain.PurchaseOrder{}, domain.ErrReceiveQtyNegative
		}
		if _, ok := byID[line.ItemID]; !ok {
			return domain.PurchaseOrder{}, domain.ErrReceiptLineUnknown
		}
	}

	items := append([]domain.PurchaseOrderItem(nil), po.Items...)
	var deliveredMinor int64
	var increments []domain.OrderItem
	for _, line := range lines {
		if line.Qty == 0 {
			continue
		}
		idx := byID[line.ItemID]
		items[idx].ReceivedQty += line.Qty
		deliveredMinor += int64(line.Qty) * items[idx].PriceMinor
		increments = append(increments, domain.OrderItem{ProductID: items[idx].ProductID, Qty: line.Qty})
	}

	if err := r.products.IncrementMany(increments); err != nil {
		return domain.PurchaseOrder{}, err
	}

	po.Items = items
	po.ReceivedAmountMinor += deliveredMinor
	po.Status = po.DeriveStatus()
	if po.Status == domain.POStatusReceived && po.ActualDate == nil {
		now := time.Now().UTC()
		po.ActualDate = &now
	}
	po.UpdatedAt = time.Now().UTC()

	r.items[id] = po
	return clonePO(po), nil
}

// Cancel отменяет заявку из любого нетерминального статуса.
func (r *purchaseOrderRepositoryInMemory) Cancel(id string) (domain.PurchaseOrder, error) {
	return r.transition(id, domain.POStatusCancelled)
}

// NextNumber атомарно выделяет следующий номер в рамках (заявитель, год).
func (r *purchaseOrderRepositoryInMemory) NextNumber(requesterID string, year int) (string, error) {
	if requesterID == "" {
		return "", fmt.Errorf("requester id is empty: %w", domain.ErrRequesterRequired)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := sequenceKey{requesterID: requesterID, year: year}
	r.sequences[key]++
	return domain.FormatPONumber(year, r.sequences[key]), nil
}

func (r *purchaseOrderRepositoryInMemory) transition(id string, next domain.PurchaseOrderStatus) (domain.PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	po, ok := r.items[id]
	if !ok {
		return domain.PurchaseOrder{}, domain.ErrPurchaseOrderNotFound
	}
	if !po.Status.CanTransition(next) {
		return domain.PurchaseOrder{}, domain.ErrInvalidStatusTransition
	}

	po.Status = next
	po.UpdatedAt = time.Now().UTC()
	r.items[id] = po
	return clonePO(po), nil
}

func clonePO(po domain.PurchaseOrder) domain.PurchaseOrder {
	po.Items = append([]domain.PurchaseOrderItem(nil), po.Items...)
	if po.ExpectedDate != nil {
		expected := *po.ExpectedDate
		po.ExpectedDate = &expected
	}
	if po.ActualDate != nil {
		actual := *po.ActualDate
		po.ActualDate = &actual
	}
	return po
}

var _ domain.PurchaseOrderRepository = (*purchaseOrderRepositoryInMemory)(nil)
