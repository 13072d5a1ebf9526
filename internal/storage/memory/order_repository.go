package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository, повторяющая
// транзакционную семантику PostgreSQL-версии: создание и отмена заказа меняют
// остаток и сам заказ как одно целое.
type orderRepositoryInMemory struct {
	mu       sync.RWMutex
	items    map[string]domain.Order
	numbers  map[string]bool
	products *ProductRepository
}

// NewOrderRepository возвращает in-memory репозиторий заказов поверх
// переданного каталога товаров.
func NewOrderRepository(products *ProductRepository) domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:    make(map[string]domain.Order),
		numbers:  make(map[string]bool),
		products: products,
	}
}

// Create сохраняет заказ и списывает остаток по всем позициям атомарно.
// Конфликты id и номера отклоняются до каких-либо изменений остатка.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	if r.numbers[order.Number] {
		return domain.ErrDuplicateOrderNumber
	}

	if err := r.products.DecrementMany(order.Items); err != nil {
		return err
	}

	// Сохраняем копию позиций, чтобы избежать мутаций извне.
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	r.items[order.ID] = order
	r.numbers[order.Number] = true
	return nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListByUser возвращает заказы пользователя, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByUser(userID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.UserID != userID {
			continue
		}
		result = append(result, order)
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

// Cancel возвращает списанный остаток и переводит заказ в cancelled.
// Повторная отмена отклоняется до каких-либо изменений остатка.
func (r *orderRepositoryInMemory) Cancel(id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	if order.Status == domain.OrderStatusCancelled {
		return domain.Order{}, domain.ErrOrderAlreadyCancelled
	}
	if !order.Status.CanTransition(domain.OrderStatusCancelled) {
		return domain.Order{}, domain.ErrInvalidStatusTransition
	}

	if err := r.products.IncrementMany(order.Items); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now().UTC()
	r.items[id] = order
	return order, nil
}

// UpdateStatus переводит заказ в статус next, сверяясь с таблицей переходов.
func (r *orderRepositoryInMemory) UpdateStatus(id string, next domain.OrderStatus) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	if !order.Status.CanTransition(next) {
		return domain.Order{}, domain.ErrInvalidStatusTransition
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	r.items[id] = order
	return order, nil
}

// Delete удаляет заказ вместе с позициями, не трогая остаток.
func (r *orderRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.numbers, order.Number)
	delete(r.items, id)
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
