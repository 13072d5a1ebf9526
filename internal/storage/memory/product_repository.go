package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// ProductRepository — in-memory реализация каталога и Stock Ledger для
// локальной разработки и тестов. Возвращается конкретный тип: репозиториям
// заказов и закупок нужны его пакетные примитивы для атомарных мутаций.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает пустой in-memory каталог.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		items: make(map[string]domain.Product),
	}
}

// Create сохраняет новый товар каталога.
func (r *ProductRepository) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *ProductRepository) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// Decrement условно уменьшает остаток; при нехватке возвращает ErrInsufficientStock.
func (r *ProductRepository) Decrement(productID string, qty int32) error {
	return r.DecrementMany([]domain.OrderItem{{ProductID: productID, Qty: qty}})
}

// Increment безусловно увеличивает остаток.
func (r *ProductRepository) Increment(productID string, qty int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.incrementLocked(productID, qty)
}

// DecrementMany списывает остаток по всем позициям атомарно: сначала проверяет
// каждую позицию, затем применяет изменения. При нехватке остатка хотя бы по
// одной позиции не меняется ничего.
func (r *ProductRepository) DecrementMany(items []domain.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		product, ok := r.items[item.ProductID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if product.Stock < item.Qty {
			return domain.ErrInsufficientStock
		}
	}

	now := time.Now().UTC()
	for _, item := range items {
		product := r.items[item.ProductID]
		product.Stock -= item.Qty
		product.UpdatedAt = now
		r.items[item.ProductID] = product
	}

	return nil
}

// IncrementMany возвращает остаток по всем позициям под одной блокировкой.
func (r *ProductRepository) IncrementMany(items []domain.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if err := r.incrementLocked(item.ProductID, item.Qty); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProductRepository) incrementLocked(productID string, qty int32) error {
	product, ok := r.items[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Stock += qty
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return nil
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
