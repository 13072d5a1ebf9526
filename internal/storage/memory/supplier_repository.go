package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// SupplierRepository — in-memory реализация хранилища поставщиков.
type SupplierRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Supplier
}

// NewSupplierRepository возвращает пустой in-memory справочник поставщиков.
func NewSupplierRepository() *SupplierRepository {
	return &SupplierRepository{
		items: make(map[string]domain.Supplier),
	}
}

// Create сохраняет нового поставщика.
func (r *SupplierRepository) Create(supplier domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[supplier.ID] = supplier
	return nil
}

// Get возвращает поставщика или ErrSupplierNotFound.
func (r *SupplierRepository) Get(id string) (domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	supplier, ok := r.items[id]
	if !ok {
		return domain.Supplier{}, domain.ErrSupplierNotFound
	}
	return supplier, nil
}

// IncrementOrders увеличивает счётчик отправленных поставщику заявок.
func (r *SupplierRepository) IncrementOrders(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	supplier, ok := r.items[id]
	if !ok {
		return domain.ErrSupplierNotFound
	}
	supplier.OrdersCount++
	supplier.UpdatedAt = time.Now().UTC()
	r.items[id] = supplier
	return nil
}

var _ domain.SupplierRepository = (*SupplierRepository)(nil)
