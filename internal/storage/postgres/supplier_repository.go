package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

type supplierRepository struct {
	db *sql.DB
}

// NewSupplierRepository создаёт PostgreSQL-реализацию SupplierRepository.
func NewSupplierRepository(store *Store) domain.SupplierRepository {
	return &supplierRepository{db: store.DB()}
}

func (r *supplierRepository) Create(supplier domain.Supplier) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, orders_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`,
		supplier.ID, supplier.Name, supplier.OrdersCount,
		supplier.CreatedAt, supplier.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}

	return nil
}

func (r *supplierRepository) Get(id string) (domain.Supplier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var supplier domain.Supplier
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, orders_count, created_at, updated_at
		FROM suppliers
		WHERE id = $1
	`, id).Scan(
		&supplier.ID, &supplier.Name, &supplier.OrdersCount,
		&supplier.CreatedAt, &supplier.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Supplier{}, domain.ErrSupplierNotFound
		}
		return domain.Supplier{}, fmt.Errorf("select supplier: %w", err)
	}

	return supplier, nil
}

var _ domain.SupplierRepository = (*supplierRepository)(nil)
