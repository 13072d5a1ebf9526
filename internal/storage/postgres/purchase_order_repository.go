package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

type purchaseOrderRepository struct {
	db *sql.DB
}

// NewPurchaseOrderRepository создаёт PostgreSQL-реализацию PurchaseOrderRepository.
func NewPurchaseOrderRepository(store *Store) domain.PurchaseOrderRepository {
	return &purchaseOrderRepository{db: store.DB()}
}

// Create сохраняет draft-заявку со строками в одной транзакции. Сумма заявки
// вычисляется из строк и фиксируется после их вставки.
func (r *purchaseOrderRepository) Create(po domain.PurchaseOrder) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchase_orders (
			id, number, supplier_id, requested_by, status, amount_minor,
			received_amount_minor, expected_date, actual_date, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		po.ID, po.Number, po.SupplierID, po.RequestedBy, string(po.Status),
		int64(0), po.ReceivedAmountMinor, po.ExpectedDate, po.ActualDate,
		po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicatePONumber
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}

	var total int64
	for _, item := range po.Items {
		lineAmount := int64(item.Qty) * item.PriceMinor
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_order_items (
				id, purchase_order_id, product_id, qty, price_minor,
				received_qty, amount_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			item.ID, po.ID, item.ProductID, item.Qty, item.PriceMinor,
			item.ReceivedQty, lineAmount, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert purchase order item: %w", err)
		}
		total += lineAmount
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE purchase_orders SET amount_minor = $2 WHERE id = $1
	`, po.ID, total); err != nil {
		return fmt.Errorf("set purchase order amount: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create purchase order: %w", err)
	}

	return nil
}

func (r *purchaseOrderRepository) Get(id string) (domain.PurchaseOrder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	po, err := r.getPO(ctx, r.db, id, false)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	items, err := r.loadItems(ctx, r.db, po.ID)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	po.Items = items

	return po, nil
}

func (r *purchaseOrderRepository) ListBySupplier(supplierID string, limit int) ([]domain.PurchaseOrder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, number, supplier_id, requested_by, status, amount_minor,
		       received_amount_minor, expected_date, actual_date, created_at, updated_at
		FROM purchase_orders
		WHERE supplier_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", supplierID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, supplierID)
	}
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.PurchaseOrder, 0)
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}

		items, err := r.loadItems(ctx, r.db, po.ID)
		if err != nil {
			return nil, err
		}
		po.Items = items
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase order rows: %w", err)
	}

	return orders, nil
}

// Send переводит draft-заявку в sent и в той же транзакции инкрементирует
// счётчик заявок поставщика.
func (r *purchaseOrderRepository) Send(id string) (domain.PurchaseOrder, error) {
	return r.withLockedPO(id, func(ctx context.Context, tx *sql.Tx, po *domain.PurchaseOrder) error {
		if !po.Status.CanTransition(domain.POStatusSent) {
			return domain.ErrInvalidStatusTransition
		}

		if err := setPOStatus(ctx, tx, po.ID, domain.POStatusSent); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE suppliers
			SET orders_count = orders_count + 1,
			    updated_at = NOW()
			WHERE id = $1
		`, po.SupplierID)
		if err != nil {
			return fmt.Errorf("increment supplier orders count: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return domain.ErrSupplierNotFound
		}

		po.Status = domain.POStatusSent
		return nil
	})
}

// Confirm переводит sent-заявку в confirmed.
func (r *purchaseOrderRepository) Confirm(id string) (domain.PurchaseOrder, error) {
	return r.withLockedPO(id, func(ctx context.Context, tx *sql.Tx, po *domain.PurchaseOrder) error {
		if !po.Status.CanTransition(domain.POStatusConfirmed) {
			return domain.ErrInvalidStatusTransition
		}
		if err := setPOStatus(ctx, tx, po.ID, domain.POStatusConfirmed); err != nil {
			return err
		}
		po.Status = domain.POStatusConfirmed
		return nil
	})
}

// Receive применяет одну приёмку: накапливает received_qty по указанным строкам,
// увеличивает остаток товаров и выводит новый статус из агрегата заказанного и
// принятого по ВСЕМ строкам заявки, а не только затронутым в этом вызове.
// Заявка блокируется FOR UPDATE на время приёмки, поэтому две конкурирующие
// приёмки не потеряют обновления агрегата.
//
// Накопленное received_qty может превысить заказанное: перепоставка не
// отсекается, решение о её обработке остаётся за вызывающей стороной.
func (r *purchaseOrderRepository) Receive(id string, lines []domain.ReceiptLine) (domain.PurchaseOrder, error) {
	return r.withLockedPO(id, func(ctx context.Context, tx *sql.Tx, po *domain.PurchaseOrder) error {
		if !po.Status.CanReceive() {
			return domain.ErrInvalidStatusTransition
		}

		items, err := r.loadItems(ctx, tx, po.ID)
		if err != nil {
			return err
		}

		byID := make(map[string]int, len(items))
		for i, item := range items {
			byID[item.ID] = i
		}

		var deliveredMinor int64
		for _, line := range lines {
			if line.Qty < 0 {
				return domain.ErrReceiveQtyNegative
			}
			idx, ok := byID[line.ItemID]
			if !ok {
				return domain.ErrReceiptLineUnknown
			}
			if line.Qty == 0 {
				continue
			}

			if _, err = tx.ExecContext(ctx, `
				UPDATE purchase_order_items
				SET received_qty = received_qty + $2
				WHERE id = $1
			`, line.ItemID, line.Qty); err != nil {
				return fmt.Errorf("accumulate received qty: %w", err)
			}

			if err = incrementStock(ctx, tx, items[idx].ProductID, line.Qty); err != nil {
				return err
			}

			items[idx].ReceivedQty += line.Qty
			deliveredMinor += int64(line.Qty) * items[idx].PriceMinor
		}

		po.Items = items
		next := po.DeriveStatus()

		var actual *time.Time
		if next == domain.POStatusReceived {
			if po.ActualDate != nil {
				actual = po.ActualDate
			} else {
				now := time.Now().UTC()
				actual = &now
			}
		}

		if _, err = tx.ExecContext(ctx, `
			UPDATE purchase_orders
			SET status = $2,
			    received_amount_minor = received_amount_minor + $3,
			    actual_date = $4,
			    updated_at = NOW()
			WHERE id = $1
		`, po.ID, string(next), deliveredMinor, actual); err != nil {
			return fmt.Errorf("update purchase order aggregate: %w", err)
		}

		po.Status = next
		po.ReceivedAmountMinor += deliveredMinor
		po.ActualDate = actual
		return nil
	})
}

// Cancel отменяет заявку из любого нетерминального статуса.
func (r *purchaseOrderRepository) Cancel(id string) (domain.PurchaseOrder, error) {
	return r.withLockedPO(id, func(ctx context.Context, tx *sql.Tx, po *domain.PurchaseOrder) error {
		if !po.Status.CanTransition(domain.POStatusCancelled) {
			return domain.ErrInvalidStatusTransition
		}
		if err := setPOStatus(ctx, tx, po.ID, domain.POStatusCancelled); err != nil {
			return err
		}
		po.Status = domain.POStatusCancelled
		return nil
	})
}

// NextNumber атомарно выделяет следующий номер в рамках (заявитель, год).
// Счётчик увеличивается одним оператором, поэтому конкурирующие вызовы не
// читают и не перезаписывают общее значение.
func (r *purchaseOrderRepository) NextNumber(requesterID string, year int) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO po_sequences (requester_id, year, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (requester_id, year)
		DO UPDATE SET value = po_sequences.value + 1
		RETURNING value
	`, requesterID, year).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("allocate po number: %w", err)
	}

	return domain.FormatPONumber(year, value), nil
}

// withLockedPO выполняет fn в транзакции с заблокированной FOR UPDATE заявкой
// и возвращает её итоговое состояние со строками.
func (r *purchaseOrderRepository) withLockedPO(
	id string,
	fn func(ctx context.Context, tx *sql.Tx, po *domain.PurchaseOrder) error,
) (domain.PurchaseOrder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	po, err := r.getPO(ctx, tx, id, true)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	if err = fn(ctx, tx, &po); err != nil {
		return domain.PurchaseOrder{}, err
	}

	if po.Items == nil {
		items, itemsErr := r.loadItems(ctx, tx, po.ID)
		if itemsErr != nil {
			err = itemsErr
			return domain.PurchaseOrder{}, err
		}
		po.Items = items
	}

	if err = tx.Commit(); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("commit purchase order tx: %w", err)
	}

	return po, nil
}

func (r *purchaseOrderRepository) getPO(ctx context.Context, q queryer, id string, forUpdate bool) (domain.PurchaseOrder, error) {
	query := `
		SELECT id, number, supplier_id, requested_by, status, amount_minor,
		       received_amount_minor, expected_date, actual_date, created_at, updated_at
		FROM purchase_orders
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	row := q.QueryRowContext(ctx, query, id)
	po, err := scanPORow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PurchaseOrder{}, domain.ErrPurchaseOrderNotFound
		}
		return domain.PurchaseOrder{}, fmt.Errorf("select purchase order: %w", err)
	}

	return po, nil
}

func (r *purchaseOrderRepository) loadItems(ctx context.Context, q queryer, poID string) ([]domain.PurchaseOrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, qty, price_minor, received_qty, amount_minor, created_at
		FROM purchase_order_items
		WHERE purchase_order_id = $1
		ORDER BY created_at ASC, id ASC
	`, poID)
	if err != nil {
		return nil, fmt.Errorf("load purchase order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.PurchaseOrderItem, 0)
	for rows.Next() {
		var item domain.PurchaseOrderItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.Qty, &item.PriceMinor,
			&item.ReceivedQty, &item.AmountMinor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase order items: %w", err)
	}

	return items, nil
}

func setPOStatus(ctx context.Context, tx *sql.Tx, id string, status domain.PurchaseOrderStatus) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, string(status)); err != nil {
		return fmt.Errorf("update purchase order status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPORow(row rowScanner) (domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	var status string
	var expected, actual sql.NullTime

	if err := row.Scan(
		&po.ID, &po.Number, &po.SupplierID, &po.RequestedBy, &status,
		&po.AmountMinor, &po.ReceivedAmountMinor, &expected, &actual,
		&po.CreatedAt, &po.UpdatedAt,
	); err != nil {
		return domain.PurchaseOrder{}, err
	}

	po.Status = domain.PurchaseOrderStatus(status)
	if expected.Valid {
		po.ExpectedDate = &expected.Time
	}
	if actual.Valid {
		po.ActualDate = &actual.Time
	}

	return po, nil
}

func scanPO(rows *sql.Rows) (domain.PurchaseOrder, error) {
	po, err := scanPORow(rows)
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("scan purchase order row: %w", err)
	}
	return po, nil
}

var _ domain.PurchaseOrderRepository = (*purchaseOrderRepository)(nil)
