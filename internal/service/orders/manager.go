package orders

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
)

// ItemInput описывает позицию создаваемого заказа. Цена фиксируется на момент
// оформления и дальше не пересчитывается по каталогу.
type ItemInput struct {
	ProductID  string
	Qty        int32
	PriceMinor int64
}

// Manager реализует транзакционные операции над заказами: создание со
// списанием остатка, отмену с возвратом и смену статуса с обязательной
// проверкой таблицы переходов.
type Manager struct {
	orders   domain.OrderRepository
	products domain.ProductRepository
	audit    domain.AuditOutbox
	logger   *log.Entry
	metrics  *metrics.FulfillmentMetrics
}

// NewManager создаёт рабочий экземпляр менеджера заказов.
func NewManager(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	audit domain.AuditOutbox,
	logger *log.Entry,
) *Manager {
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	return &Manager{
		orders:   orders,
		products: products,
		audit:    audit,
		logger:   logger,
		metrics:  metrics.NewFulfillmentMetrics(),
	}
}

// NewManagerWithoutMetrics создаёт менеджер без метрик (для тестов).
func NewManagerWithoutMetrics(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	audit domain.AuditOutbox,
	logger *log.Entry,
) *Manager {
	m := NewManager(orders, products, audit, logger)
	m.metrics = nil
	return m
}

// CreateOrder создаёт заказ с позициями как одну транзакцию против хранилища.
// Если остатка не хватает хотя бы по одной позиции, не списывается ничего и
// заказ не сохраняется. Возвращает заказ, гидрированный позициями.
func (m *Manager) CreateOrder(userID string, items []ItemInput) (domain.Order, error) {
	start := time.Now()
	defer m.observe("create_order", start)

	now := time.Now().UTC()
	order := domain.Order{
		ID:        uuid.NewString(),
		Number:    generateOrderNumber(now),
		UserID:    userID,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, item := range items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:         uuid.NewString(),
			ProductID:  item.ProductID,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			CreatedAt:  now,
		})
		order.AmountMinor += int64(item.Qty) * item.PriceMinor
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, fmt.Errorf("validate order: %w", errors.Join(errs...))
	}

	if err := m.orders.Create(order); err != nil {
		if domain.IsInsufficientStock(err) {
			if m.metrics != nil {
				m.metrics.RecordStockRejection()
			}
			m.logger.WithFields(log.Fields{
				"user_id": userID,
				"number":  order.Number,
			}).Warn("order rejected: insufficient stock")
		}
		return domain.Order{}, err
	}

	if m.metrics != nil {
		m.metrics.RecordOrderCreated()
	}
	m.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"number":       order.Number,
		"user_id":      userID,
		"amount_minor": order.AmountMinor,
	}).Info("order created")

	m.checkLowStock(order.Items)
	m.recordAudit(userID, domain.AuditOrderCreated, order.ID, map[string]any{
		"number":       order.Number,
		"amount_minor": order.AmountMinor,
		"items":        len(order.Items),
	})

	return order, nil
}

// CancelOrder возвращает на склад ровно те количества, которые были списаны
// при создании, и переводит заказ в cancelled. Повторная отмена отклоняется
// с ErrOrderAlreadyCancelled до каких-либо изменений остатка.
func (m *Manager) CancelOrder(actorID, orderID string) (domain.Order, error) {
	start := time.Now()
	defer m.observe("cancel_order", start)

	order, err := m.orders.Cancel(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if m.metrics != nil {
		m.metrics.RecordOrderCancelled()
	}
	m.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"number":   order.Number,
	}).Info("order cancelled, stock restored")

	m.recordAudit(actorID, domain.AuditOrderCancelled, order.ID, map[string]any{
		"number": order.Number,
		"items":  len(order.Items),
	})

	return order, nil
}

// UpdateStatus переводит заказ в статус next. Таблица переходов сверяется
// обязательно: недопустимое ребро возвращает ErrInvalidStatusTransition.
func (m *Manager) UpdateStatus(actorID, orderID string, next domain.OrderStatus) (domain.Order, error) {
	start := time.Now()
	defer m.observe("update_status", start)

	order, err := m.orders.UpdateStatus(orderID, next)
	if err != nil {
		return domain.Order{}, err
	}

	m.recordAudit(actorID, domain.AuditOrderStatusSet, order.ID, map[string]any{
		"number": order.Number,
		"status": string(next),
	})

	return order, nil
}

// DeleteOrder удаляет заказ вместе с позициями. Остаток не меняется:
// удаление — операция очистки, в отличие от отмены.
func (m *Manager) DeleteOrder(actorID, orderID string) error {
	start := time.Now()
	defer m.observe("delete_order", start)

	if err := m.orders.Delete(orderID); err != nil {
		return err
	}

	m.recordAudit(actorID, domain.AuditOrderDeleted, orderID, nil)
	return nil
}

// GetOrder возвращает заказ с позициями.
func (m *Manager) GetOrder(orderID string) (domain.Order, error) {
	return m.orders.Get(orderID)
}

// ListOrders возвращает заказы пользователя.
func (m *Manager) ListOrders(userID string, limit int) ([]domain.Order, error) {
	return m.orders.ListByUser(userID, limit)
}

// checkLowStock логирует товары, чей остаток после списания опустился до порога.
func (m *Manager) checkLowStock(items []domain.OrderItem) {
	for _, item := range items {
		product, err := m.products.Get(item.ProductID)
		if err != nil {
			continue
		}
		if product.IsLowStock() {
			if m.metrics != nil {
				m.metrics.RecordLowStockWarning()
			}
			m.logger.WithFields(log.Fields{
				"product_id": product.ID,
				"stock":      product.Stock,
				"threshold":  product.LowStockThreshold,
			}).Warn("product stock is low")
		}
	}
}

func (m *Manager) recordAudit(actorID, action, entityID string, payload map[string]any) {
	if m.audit == nil {
		return
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			m.logger.WithError(err).Warn("failed to marshal audit payload")
			body = nil
		}
	}

	if _, err := m.audit.Enqueue(domain.AuditRecord{
		ActorID:    actorID,
		Action:     action,
		EntityType: domain.AuditEntityOrder,
		EntityID:   entityID,
		Payload:    body,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		m.logger.WithError(err).WithField("action", action).Warn("failed to enqueue audit record")
		return
	}

	if m.metrics != nil {
		m.metrics.RecordAuditRecord()
	}
}

func (m *Manager) observe(op string, start time.Time) {
	if m.metrics != nil {
		m.metrics.RecordOpDuration(op, time.Since(start))
	}
}

// generateOrderNumber собирает номер заказа из метки времени и случайного
// суффикса. Номер не последовательный; коллизии пренебрежимо маловероятны,
// но не исключены — уникальность страхует ограничение в хранилище.
func generateOrderNumber(now time.Time) string {
	suffix := make([]byte, 2)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), hex.EncodeToString(suffix))
}
