package purchasing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
)

// LineInput описывает строку создаваемой заявки на закупку.
type LineInput struct {
	ProductID  string
	Qty        int32
	PriceMinor int64
}

// Lifecycle управляет жизненным циклом заявок на закупку:
// draft → sent → {confirmed, partial} → received, с отменой из любого
// нетерминального статуса. Статусы received/partial выводятся из агрегата
// принятого и заказанного, напрямую они не выставляются.
type Lifecycle struct {
	purchases domain.PurchaseOrderRepository
	suppliers domain.SupplierRepository
	audit     domain.AuditOutbox
	logger    *log.Entry
	metrics   *metrics.FulfillmentMetrics
}

// NewLifecycle создаёт рабочий экземпляр управления закупками.
func NewLifecycle(
	purchases domain.PurchaseOrderRepository,
	suppliers domain.SupplierRepository,
	audit domain.AuditOutbox,
	logger *log.Entry,
) *Lifecycle {
	if logger == nil {
		logger = log.WithField("component", "purchasing")
	}
	return &Lifecycle{
		purchases: purchases,
		suppliers: suppliers,
		audit:     audit,
		logger:    logger,
		metrics:   metrics.NewFulfillmentMetrics(),
	}
}

// NewLifecycleWithoutMetrics создаёт экземпляр без метрик (для тестов).
func NewLifecycleWithoutMetrics(
	purchases domain.PurchaseOrderRepository,
	suppliers domain.SupplierRepository,
	audit domain.AuditOutbox,
	logger *log.Entry,
) *Lifecycle {
	l := NewLifecycle(purchases, suppliers, audit, logger)
	l.metrics = nil
	return l
}

// Create создаёт draft-заявку со строками в одной транзакции. Номер заявки
// выделяется атомарным счётчиком в рамках (заявитель, текущий год).
func (l *Lifecycle) Create(supplierID, requestedBy string, items []LineInput, expectedDate *time.Time) (domain.PurchaseOrder, error) {
	start := time.Now()
	defer l.observe("create_po", start)

	if _, err := l.suppliers.Get(supplierID); err != nil {
		return domain.PurchaseOrder{}, err
	}

	now := time.Now().UTC()
	number, err := l.purchases.NextNumber(requestedBy, now.Year())
	if err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("allocate number: %w", err)
	}

	po := domain.PurchaseOrder{
		ID:           uuid.NewString(),
		Number:       number,
		SupplierID:   supplierID,
		RequestedBy:  requestedBy,
		Status:       domain.POStatusDraft,
		ExpectedDate: expectedDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, item := range items {
		po.Items = append(po.Items, domain.PurchaseOrderItem{
			ID:          uuid.NewString(),
			ProductID:   item.ProductID,
			Qty:         item.Qty,
			PriceMinor:  item.PriceMinor,
			AmountMinor: int64(item.Qty) * item.PriceMinor,
			CreatedAt:   now,
		})
		po.AmountMinor += int64(item.Qty) * item.PriceMinor
	}

	if errs := po.ValidateInvariants(); len(errs) > 0 {
		return domain.PurchaseOrder{}, fmt.Errorf("validate purchase order: %w", errors.Join(errs...))
	}

	if err := l.purchases.Create(po); err != nil {
		return domain.PurchaseOrder{}, err
	}

	if l.metrics != nil {
		l.metrics.RecordPOCreated()
	}
	l.logger.WithFields(log.Fields{
		"po_id":        po.ID,
		"number":       po.Number,
		"supplier_id":  supplierID,
		"amount_minor": po.AmountMinor,
	}).Info("purchase order created")

	l.recordAudit(requestedBy, domain.AuditPOCreated, po.ID, map[string]any{
		"number":       po.Number,
		"supplier_id":  supplierID,
		"amount_minor": po.AmountMinor,
		"items":        len(po.Items),
	})

	return po, nil
}

// Send отправляет draft-заявку поставщику; в той же транзакции увеличивается
// счётчик заявок поставщика.
func (l *Lifecycle) Send(actorID, poID string) (domain.PurchaseOrder, error) {
	start := time.Now()
	defer l.observe("send_po", start)

	po, err := l.purchases.Send(poID)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	l.recordAudit(actorID, domain.AuditPOSent, po.ID, map[string]any{"number": po.Number})
	return po, nil
}

// Confirm фиксирует подтверждение заявки поставщиком.
func (l *Lifecycle) Confirm(actorID, poID string) (domain.PurchaseOrder, error) {
	start := time.Now()
	defer l.observe("confirm_po", start)

	po, err := l.purchases.Confirm(poID)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	l.recordAudit(actorID, domain.AuditPOConfirmed, po.ID, map[string]any{"number": po.Number})
	return po, nil
}

// Receive применяет приёмку: накапливает принятое количество по строкам,
// увеличивает остаток товаров и выводит новый статус из агрегата по всем
// строкам заявки. При полном покрытии проставляется дата фактической поставки.
//
// Накопленное принятое количество может превысить заказанное: перепоставка
// не отсекается, а помечается в логе и аудите.
func (l *Lifecycle) Receive(actorID, poID string, lines []domain.ReceiptLine) (domain.PurchaseOrder, error) {
	start := time.Now()
	defer l.observe("receive_po", start)

	po, err := l.purchases.Receive(poID, lines)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	if l.metrics != nil {
		l.metrics.RecordPOReceipt()
	}

	overReceived := false
	for _, item := range po.Items {
		if item.ReceivedQty > item.Qty {
			overReceived = true
			l.logger.WithFields(log.Fields{
				"po_id":        po.ID,
				"item_id":      item.ID,
				"ordered_qty":  item.Qty,
				"received_qty": item.ReceivedQty,
			}).Warn("purchase order line over-received")
		}
	}

	l.logger.WithFields(log.Fields{
		"po_id":  po.ID,
		"number": po.Number,
		"status": string(po.Status),
	}).Info("purchase order receipt applied")

	l.recordAudit(actorID, domain.AuditPOReceived, po.ID, map[string]any{
		"number":        po.Number,
		"status":        string(po.Status),
		"lines":         len(lines),
		"over_received": overReceived,
	})

	return po, nil
}

// Cancel отменяет заявку из любого нетерминального статуса.
func (l *Lifecycle) Cancel(actorID, poID string) (domain.PurchaseOrder, error) {
	start := time.Now()
	defer l.observe("cancel_po", start)

	po, err := l.purchases.Cancel(poID)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	l.recordAudit(actorID, domain.AuditPOCancelled, po.ID, map[string]any{"number": po.Number})
	return po, nil
}

// Get возвращает заявку со строками.
func (l *Lifecycle) Get(poID string) (domain.PurchaseOrder, error) {
	return l.purchases.Get(poID)
}

// ListBySupplier возвращает заявки поставщика.
func (l *Lifecycle) ListBySupplier(supplierID string, limit int) ([]domain.PurchaseOrder, error) {
	return l.purchases.ListBySupplier(supplierID, limit)
}

func (l *Lifecycle) recordAudit(actorID, action, entityID string, payload map[string]any) {
	if l.audit == nil {
		return
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			l.logger.WithError(err).Warn("failed to marshal audit payload")
			body = nil
		}
	}

	if _, err := l.audit.Enqueue(domain.AuditRecord{
		ActorID:    actorID,
		Action:     action,
		EntityType: domain.AuditEntityPurchaseOrder,
		EntityID:   entityID,
		Payload:    body,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		l.logger.WithError(err).WithField("action", action).Warn("failed to enqueue audit record")
		return
	}

	if l.metrics != nil {
		l.metrics.RecordAuditRecord()
	}
}

func (l *Lifecycle) observe(op string, start time.Time) {
	if l.metrics != nil {
		l.metrics.RecordOpDuration(op, time.Since(start))
	}
}
