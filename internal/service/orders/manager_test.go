package orders_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/service/orders"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

type managerFixture struct {
	manager  *orders.Manager
	products *memory.ProductRepository
	audit    domain.AuditOutbox
}

func newManagerFixture(t *testing.T) managerFixture {
	t.Helper()

	products := memory.NewProductRepository()
	require.NoError(t, products.Create(domain.Product{
		ID:                "product-1",
		Name:              "widget",
		PriceMinor:        100,
		Stock:             10,
		LowStockThreshold: 2,
	}))
	require.NoError(t, products.Create(domain.Product{
		ID:                "product-2",
		Name:              "gadget",
		PriceMinor:        250,
		Stock:             4,
		LowStockThreshold: 1,
	}))

	audit := memory.NewAuditOutboxRepository()
	repo := memory.NewOrderRepository(products)
	manager := orders.NewManagerWithoutMetrics(repo, products, audit, loggerForTests())

	return managerFixture{manager: manager, products: products, audit: audit}
}

func TestManager_CreateOrder(t *testing.T) {
	f := newManagerFixture(t)

	order, err := f.manager.CreateOrder("user-1", []orders.ItemInput{
		{ProductID: "product-1", Qty: 3, PriceMinor: 100},
		{ProductID: "product-2", Qty: 1, PriceMinor: 250},
	})
	require.NoError(t, err)

	require.NotEmpty(t, order.ID)
	require.Regexp(t, `^ORD-\d+-[0-9a-f]{4}$`, order.Number)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.Equal(t, int64(3*100+250), order.AmountMinor)
	require.Len(t, order.Items, 2)

	product, err := f.products.Get("product-1")
	require.NoError(t, err)
	require.Equal(t, int32(7), product.Stock)

	pending, err := f.audit.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, domain.AuditOrderCreated, pending[0].Action)
	require.Equal(t, order.ID, pending[0].EntityID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(pending[0].Payload, &payload))
	require.Equal(t, order.Number, payload["number"])
}

func TestManager_CreateOrderInsufficientStock(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.CreateOrder("user-1", []orders.ItemInput{
		{ProductID: "product-1", Qty: 3, PriceMinor: 100},
		{ProductID: "product-2", Qty: 40, PriceMinor: 250},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Ничего не списано и заказ не сохранён.
	product, err := f.products.Get("product-1")
	require.NoError(t, err)
	require.Equal(t, int32(10), product.Stock)

	pending, err := f.audit.PullPending(10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestManager_CreateOrderValidation(t *testing.T) {
	f := newManagerFixture(t)

	_, err := f.manager.CreateOrder("", []orders.ItemInput{
		{ProductID: "product-1", Qty: 1, PriceMinor: 100},
	})
	require.ErrorIs(t, err, domain.ErrUserRequired)

	_, err = f.manager.CreateOrder("user-1", nil)
	require.ErrorIs(t, err, domain.ErrItemsRequired)

	_, err = f.manager.CreateOrder("user-1", []orders.ItemInput{
		{ProductID: "product-1", Qty: 0, PriceMinor: 100},
	})
	require.ErrorIs(t, err, domain.ErrItemQtyInvalid)
}

func TestManager_CancelOrder(t *testing.T) {
	f := newManagerFixture(t)

	order, err := f.manager.CreateOrder("user-1", []orders.ItemInput{
		{ProductID: "product-1", Qty: 5, PriceMinor: 100},
	})
	require.NoError(t, err)

	cancelled, err := f.manager.CancelOrder("user-1", order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	product, err := f.products.Get("product-1")
	require.NoError(t, err)
	require.Equal(t, int32(10), product.Stock)

	_, err = f.manager.CancelOrder("user-1", order.ID)
	require.ErrorIs(t, err, domain.ErrOrderAlreadyCancelled)

	pending, err := f.audit.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, domain.AuditOrderCancelled, pending[1].Action)
}

func TestManager_UpdateStatus(t *testing.T) {
	f := newManagerFixture(t)

	order, err := f.manager.CreateOrder("user-1", []orders.ItemInput{
		{ProductID: "product-1", Qty: 1, PriceMinor: 100},
	})
	require.NoError(t, err)

	updated, err := f.manager.UpdateStatus("user-1", order.ID, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, updated.Status)

	_, err = f.manager.UpdateStatus("user-1", order.ID, domain.OrderStatusRefunded)
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	_, err = f.manager.UpdateStatus("user-1", "missing", domain.OrderStatusConfirmed)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestManager_DeleteOrder(t *testing.T) {
	f := newManagerFixture(t)

	order, err := f.manager.CreateOrder("user-1", []orders.ItemInput{
		{ProductID: "product-1", Qty: 2, PriceMinor: 100},
	})
	require.NoError(t, err)

	require.NoError(t, f.manager.DeleteOrder("user-1", order.ID))

	_, err = f.manager.GetOrder(order.ID)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	// Удаление не возвращает остаток.
	product, err := f.products.Get("product-1")
	require.NoError(t, err)
	require.Equal(t, int32(8), product.Stock)
}

func TestManager_ListOrders(t *testing.T) {
	f := newManagerFixture(t)

	first, err := f.manager.CreateOrder("user-1", []orders.ItemInput{
		{ProductID: "product-1", Qty: 1, PriceMinor: 100},
	})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	second, err := f.manager.CreateOrder("user-1", []orders.ItemInput{
		{ProductID: "product-1", Qty: 1, PriceMinor: 100},
	})
	require.NoError(t, err)

	listed, err := f.manager.ListOrders("user-1", 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, second.ID, listed[0].ID)
	require.Equal(t, first.ID, listed[1].ID)
}
