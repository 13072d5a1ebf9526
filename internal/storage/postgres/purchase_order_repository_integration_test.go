package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

func seedSupplierForIntegrationTest(t *testing.T, store *Store, id string) {
	t.Helper()

	suppliers := NewSupplierRepository(store)
	require.NoError(t, suppliers.Create(domain.Supplier{ID: id, Name: "supplier " + id}))
}

func purchaseOrderForIntegrationTest(id, number string) domain.PurchaseOrder {
	now := time.Now().UTC()
	return domain.PurchaseOrder{
		ID:          id,
		Number:      number,
		SupplierID:  "supplier-1",
		RequestedBy: "user-1",
		Status:      domain.POStatusDraft,
		Items: []domain.PurchaseOrderItem{
			{ID: id + "-line-1", ProductID: "product-1", Qty: 10, PriceMinor: 50, CreatedAt: now},
			{ID: id + "-line-2", ProductID: "product-2", Qty: 4, PriceMinor: 200, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPurchaseOrderRepository_PostgresLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedProductForIntegrationTest(t, store, "product-1", 0)
	seedProductForIntegrationTest(t, store, "product-2", 0)
	seedSupplierForIntegrationTest(t, store, "supplier-1")

	repo := NewPurchaseOrderRepository(store)
	products := NewProductRepository(store)
	suppliers := NewSupplierRepository(store)

	require.NoError(t, repo.Create(purchaseOrderForIntegrationTest("po-1", "PO-2026-001")))

	created, err := repo.Get("po-1")
	require.NoError(t, err)
	require.Equal(t, int64(10*50+4*200), created.AmountMinor)

	// Приёмка до отправки поставщику не допускается.
	_, err = repo.Receive("po-1", []domain.ReceiptLine{{ItemID: "po-1-line-1", Qty: 1}})
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	sent, err := repo.Send("po-1")
	require.NoError(t, err)
	require.Equal(t, domain.POStatusSent, sent.Status)

	supplier, err := suppliers.Get("supplier-1")
	require.NoError(t, err)
	require.Equal(t, int32(1), supplier.OrdersCount)

	confirmed, err := repo.Confirm("po-1")
	require.NoError(t, err)
	require.Equal(t, domain.POStatusConfirmed, confirmed.Status)

	partial, err := repo.Receive("po-1", []domain.ReceiptLine{
		{ItemID: "po-1-line-1", Qty: 6},
	})
	require.NoError(t, err)
	require.Equal(t, domain.POStatusPartial, partial.Status)
	require.Nil(t, partial.ActualDate)

	product, err := products.Get("product-1")
	require.NoError(t, err)
	require.Equal(t, int32(6), product.Stock)

	full, err := repo.Receive("po-1", []domain.ReceiptLine{
		{ItemID: "po-1-line-1", Qty: 4},
		{ItemID: "po-1-line-2", Qty: 4},
	})
	require.NoError(t, err)
	require.Equal(t, domain.POStatusReceived, full.Status)
	require.NotNil(t, full.ActualDate)
	require.Equal(t, int32(10), full.Items[0].ReceivedQty)
}

func TestPurchaseOrderRepository_PostgresNextNumber(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewPurchaseOrderRepository(store)

	first, err := repo.NextNumber("user-1", 2026)
	require.NoError(t, err)
	require.Equal(t, "PO-2026-001", first)

	second, err := repo.NextNumber("user-1", 2026)
	require.NoError(t, err)
	require.Equal(t, "PO-2026-002", second)

	other, err := repo.NextNumber("user-2", 2026)
	require.NoError(t, err)
	require.Equal(t, "PO-2026-001", other)
}

func TestPurchaseOrderRepository_PostgresDuplicateNumber(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedProductForIntegrationTest(t, store, "product-1", 0)
	seedProductForIntegrationTest(t, store, "product-2", 0)
	seedSupplierForIntegrationTest(t, store, "supplier-1")

	repo := NewPurchaseOrderRepository(store)
	require.NoError(t, repo.Create(purchaseOrderForIntegrationTest("po-1", "PO-2026-001")))

	err := repo.Create(purchaseOrderForIntegrationTest("po-2", "PO-2026-001"))
	require.ErrorIs(t, err, domain.ErrDuplicatePONumber)
}

func TestPurchaseOrderRepository_PostgresCancelTerminal(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedProductForIntegrationTest(t, store, "product-1", 0)
	seedProductForIntegrationTest(t, store, "product-2", 0)
	seedSupplierForIntegrationTest(t, store, "supplier-1")

	repo := NewPurchaseOrderRepository(store)
	require.NoError(t, repo.Create(purchaseOrderForIntegrationTest("po-1", "PO-2026-001")))

	cancelled, err := repo.Cancel("po-1")
	require.NoError(t, err)
	require.Equal(t, domain.POStatusCancelled, cancelled.Status)

	_, err = repo.Cancel("po-1")
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	_, err = repo.Receive("po-1", []domain.ReceiptLine{{ItemID: "po-1-line-1", Qty: 1}})
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}
