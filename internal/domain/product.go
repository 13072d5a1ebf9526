package domain

import "time"

// Product описывает товарную позицию каталога с текущим остатком на складе.
type Product struct {
	ID string
	// Name — отображаемое название товара.
	Name string
	// PriceMinor — цена за единицу в минимальных денежных единицах (например, копейки).
	PriceMinor int64
	// Stock — остаток на складе; инвариант Stock >= 0 поддерживается Stock Ledger.
	Stock int32
	// LowStockThreshold — порог, ниже которого остаток считается критическим.
	LowStockThreshold int32
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLowStock сообщает, опустился ли остаток до критического порога.
func (p Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

// Supplier описывает поставщика, которому отправляются заявки на закупку.
type Supplier struct {
	ID   string
	Name string
	// OrdersCount — счётчик отправленных поставщику заявок; инкрементируется при Send.
	OrdersCount int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
