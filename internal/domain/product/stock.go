package product

// LowStockThreshold is the highest stock count still reported as low.
const LowStockThreshold = 10

// StockLevel is the admin-facing stock classification.
type StockLevel string

const (
	StockOut StockLevel = "out_of_stock"
	StockLow StockLevel = "low_stock"
	StockIn  StockLevel = "in_stock"
)

// LevelOf classifies a stock count.
func LevelOf(stock int) StockLevel {
	switch {
	case stock <= 0:
		return StockOut
	case stock <= LowStockThreshold:
		return StockLow
	default:
		return StockIn
	}
}
