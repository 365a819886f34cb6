// Package sales feeds the console's sales tab with read-only aggregates over
// the storefront orders table. Checkout itself is the payment gateway's
// problem; this only reads what landed.
package sales

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrUnavailable is returned when no orders database is configured.
var ErrUnavailable = errors.New("sales: orders database unavailable")

// Order is a completed storefront order row, written by the checkout flow
// outside this subsystem.
type Order struct {
	ID         uint   `gorm:"primaryKey"`
	Reference  string `gorm:"uniqueIndex"`
	TotalCents int64
	Status     string
	CreatedAt  time.Time
}

// Summary is what the sales tab renders.
type Summary struct {
	OrdersToday  int64
	OrdersTotal  int64
	RevenueToday int64 // cents
	RevenueTotal int64 // cents
}

// Reader aggregates orders. DB may be nil in degraded mode.
type Reader struct {
	DB *gorm.DB
}

func NewReader(db *gorm.DB) *Reader {
	return &Reader{DB: db}
}

// Summary computes the readout over paid orders.
func (r *Reader) Summary() (Summary, error) {
	if r.DB == nil {
		return Summary{}, ErrUnavailable
	}

	var out Summary
	base := r.DB.Model(&Order{}).Where("status = ?", "paid")

	if err := base.Session(&gorm.Session{}).Count(&out.OrdersTotal).Error; err != nil {
		return Summary{}, fmt.Errorf("sales: count orders: %w", err)
	}
	if err := base.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total_cents), 0)").Scan(&out.RevenueTotal).Error; err != nil {
		return Summary{}, fmt.Errorf("sales: sum revenue: %w", err)
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	today := base.Session(&gorm.Session{}).Where("created_at >= ?", midnight)
	if err := today.Session(&gorm.Session{}).Count(&out.OrdersToday).Error; err != nil {
		return Summary{}, fmt.Errorf("sales: count today: %w", err)
	}
	if err := today.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total_cents), 0)").Scan(&out.RevenueToday).Error; err != nil {
		return Summary{}, fmt.Errorf("sales: sum today: %w", err)
	}
	return out, nil
}
