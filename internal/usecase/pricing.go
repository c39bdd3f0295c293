package usecase

import (
	"math"
	"net/http"

	"foodorder/internal/domain/model"
)

// 1明細あたりの数量上限。飲食の注文でこれを超える数量は入力ミスとみなす。
const maxLineQuantity = 1_000_000

// 金額計算は常に明細の全量から。部分的な増分更新はしない。
// total = Σ(単価スナップショット × 数量)、subtotal = total - discount。
// int64を折り返す積和は正常値として通さない。
func computeTotals(items []model.OrderItem, discount int64) (total int64, subtotal int64, err error) {
	if discount < 0 {
		return 0, 0, NewHTTPError(http.StatusBadRequest, "discount must be >= 0")
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return 0, 0, NewHTTPError(http.StatusBadRequest, "quantity must be >= 1")
		}
		if it.Quantity > maxLineQuantity {
			return 0, 0, NewHTTPError(http.StatusBadRequest, "quantity too large")
		}
		line := it.UnitPriceSnapshot * it.Quantity
		if line/it.Quantity != it.UnitPriceSnapshot {
			return 0, 0, NewHTTPError(http.StatusBadRequest, "order amount too large")
		}
		if total > math.MaxInt64-line {
			return 0, 0, NewHTTPError(http.StatusBadRequest, "order amount too large")
		}
		total += line
	}
	if discount > total {
		//黙ってゼロに丸めない。明示的に弾く。
		return 0, 0, NewHTTPError(http.StatusBadRequest, "discount exceeds total")
	}
	return total, total - discount, nil
}
