package usecase

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"foodorder/internal/domain/model"

	"github.com/google/uuid"
)

// resolveMenuItems は指定IDをその店のメニューとして一括で引く。
// 解決できなかったIDは全部挙げてエラーにする（§診断しやすさ）。
func resolveMenuItems(items []model.MenuItem, wantIDs []int64) (map[int64]model.MenuItem, error) {
	byID := make(map[int64]model.MenuItem, len(items))
	for _, m := range items {
		byID[m.ID] = m
	}

	var missing []int64
	var unavailable []int64
	seen := make(map[int64]bool, len(wantIDs))
	for _, id := range wantIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		m, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if !m.IsAvailable {
			unavailable = append(unavailable, id)
		}
	}

	if len(missing) > 0 {
		return nil, NewHTTPError(http.StatusBadRequest,
			"items not in restaurant: "+joinIDs(missing))
	}
	if len(unavailable) > 0 {
		return nil, NewHTTPError(http.StatusBadRequest,
			"menu items not available: "+joinIDs(unavailable))
	}

	return byID, nil
}

func joinIDs(ids []int64) string {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// 人間が読める請求書番号。日付＋ランダム8桁。
func newInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), suffix)
}
