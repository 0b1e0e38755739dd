package saved

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"spot-api/internal/catalog"
)

// SortMode：收藏列表排序方式
type SortMode string

const (
	SortRating SortMode = "rating"
	SortTitle  SortMode = "title"
)

// ParseSortMode：未知值回退为按评分
func ParseSortMode(s string) SortMode {
	if SortMode(strings.ToLower(strings.TrimSpace(s))) == SortTitle {
		return SortTitle
	}
	return SortRating
}

// ShareLimit：分享文本中最多列出的条目数
const ShareLimit = 10

// Spots：从 spots 中挑出已收藏的地点并排序
// 约束：按评分时降序，同分按标题；标题比较使用英语排序规则；不修改入参。
func (s *Store) Spots(spots []catalog.Spot, mode SortMode) []catalog.Spot {
	set := s.Snapshot()
	out := []catalog.Spot{}
	for _, sp := range spots {
		if set[sp.ID] {
			out = append(out, sp.Clone())
		}
	}
	Sort(out, mode)
	return out
}

// Sort：原地稳定排序
func Sort(spots []catalog.Spot, mode SortMode) {
	col := collate.New(language.English)
	byTitle := func(a, b catalog.Spot) int { return col.CompareString(a.Title, b.Title) }
	sort.SliceStable(spots, func(i, j int) bool {
		a, b := spots[i], spots[j]
		if mode != SortTitle && a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return byTitle(a, b) < 0
	})
}

// ShareText：收藏列表的分享文案，最多 ShareLimit 条
func ShareText(spots []catalog.Spot) string {
	var b strings.Builder
	b.WriteString("My saved Berlin spots:\n\n")
	for i, sp := range spots {
		if i == ShareLimit {
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, sp.Title)
	}
	return b.String()
}
