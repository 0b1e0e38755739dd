// 包 catalog：随应用打包的只读地点目录；进程启动时加载一次，运行期间不再变化
package catalog

import (
	_ "embed"

	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
)

//go:embed data/spots.json
var bundled []byte

// Catalog 为只读目录；所有访问器返回副本
type Catalog struct {
	spots []Spot
	byID  map[string]int
	cats  []Category
	tree  *kdNode
}

// Default：加载内置 Berlin 目录
func Default() (*Catalog, error) { return Load(bytes.NewReader(bundled)) }

// Load：从 JSON 数组读取目录
func Load(r io.Reader) (*Catalog, error) {
	var spots []Spot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spots); err != nil {
		return nil, fmt.Errorf("catalog decode: %w", err)
	}
	return New(spots)
}

// New：校验并构建目录
func New(spots []Spot) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(spots))}
	seenCat := map[string]bool{}
	var withCoords []indexed
	for i, s := range spots {
		if err := validate(s); err != nil {
			return nil, fmt.Errorf("catalog spot %d: %w", i, err)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("catalog spot %d: duplicate id %q", i, s.ID)
		}
		c.byID[s.ID] = len(c.spots)
		c.spots = append(c.spots, s.Clone())
		if s.CategoryKey != "" && !seenCat[s.CategoryKey] {
			seenCat[s.CategoryKey] = true
			c.cats = append(c.cats, Category{Key: s.CategoryKey, Label: s.CategoryLabel})
		}
		if p, ok := s.Coords(); ok {
			withCoords = append(withCoords, indexed{p: p, idx: len(c.spots) - 1})
		}
	}
	c.tree = buildKD(withCoords, 0)
	return c, nil
}

func validate(s Spot) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("empty id")
	}
	if s.Rating < 0 || s.Rating > 5 || math.IsNaN(s.Rating) {
		return fmt.Errorf("id %q: rating %v out of [0,5]", s.ID, s.Rating)
	}
	if d := s.Rating*10 - math.Round(s.Rating*10); math.Abs(d) > 1e-9 {
		return fmt.Errorf("id %q: rating %v has more than one decimal", s.ID, s.Rating)
	}
	if (s.Lat == nil) != (s.Lng == nil) {
		return fmt.Errorf("id %q: lat and lng must both be set or both absent", s.ID)
	}
	if s.Lat != nil && (*s.Lat < -90 || *s.Lat > 90 || *s.Lng < -180 || *s.Lng > 180) {
		return fmt.Errorf("id %q: coordinates out of range", s.ID)
	}
	return nil
}

func (c *Catalog) Len() int { return len(c.spots) }

// All：按目录顺序返回全部地点
func (c *Catalog) All() []Spot {
	out := make([]Spot, len(c.spots))
	for i, s := range c.spots {
		out[i] = s.Clone()
	}
	return out
}

func (c *Catalog) Get(id string) (Spot, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Spot{}, false
	}
	return c.spots[i].Clone(), true
}

// Categories：按首次出现顺序返回分类
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.cats...)
}

// Query：列表筛选条件；Category 为空或 "all" 表示不限
type Query struct {
	Category string
	Search   string
}

// Filter：按分类与标题关键字（去空白、大小写折叠后的子串匹配）筛选
func (c *Catalog) Filter(q Query) []Spot {
	fold := cases.Fold()
	cat := strings.TrimSpace(q.Category)
	needle := fold.String(strings.TrimSpace(q.Search))
	out := []Spot{}
	for _, s := range c.spots {
		if cat != "" && cat != "all" && s.CategoryKey != cat {
			continue
		}
		if needle != "" && !strings.Contains(fold.String(s.Title), needle) {
			continue
		}
		out = append(out, s.Clone())
	}
	return out
}

// WithCoords：仅返回带坐标的地点（地图标记）
func (c *Catalog) WithCoords() []Spot {
	out := []Spot{}
	for _, s := range c.spots {
		if s.HasCoords() {
			out = append(out, s.Clone())
		}
	}
	return out
}

// Random：随机挑选一个带坐标的地点；没有时返回 false
func (c *Catalog) Random(rng *rand.Rand) (Spot, bool) {
	pts := c.WithCoords()
	if len(pts) == 0 {
		return Spot{}, false
	}
	if rng == nil {
		return pts[rand.Intn(len(pts))], true
	}
	return pts[rng.Intn(len(pts))], true
}
