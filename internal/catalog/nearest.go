package catalog

import (
	"math"
	"sort"
)

// 文档注释：KD-Tree 近邻（二维经纬）
// 背景：目录规模小，但 /nearby 每次请求都要排序距离；预建一次树，查询只遍历必要分支。
// 约束：经度/纬度交替分割；距离为球面距离（千米）；无坐标的地点不进入树。
type kdNode struct {
	it indexed
	ax int // 0:lng,1:lat
	l  *kdNode
	r  *kdNode
}

type indexed struct {
	p   Point
	idx int
}

// Near：带距离的地点
type Near struct {
	Spot       Spot    `json:"spot"`
	DistanceKm float64 `json:"distance_km"`
}

func buildKD(items []indexed, depth int) *kdNode {
	if len(items) == 0 {
		return nil
	}
	ax := depth % 2
	sort.Slice(items, func(i, j int) bool { return axisVal(items[i].p, ax) < axisVal(items[j].p, ax) })
	mid := len(items) / 2
	n := &kdNode{it: items[mid], ax: ax}
	n.l = buildKD(items[:mid], depth+1)
	n.r = buildKD(items[mid+1:], depth+1)
	return n
}

func axisVal(p Point, ax int) float64 {
	if ax == 0 {
		return p.Lng
	}
	return p.Lat
}

// Nearest：返回距 (lat,lng) 最近的 k 个带坐标地点，按距离升序；距离相同按目录顺序
func (c *Catalog) Nearest(lat, lng float64, k int) []Near {
	if k <= 0 || c.tree == nil {
		return []Near{}
	}
	pt := Point{Lat: lat, Lng: lng}
	type cand struct {
		idx int
		d   float64
	}
	best := make([]cand, 0, k+1)
	worst := func() float64 {
		if len(best) < k {
			return math.MaxFloat64
		}
		return best[len(best)-1].d
	}
	insert := func(x cand) {
		i := sort.Search(len(best), func(i int) bool {
			if best[i].d == x.d {
				return best[i].idx > x.idx
			}
			return best[i].d > x.d
		})
		best = append(best, cand{})
		copy(best[i+1:], best[i:])
		best[i] = x
		if len(best) > k {
			best = best[:k]
		}
	}
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		d := haversine(pt.Lat, pt.Lng, n.it.p.Lat, n.it.p.Lng)
		if d <= worst() {
			insert(cand{idx: n.it.idx, d: d})
		}
		key, q := axisVal(pt, n.ax), axisVal(n.it.p, n.ax)
		first, second := n.l, n.r
		if key > q {
			first, second = n.r, n.l
		}
		dfs(first)
		if planeKm(key, q, n.ax, pt.Lat) <= worst() {
			dfs(second)
		}
	}
	dfs(c.tree)
	out := make([]Near, len(best))
	for i, b := range best {
		out[i] = Near{Spot: c.spots[b.idx].Clone(), DistanceKm: b.d}
	}
	return out
}

// planeKm：查询点到分割面的球面距离下界（千米）
// 经度轴取点到子午线大圆的距离；跨度不小于 90° 时返回 0，总是遍历另一侧
func planeKm(key, q float64, ax int, lat float64) float64 {
	const R = 6371.0
	deg := math.Abs(key - q)
	if ax == 1 {
		return R * deg * math.Pi / 180
	}
	if deg >= 90 {
		return 0
	}
	x := math.Sin(deg*math.Pi/180) * math.Cos(lat*math.Pi/180)
	return R * math.Asin(math.Min(1, math.Abs(x)))
}

// Haversine：球面距离，返回千米
func Haversine(lat1, lng1, lat2, lng2 float64) float64 { return haversine(lat1, lng1, lat2, lng2) }

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
