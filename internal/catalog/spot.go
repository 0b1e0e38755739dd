package catalog

// 文档注释：目录中的一个地点记录
// 约束：Lat/Lng 同时存在或同时缺失；评分范围 [0,5]，至多一位小数；目录内 ID 唯一且跨进程稳定。
type Spot struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	CategoryKey   string   `json:"categoryKey"`
	CategoryLabel string   `json:"categoryLabel"`
	Rating        float64  `json:"rating"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	Image         string   `json:"image"`
}

// Category：分类键与展示名
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Point：WGS84 坐标
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (s Spot) HasCoords() bool { return s.Lat != nil && s.Lng != nil }

// Coords：无坐标时返回 false
func (s Spot) Coords() (Point, bool) {
	if !s.HasCoords() {
		return Point{}, false
	}
	return Point{Lat: *s.Lat, Lng: *s.Lng}, true
}

// Clone：深拷贝，调用方修改副本不会影响目录
func (s Spot) Clone() Spot {
	if s.Lat != nil {
		v := *s.Lat
		s.Lat = &v
	}
	if s.Lng != nil {
		v := *s.Lng
		s.Lng = &v
	}
	return s
}

// WithCoords：测试与数据构造辅助
func (s Spot) WithCoords(lat, lng float64) Spot {
	s.Lat = &lat
	s.Lng = &lng
	return s
}
