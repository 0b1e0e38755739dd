// 包 override：用户对目录地点的局部编辑（覆盖层）；读时叠加到目录值上，目录本身保持不变
package override

import "spot-api/internal/catalog"

// 文档注释：单个地点的覆盖补丁
// 约束：nil 字段表示“未覆盖”；指向空串的字段是显式覆盖值，存储层照原样保存。
type Patch struct {
	Title         *string  `json:"title,omitempty"`
	Description   *string  `json:"description,omitempty"`
	CategoryLabel *string  `json:"categoryLabel,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
}

func Str(s string) *string { return &s }
func Float(f float64) *float64 { return &f }

// IsEmpty：不含任何字段
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.CategoryLabel == nil && p.Rating == nil
}

// Merge：字段级浅合并，fields 中出现的字段覆盖 p，其余保留
func (p Patch) Merge(fields Patch) Patch {
	out := p.clone()
	if fields.Title != nil {
		out.Title = Str(*fields.Title)
	}
	if fields.Description != nil {
		out.Description = Str(*fields.Description)
	}
	if fields.CategoryLabel != nil {
		out.CategoryLabel = Str(*fields.CategoryLabel)
	}
	if fields.Rating != nil {
		out.Rating = Float(*fields.Rating)
	}
	return out
}

func (p Patch) clone() Patch {
	var out Patch
	if p.Title != nil {
		out.Title = Str(*p.Title)
	}
	if p.Description != nil {
		out.Description = Str(*p.Description)
	}
	if p.CategoryLabel != nil {
		out.CategoryLabel = Str(*p.CategoryLabel)
	}
	if p.Rating != nil {
		out.Rating = Float(*p.Rating)
	}
	return out
}

// Fields：已设置字段名，按固定顺序
func (p Patch) Fields() []string {
	var out []string
	if p.Title != nil {
		out = append(out, "title")
	}
	if p.Description != nil {
		out = append(out, "description")
	}
	if p.CategoryLabel != nil {
		out = append(out, "categoryLabel")
	}
	if p.Rating != nil {
		out = append(out, "rating")
	}
	return out
}

// Decorated：叠加补丁后的展示记录，不落盘
type Decorated struct {
	catalog.Spot
	Edited bool `json:"edited"`
}
