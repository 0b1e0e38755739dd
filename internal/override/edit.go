package override

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"spot-api/internal/catalog"
)

// MaxDescriptionRunes：描述字段的最大长度（按字符计）
const MaxDescriptionRunes = 800

// CategorySuggestions：编辑表单中可选的分类展示名
var CategorySuggestions = []string{
	"🏛️ Historical",
	"🎨 Art & Design",
	"🎉 Entertainment",
	"🎭 People & Moments",
	"🌃 Night / City",
	"📎 Other",
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// 文档注释：评分归一化
// 约束：首个 ',' 视为小数点；只解析开头的数值部分；结果钳制到 [0,5] 并四舍五入到一位小数；
// 空白或非数值输入返回 false（“无值”，不是 0）。
func NormalizeRating(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !isRangeErr(err) {
		return 0, false
	}
	if math.IsNaN(v) {
		return 0, false
	}
	v = math.Max(0, math.Min(5, v))
	return math.Round(v*10) / 10, true
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// FormatRating：评分的文本形式，与表单初值一致
func FormatRating(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Form：编辑表单的原始输入
type Form struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	CategoryLabel string `json:"categoryLabel"`
	Rating        string `json:"rating"`
}

// FormFrom：以（已叠加的）地点值作为表单初值
func FormFrom(s catalog.Spot) Form {
	return Form{
		Title:         s.Title,
		Description:   s.Description,
		CategoryLabel: s.CategoryLabel,
		Rating:        FormatRating(s.Rating),
	}
}

// Dirty：去空白后与初值比较，任一字段不同即为有改动
func (f Form) Dirty(initial Form) bool {
	eq := func(a, b string) bool { return strings.TrimSpace(a) == strings.TrimSpace(b) }
	return !eq(f.Title, initial.Title) ||
		!eq(f.Description, initial.Description) ||
		!eq(f.CategoryLabel, initial.CategoryLabel) ||
		!eq(f.Rating, initial.Rating)
}

// Normalized：把评分输入替换为归一化后的文本，无法解析时清空；其余字段不变
func (f Form) Normalized() Form {
	if v, ok := NormalizeRating(f.Rating); ok {
		f.Rating = FormatRating(v)
	} else {
		f.Rating = ""
	}
	return f
}

// 文档注释：由表单构造补丁
// 约束：文本去空白；空白字段回退为基线值（不写入）；与基线相同的字段不写入；
// 描述截断到 MaxDescriptionRunes；评分能归一化时写入。
func BuildPatch(baseline catalog.Spot, f Form) Patch {
	var p Patch
	if v, ok := changedText(f.Title, baseline.Title); ok {
		p.Title = Str(v)
	}
	desc := f.Description
	if utf8.RuneCountInString(desc) > MaxDescriptionRunes {
		desc = string([]rune(desc)[:MaxDescriptionRunes])
	}
	if v, ok := changedText(desc, baseline.Description); ok {
		p.Description = Str(v)
	}
	if v, ok := changedText(f.CategoryLabel, baseline.CategoryLabel); ok {
		p.CategoryLabel = Str(v)
	}
	if v, ok := NormalizeRating(f.Rating); ok {
		p.Rating = Float(v)
	}
	return p
}

func changedText(in, base string) (string, bool) {
	v := strings.TrimSpace(in)
	if v == "" || v == strings.TrimSpace(base) {
		return "", false
	}
	return v, true
}
