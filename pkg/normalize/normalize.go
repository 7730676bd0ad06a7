// Package normalize 将各来源的原始文本统一归一化为标准 Document。
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"

	"github.com/iWorld-y/opinion_radar/pkg/model"
)

var (
	// 标签、URL 以及裸域名形式的 token 一并移除
	markupOrURLRe = regexp.MustCompile(`<[^>]+>|http\S+|www\S+|\S+\.\S+`)
	// 小写化之后只保留字母、数字与空白
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)
	// 连续空白折叠为单个空格
	spaceRe = regexp.MustCompile(`\s+`)
)

// emojiTable 覆盖常见表情与象形符号区段
var emojiTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2190, Hi: 0x21FF, Stride: 1}, // 箭头
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1}, // 杂项符号与装饰符号
		{Lo: 0x2B00, Hi: 0x2BFF, Stride: 1},
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1}, // 变体选择符
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1FAFF, Stride: 1}, // 表情主区段
		{Lo: 0x1FB00, Hi: 0x1FBFF, Stride: 1},
	},
}

// lowSignalPhrases 低信号口水话短语，命中即打上 irrelevant_chatter 标签。
// 这是一个廉价预筛，允许误判。
var lowSignalPhrases = []string{"great video", "subscribe", "thanks"}

// Clean 对原始文本做确定性清洗：
// 小写化 -> 去标签/URL -> 去表情 -> 剔除非字母数字 -> 折叠空白。
// 必须先小写化再剥 URL，否则 "HTTPS" 这类大写 token 会在第二次
// 清洗时才被剥掉，破坏幂等性。幂等：Clean(Clean(x)) == Clean(x)。
func Clean(raw string) string {
	if raw == "" {
		return ""
	}
	text := strings.ToLower(raw)
	text = markupOrURLRe.ReplaceAllString(text, "")
	text = stripEmoji(text)
	text = nonAlnumRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func stripEmoji(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.Is(emojiTable, r) || unicode.In(r, unicode.So, unicode.Sk) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NewDocument 将一条原始内容及其来源元数据归一化为 Document。
// 所有字段都有安全缺省值，元数据缺失或畸形不会导致失败。
func NewDocument(rawText string, source model.SourceTag, metadata map[string]any) model.Document {
	cleaned := Clean(rawText)

	tag := model.RelevanceProductFocused
	for _, phrase := range lowSignalPhrases {
		if strings.Contains(cleaned, phrase) {
			tag = model.RelevanceIrrelevantChatter
			break
		}
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	return model.Document{
		Content:         cleaned,
		RawText:         rawText,
		Source:          source,
		Timestamp:       resolveTimestamp(metadata["published_at"]),
		EngagementScore: resolveEngagement(metadata),
		RelevanceTag:    tag,
		ExtraMetadata:   metadata,
	}
}

// resolveTimestamp 把来源提供的发布时间统一成 ISO-8601 字符串，
// 缺失或无法识别时回退到当前时间，保证永不为空。
func resolveTimestamp(raw any) string {
	switch v := raw.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case string:
		if v == "" {
			break
		}
		if t, err := dateparse.ParseAny(v); err == nil {
			return t.Format(time.RFC3339)
		}
		// 已经是非空字符串但无法解析，原样保留
		return v
	}
	return time.Now().Format(time.RFC3339)
}

// resolveEngagement 从 like_count / upvotes 字段读取互动权重，
// 缺省为 0，并对负值做钳制。
func resolveEngagement(metadata map[string]any) int {
	raw, ok := metadata["like_count"]
	if !ok {
		raw, ok = metadata["upvotes"]
	}
	if !ok {
		return 0
	}

	score := 0
	switch v := raw.(type) {
	case int:
		score = v
	case int32:
		score = int(v)
	case int64:
		score = int(v)
	case uint64:
		score = int(v)
	case float64:
		score = int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			score = n
		}
	}
	if score < 0 {
		return 0
	}
	return score
}
