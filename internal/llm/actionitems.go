package llm

import (
	"encoding/json"
	"strings"
)

// ActionItems 动作项结果的两种形态：
//   - 模型守规矩：一个 JSON 数组，逐条原样保留
//   - 模型没守规矩：整段文本包进 {"raw": "..."}，绝不丢结果
type ActionItems struct {
	Items []json.RawMessage
	Raw   string
	IsRaw bool
}

// ParseActionItems 严格按 JSON 数组解析，失败就走 raw 兜底，空白归一成空数组
func ParseActionItems(raw string) ActionItems {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ActionItems{Items: []json.RawMessage{}}
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return ActionItems{Raw: raw, IsRaw: true}
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return ActionItems{Items: items}
}

func (a ActionItems) MarshalJSON() ([]byte, error) {
	if a.IsRaw {
		return json.Marshal(map[string]string{"raw": a.Raw})
	}
	items := a.Items
	if items == nil {
		items = []json.RawMessage{}
	}
	return json.Marshal(items)
}
