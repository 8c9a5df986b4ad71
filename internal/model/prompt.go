package model

// Prompt 的 kind 取值
const (
	PromptKindSummary     = "summary"
	PromptKindActionItems = "action_items"
)

// Prompt 系统提示词模板，按 kind 分类，每个 kind 至多一个默认
// “至多一个默认”由更新逻辑保证（先清掉同 kind 的其他默认），不是数据库约束
type Prompt struct {
	BaseModel
	Name      string `gorm:"not null" json:"name"`
	Kind      string `gorm:"index;not null" json:"kind"`
	Content   string `gorm:"type:text;not null" json:"content"`
	IsDefault bool   `gorm:"default:false" json:"is_default"`
}
