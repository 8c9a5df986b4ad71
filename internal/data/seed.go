package data

import (
	"log"

	"listen/internal/model"

	"gorm.io/gorm"
)

const defaultSummaryPrompt = `You are an assistant that summarizes meeting transcripts.

Write a concise, well-structured Markdown summary with these sections:
- **Key points** — the main topics discussed, as bullets
- **Decisions** — what was agreed or decided
- **Open questions** — unresolved items
- **Risks** — anything flagged as a concern

Be factual and do not invent details. Use plain newlines, never HTML tags.`

const defaultActionItemsPrompt = `You extract action items from meeting transcripts.

Respond with ONLY a JSON array. Each element must be an object:
{"task": "...", "owner": "...", "due": "..."}

Use null for unknown owner/due. If there are no action items, respond with [].
Do not wrap the JSON in markdown fences or add any commentary.`

// SeedDefaultPrompts 启动时保证每个 kind 有一条默认提示词
// 已存在且仍标记为默认的行会刷新成内置内容；用户改过的（非默认）不动
func SeedDefaultPrompts(db *gorm.DB) error {
	defaults := []model.Prompt{
		{Name: "Default Summary Prompt", Kind: model.PromptKindSummary, Content: defaultSummaryPrompt, IsDefault: true},
		{Name: "Default Action Items Prompt", Kind: model.PromptKindActionItems, Content: defaultActionItemsPrompt, IsDefault: true},
	}

	for _, want := range defaults {
		var p model.Prompt
		err := db.Where("name = ? AND kind = ?", want.Name, want.Kind).First(&p).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&want).Error; err != nil {
				return err
			}
			log.Printf("🎉 已创建默认提示词: %s (%s)", want.Name, want.Kind)
			continue
		}
		if err != nil {
			return err
		}

		// 用户取消了默认标记，说明改用自己的提示词，不覆盖
		if !p.IsDefault {
			continue
		}
		if p.Content != want.Content {
			if err := db.Model(&p).Update("content", want.Content).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
