package data

import (
	"fmt"
	"strings"
	"testing"

	"listen/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.Prompt{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSeedCreatesOneDefaultPerKind(t *testing.T) {
	db := newSeedTestDB(t)

	if err := SeedDefaultPrompts(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, kind := range []string{model.PromptKindSummary, model.PromptKindActionItems} {
		var n int64
		db.Model(&model.Prompt{}).Where("kind = ? AND is_default = ?", kind, true).Count(&n)
		if n != 1 {
			t.Errorf("kind %s: %d defaults", kind, n)
		}
	}

	// 再跑一遍不能翻倍
	if err := SeedDefaultPrompts(db); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var total int64
	db.Model(&model.Prompt{}).Count(&total)
	if total != 2 {
		t.Fatalf("prompts = %d, want 2", total)
	}
}

func TestSeedLeavesUserEditedPromptsAlone(t *testing.T) {
	db := newSeedTestDB(t)
	if err := SeedDefaultPrompts(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// 用户改了内容并取消默认 → 再 seed 不能覆盖
	var p model.Prompt
	db.Where("kind = ?", model.PromptKindSummary).First(&p)
	db.Model(&p).Updates(map[string]interface{}{"content": "my custom prompt", "is_default": false})

	if err := SeedDefaultPrompts(db); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	var got model.Prompt
	db.First(&got, p.ID)
	if got.Content != "my custom prompt" {
		t.Fatalf("user content overwritten: %q", got.Content)
	}
}

func TestSeedRefreshesUntouchedDefault(t *testing.T) {
	db := newSeedTestDB(t)
	if err := SeedDefaultPrompts(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// 还是默认但内容是旧版 → 升级成内置内容
	var p model.Prompt
	db.Where("kind = ?", model.PromptKindSummary).First(&p)
	db.Model(&p).Update("content", "legacy v1 content")

	if err := SeedDefaultPrompts(db); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	var got model.Prompt
	db.First(&got, p.ID)
	if got.Content != defaultSummaryPrompt {
		t.Fatalf("default prompt not refreshed")
	}
}
