package media

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListChunksFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()

	// 乱序创建 + 混入不该被算进去的文件
	touch(t, filepath.Join(dir, "chunk-00002.wav"))
	touch(t, filepath.Join(dir, "chunk-00000.wav"))
	touch(t, filepath.Join(dir, "chunk-00001.wav"))
	touch(t, filepath.Join(dir, "normalized.wav"))
	touch(t, filepath.Join(dir, "chunk-00003.tmp"))
	touch(t, filepath.Join(dir, "notes.txt"))

	chunks, err := ListChunks(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{
		filepath.Join(dir, "chunk-00000.wav"),
		filepath.Join(dir, "chunk-00001.wav"),
		filepath.Join(dir, "chunk-00002.wav"),
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks: %v", len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunks[%d] = %s, want %s", i, chunks[i], want[i])
		}
	}
}

func TestListChunksEmptyDir(t *testing.T) {
	chunks, err := ListChunks(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("got %v", chunks)
	}
}

func TestExternalToolErrorMessage(t *testing.T) {
	// 不存在的输入：ffmpeg 不在 PATH 上时跳过（exec 错误不是 ExternalToolError 的场景）
	if _, err := os.Stat("/usr/bin/ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	err := Normalize(filepath.Join(t.TempDir(), "missing.mp3"), filepath.Join(t.TempDir(), "out.wav"))
	if err == nil {
		t.Fatal("expected failure for missing input")
	}
	if _, ok := err.(*ExternalToolError); !ok {
		t.Fatalf("want ExternalToolError, got %T", err)
	}
	if err.Error() == "" {
		t.Fatal("error message must not be empty")
	}
}
