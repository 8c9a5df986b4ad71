package worker

import (
	"testing"
	"time"

	"listen/internal/logger"
	"listen/internal/model"
)

func TestSweepStaleJobs(t *testing.T) {
	db := newTestDB(t)

	stale := model.Job{UploadID: 1, Status: model.JobStatusProcessing, Progress: 45}
	fresh := model.Job{UploadID: 1, Status: model.JobStatusProcessing, Progress: 45}
	queued := model.Job{UploadID: 1, Status: model.JobStatusQueued}
	db.Create(&stale)
	db.Create(&fresh)
	db.Create(&queued)

	// 把一条 processing 的 updated_at 拨到很久以前，模拟进程崩溃遗留
	past := time.Now().UTC().Add(-48 * time.Hour)
	db.Model(&model.Job{}).Where("id = ?", stale.ID).UpdateColumn("updated_at", past)

	n, err := SweepStaleJobs(db, 6*time.Hour, logger.New())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d jobs, want 1", n)
	}

	var got model.Job
	db.First(&got, stale.ID)
	if got.Status != model.JobStatusFailed || got.Progress != 100 {
		t.Fatalf("stale job: status=%s progress=%d", got.Status, got.Progress)
	}
	if got.Error == nil || *got.Error != "worker restarted mid-run" {
		t.Fatalf("error = %v", got.Error)
	}
	if got.FinishedAt == nil {
		t.Fatal("finished_at not set")
	}

	// 还在跑的和排队的不动
	var gotFresh model.Job
	db.First(&gotFresh, fresh.ID)
	if gotFresh.Status != model.JobStatusProcessing {
		t.Fatalf("fresh job swept: %s", gotFresh.Status)
	}
	var gotQueued model.Job
	db.First(&gotQueued, queued.ID)
	if gotQueued.Status != model.JobStatusQueued {
		t.Fatalf("queued job swept: %s", gotQueued.Status)
	}
}
