package worker

import (
	"time"

	"listen/internal/logger"
	"listen/internal/model"

	"gorm.io/gorm"
)

// SweepStaleJobs 回收上一个进程崩溃时卡在 processing 的 Job
// 没有这道扫除这些 Job 会永远挂着；阈值要放宽到比最长的正常任务还长
func SweepStaleJobs(db *gorm.DB, maxAge time.Duration, log *logger.Logger) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	now := time.Now().UTC()

	res := db.Model(&model.Job{}).
		Where("status = ? AND updated_at < ?", model.JobStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":      model.JobStatusFailed,
			"progress":    100,
			"error":       "worker restarted mid-run",
			"finished_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		log.Warnf("⚠️ 回收了 %d 个卡死的 processing Job", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
