package data

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"listen/internal/conf"
	"listen/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Data 结构体持有所有数据库句柄
type Data struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewData(cfg *conf.Config) (*Data, func(), error) {
	// 1. 连接 Postgres（容器编排下 DB 可能比我们晚起来，用退避重试等它）
	var pgDB *gorm.DB
	connect := func() error {
		var err error
		pgDB, err = gorm.Open(postgres.Open(cfg.Data.DatabaseSource), &gorm.Config{})
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 60 * time.Second
	if err := backoff.Retry(connect, bo); err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %v", err)
	}

	// 自动迁移表结构
	if err := pgDB.AutoMigrate(
		&model.Upload{},
		&model.Job{},
		&model.Transcript{},
		&model.TranscriptSegment{},
		&model.Prompt{},
	); err != nil {
		return nil, nil, fmt.Errorf("schema migration failed: %v", err)
	}
	log.Println("✅ 数据库表结构迁移完成")

	// 2. 初始化 Redis（任务队列）
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Data.RedisAddr,
		Password: cfg.Data.RedisPassword,
	})
	ping := func() error {
		_, err := rdb.Ping(context.Background()).Result()
		return err
	}
	pbo := backoff.NewExponentialBackOff()
	pbo.MaxElapsedTime = 60 * time.Second
	if err := backoff.Retry(ping, pbo); err != nil {
		return nil, nil, fmt.Errorf("redis ping failed: %v", err)
	}
	log.Println("✅ Redis 连接成功")

	// 3. 确保上传目录存在
	if err := os.MkdirAll(cfg.Data.UploadDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create upload dir: %v", err)
	}

	d := &Data{
		DB:    pgDB,
		Redis: rdb,
	}

	cleanup := func() {
		log.Println("正在关闭数据层资源...")
		if sqlDB, err := d.DB.DB(); err == nil {
			sqlDB.Close()
		}
		d.Redis.Close()
	}

	return d, cleanup, nil
}

// Healthcheck 给 /healthz 用的 DB 探活
func (d *Data) Healthcheck() bool {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}
