package health

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// ObjectStoreChecker verifies the avatar bucket is reachable.
type ObjectStoreChecker struct {
	client *minio.Client
	bucket string
}

func NewObjectStoreChecker(client *minio.Client, bucket string) Checker {
	if client == nil {
		return nil
	}
	return &ObjectStoreChecker{client: client, bucket: bucket}
}

func (c *ObjectStoreChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "object_store", Healthy: true}
	exists, err := c.client.BucketExists(ctx, c.bucket)
	switch {
	case err != nil:
		res.Healthy = false
		res.Error = err.Error()
	case !exists:
		// The bucket is created lazily on the first upload.
		res.Error = fmt.Sprintf("bucket %s not created yet", c.bucket)
	}
	return res
}
