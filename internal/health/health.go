package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CheckResult is one dependency probe outcome, serialized into the readiness
// payload.
type CheckResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// ProbeRunner runs every registered checker with a per-check timeout.
type ProbeRunner struct {
	checkers []Checker
	timeout  time.Duration
}

func NewProbeRunner(timeout time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{checkers: checkers, timeout: timeout}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	ready := true
	results := make([]CheckResult, 0, len(p.checkers))
	for _, c := range p.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		start := time.Now()
		err := c.Check(checkCtx)
		cancel()
		result := CheckResult{
			Name:     c.Name(),
			Status:   "ok",
			Duration: time.Since(start).Round(time.Millisecond).String(),
		}
		if err != nil {
			ready = false
			result.Status = "failed"
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return ready, results
}

type redisChecker struct{ client redis.UniversalClient }

func NewRedisChecker(client redis.UniversalClient) Checker { return &redisChecker{client: client} }

func (c *redisChecker) Name() string { return "redis" }

func (c *redisChecker) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type databaseChecker struct{ db *gorm.DB }

func NewDatabaseChecker(db *gorm.DB) Checker { return &databaseChecker{db: db} }

func (c *databaseChecker) Name() string { return "database" }

func (c *databaseChecker) Check(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
