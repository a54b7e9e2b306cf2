package health

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type staticChecker struct {
	name string
	err  error
}

func (c staticChecker) Name() string                  { return c.name }
func (c staticChecker) Check(_ context.Context) error { return c.err }

func TestProbeRunnerAllHealthy(t *testing.T) {
	runner := NewProbeRunner(time.Second,
		staticChecker{name: "a"},
		staticChecker{name: "b"},
	)
	ready, results := runner.Ready(context.Background())
	if !ready {
		t.Fatal("expected ready")
	}
	if len(results) != 2 || results[0].Status != "ok" {
		t.Fatalf("results=%+v", results)
	}
}

func TestProbeRunnerReportsFailure(t *testing.T) {
	runner := NewProbeRunner(time.Second,
		staticChecker{name: "a"},
		staticChecker{name: "b", err: errors.New("down")},
	)
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected not ready")
	}
	if results[1].Status != "failed" || results[1].Error != "down" {
		t.Fatalf("results=%+v", results)
	}
}

func TestRedisChecker(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewRedisChecker(client)
	if err := checker.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}

	server.Close()
	if err := checker.Check(context.Background()); err == nil {
		t.Fatal("expected failure after server shutdown")
	}
}
