package events

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/abdullah0408/server/internal/platform/logger"
)

func TestLogBusPublishes(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	bus := NewLogBus(log)
	if err := bus.Publish(context.Background(), StatusEvent{Entity: "course", JobID: uuid.New(), From: "PROCESSING", To: "FAILED"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, ok := bus.(Subscriber); ok {
		t.Fatalf("log bus must not advertise Subscribe")
	}
}

func TestNewRedisBusRequiresAddr(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	if _, err := NewRedisBus(log, RedisConfig{}); err == nil {
		t.Fatalf("NewRedisBus: want error without addr")
	}
}
