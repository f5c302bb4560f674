package app

import (
	"fmt"

	"github.com/abdullah0408/server/internal/clients/stageworker"
	"github.com/abdullah0408/server/internal/platform/events"
	"github.com/abdullah0408/server/internal/platform/logger"
)

type Clients struct {
	StageWorker stageworker.Client
	Bus         events.Bus
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var bus events.Bus
	if cfg.Redis.Addr != "" {
		b, err := events.NewRedisBus(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis status bus: %w", err)
		}
		bus = b
	} else {
		bus = events.NewLogBus(log)
	}

	// Stage worker
	worker := stageworker.New(cfg.StageWorker, log)

	return Clients{
		StageWorker: worker,
		Bus:         bus,
	}, nil
}
