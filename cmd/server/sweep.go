package main

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/99minutos/taskboard/internal/api/metrics"
	"github.com/99minutos/taskboard/internal/core/ratelimit"
)

// sweepJob reclaims expired rate limit windows from every local store.
func sweepJob(log zerolog.Logger, now func() time.Time, stores ...*ratelimit.MemoryStore) func() {
	return func() {
		at := now()
		removed := 0
		for _, s := range stores {
			removed += s.Sweep(at)
		}
		metrics.RateLimitSweptTotal.Add(float64(removed))
		if removed > 0 {
			log.Debug().Int("removed", removed).Msg("rate limit sweep")
		}
	}
}

func scheduleSweep(spec string, job func()) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("schedule rate limit sweep %q: %w", spec, err)
	}
	return c, nil
}
