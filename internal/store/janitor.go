package store

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// defaultSchedule sweeps hourly when no cron expression is configured.
const defaultSchedule = "@hourly"

// Janitor periodically sweeps stale results out of a Store.
type Janitor struct {
	cron *cron.Cron
}

// StartJanitor schedules a retention sweep of s on the given cron expression
// ("@hourly" when empty), removing results older than maxAge. Returns nil
// without scheduling anything when maxAge is non-positive.
func StartJanitor(s *Store, schedule string, maxAge time.Duration, log zerolog.Logger) (*Janitor, error) {
	if maxAge <= 0 {
		return nil, nil
	}
	if schedule == "" {
		schedule = defaultSchedule
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		swept, err := s.Sweep(maxAge)
		if err != nil {
			log.Warn().Err(err).Msg("retention sweep failed")
			return
		}
		if swept > 0 {
			log.Info().Int("swept", swept).Dur("max_age", maxAge).Msg("retention sweep")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return &Janitor{cron: c}, nil
}

// Stop halts the sweep schedule. Safe on a nil Janitor.
func (j *Janitor) Stop() {
	if j == nil || j.cron == nil {
		return
	}
	ctx := j.cron.Stop()
	<-ctx.Done()
}
