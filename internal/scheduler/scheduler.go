package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cinemacal/cinemacal/internal/log"
)

// DefaultRefreshSpec refetches calendar events every quarter hour.
const DefaultRefreshSpec = "*/15 * * * *"

// Scheduler runs the periodic refresh job.
type Scheduler struct {
	cron *cron.Cron
	spec string
	id   cron.EntryID
}

// Validate checks a standard five-field cron spec.
func Validate(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// New schedules job on spec in loc. An empty spec disables scheduling and
// returns a nil Scheduler.
func New(spec string, loc *time.Location, job func()) (*Scheduler, error) {
	if spec == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	c := cron.New(cron.WithLocation(loc))
	id, err := c.AddFunc(spec, func() {
		log.Debug("scheduled refresh", "spec", spec)
		job()
	})
	if err != nil {
		return nil, fmt.Errorf("add refresh job: %w", err)
	}
	return &Scheduler{cron: c, spec: spec, id: id}, nil
}

func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.cron.Start()
	log.Info("scheduler started", "spec", s.spec)
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	<-s.cron.Stop().Done()
	log.Info("scheduler stopped")
}

// Next returns the next run time; zero before Start.
func (s *Scheduler) Next() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.id).Next
}
