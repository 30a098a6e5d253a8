package promotion

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/libkiosk/core"
)

// Scheduler checks the promotion once at start, then on a cron schedule.
type Scheduler struct {
	job    *Job
	cron   *cron.Cron
	logger core.Logger
}

func NewScheduler(job *Job, schedule string, logger core.Logger) (*Scheduler, error) {
	cl := cronLogger{logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))
	s := &Scheduler{job: job, cron: c, logger: logger}

	if _, err := c.AddFunc(schedule, s.check); err != nil {
		return nil, errors.Wrapf(err, "scheduling grade promotion %q", schedule)
	}
	return s, nil
}

func (s *Scheduler) check() {
	if _, err := s.job.Check(context.Background()); err != nil {
		s.logger.Error(fmt.Sprintf("grade promotion check: %v", err), err)
	}
}

// Start runs a first check synchronously, then starts the cron loop.
func (s *Scheduler) Start() {
	s.check()
	s.cron.Start()
}

// Stop stops the cron loop; the returned context is done once a running check returns.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvMap(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, err, kvMap(keysAndValues))
}

func kvMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}
