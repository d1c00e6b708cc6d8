package schedulersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/darasa/core"
)

// PaymentExpirer expires stale pending payments.
type PaymentExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvData(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), err, kvData(keysAndValues))
}

func kvData(keysAndValues []interface{}) map[string]interface{} {
	data := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		data[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return data
}

// Scheduler runs the periodic background jobs.
type Scheduler struct {
	cron    *cron.Cron
	logger  core.Logger
	timeout time.Duration
}

func New(logger core.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger:  logger,
		timeout: time.Minute,
	}
}

// SchedulePaymentExpiry runs expirer on the given cron spec.
func (s *Scheduler) SchedulePaymentExpiry(spec string, expirer PaymentExpirer) error {
	if _, err := s.cron.AddFunc(spec, func() { s.expirePayments(expirer) }); err != nil {
		return errors.Wrapf(err, "scheduling payment expiry %q", spec)
	}
	return nil
}

func (s *Scheduler) expirePayments(expirer PaymentExpirer) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := expirer.ExpireStale(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("expiring payments: %v", err), err)
		return
	}
	if n > 0 {
		s.logger.Info(fmt.Sprintf("expired %d stale payment(s)", n))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
