package schedulersvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

func (l *recordingLogger) Info(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

type expirerFunc func(ctx context.Context) (int, error)

func (f expirerFunc) ExpireStale(ctx context.Context) (int, error) { return f(ctx) }

func TestSchedulePaymentExpiry(t *testing.T) {
	t.Run("invalid spec", func(t *testing.T) {
		s := New(&recordingLogger{})
		err := s.SchedulePaymentExpiry("every now and then", expirerFunc(func(context.Context) (int, error) { return 0, nil }))
		assert.Error(t, err)
	})

	t.Run("runs job", func(t *testing.T) {
		logger := &recordingLogger{}
		s := New(logger)
		ran := make(chan struct{}, 1)
		require.NoError(t, s.SchedulePaymentExpiry("@every 1s", expirerFunc(func(ctx context.Context) (int, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			select {
			case ran <- struct{}{}:
			default:
			}
			return 2, nil
		})))

		s.Start()
		select {
		case <-ran:
		case <-time.After(3 * time.Second):
			t.Fatal("payment expiry job did not run")
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Stop(ctx))

		logger.mu.Lock()
		defer logger.mu.Unlock()
		assert.Contains(t, logger.infos, "expired 2 stale payment(s)")
	})
}

func TestExpirePayments_LogsErrors(t *testing.T) {
	logger := &recordingLogger{}
	s := New(logger)

	s.expirePayments(expirerFunc(func(context.Context) (int, error) { return 0, errors.New("db down") }))
	s.expirePayments(expirerFunc(func(context.Context) (int, error) { return 0, nil }))

	assert.Equal(t, []string{"expiring payments: db down"}, logger.errors)
	assert.Empty(t, logger.infos)
}

func TestCronLogger_Recover(t *testing.T) {
	logger := &recordingLogger{}
	cl := cronLogger{logger: logger}

	job := cron.Recover(cl)(cron.FuncJob(func() { panic("boom") }))
	assert.NotPanics(t, job.Run)
	require.Len(t, logger.errors, 1)
	assert.Contains(t, logger.errors[0], "cron: panic: boom")
}
