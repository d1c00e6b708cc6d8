package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	conf := core.NewConfig()
	l := NewRollbarLogger(log.New(&buf, "", 0), conf)
	l.Enable(false)

	id := core.Identity{UserID: "u1", Email: "amani@darasa.test", Name: "Amani", Role: core.RoleLearner}

	t.Run("prepare", func(t *testing.T) {
		errTimeout := errors.New("timeout")
		args := l.prepare("creating invoice failed", []interface{}{
			errTimeout, id, map[string]interface{}{"course": "c1"}, map[string]interface{}{"amount": 55.0},
		})
		if assert.Len(t, args, 3) {
			assert.Equal(t, "creating invoice failed", args[0])
			assert.Equal(t, errTimeout, args[1])
			assert.Equal(t, map[string]interface{}{"course": "c1", "amount": 55.0, "role": core.RoleLearner}, args[2])
		}

		args = l.prepare("expired stale payments", nil)
		assert.Equal(t, []interface{}{"expired stale payments"}, args)
	})

	t.Run("print", func(t *testing.T) {
		buf.Reset()
		l.Warn("claiming idempotency key", errors.New("redis down"), id)
		assert.Contains(t, buf.String(), "[WARN] claiming idempotency key")
		assert.Contains(t, buf.String(), "redis down")
		assert.Contains(t, buf.String(), "user: u1 <amani@darasa.test> (learner)")
	})
}
