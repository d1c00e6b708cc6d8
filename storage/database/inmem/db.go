package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/certificate"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/learning"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/user"
)

type (
	// DB is an in-memory database holding every table. Rows are stored by value.
	DB struct {
		mu     sync.RWMutex
		tables tables

		txMu sync.Mutex // serializes transactions
	}

	tables struct {
		users         map[string]user.User
		courses       map[string]course.Course  // without sections
		sections      map[string]course.Section // without lessons
		lessons       map[string]course.Lesson
		enrollments   map[string]learning.Enrollment
		completions   map[string]learning.CompletedLesson
		payments      map[string]payment.Payment
		webhookEvents map[string]time.Time
		certificates  map[string]certificate.Certificate
	}
)

func newTables() tables {
	return tables{
		users:         make(map[string]user.User),
		courses:       make(map[string]course.Course),
		sections:      make(map[string]course.Section),
		lessons:       make(map[string]course.Lesson),
		enrollments:   make(map[string]learning.Enrollment),
		completions:   make(map[string]learning.CompletedLesson),
		payments:      make(map[string]payment.Payment),
		webhookEvents: make(map[string]time.Time),
		certificates:  make(map[string]certificate.Certificate),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (t tables) clone() tables {
	return tables{
		users:         copyMap(t.users),
		courses:       copyMap(t.courses),
		sections:      copyMap(t.sections),
		lessons:       copyMap(t.lessons),
		enrollments:   copyMap(t.enrollments),
		completions:   copyMap(t.completions),
		payments:      copyMap(t.payments),
		webhookEvents: copyMap(t.webhookEvents),
		certificates:  copyMap(t.certificates),
	}
}

func Open() (*DB, error) {
	return &DB{tables: newTables()}, nil
}

type txKey struct{}

// TxRunner runs transactions one at a time; the tables are restored if fn fails.
type TxRunner struct {
	db *DB
}

var _ core.TxRunner = (*TxRunner)(nil) // interface compliance check

func NewTxRunner(db *DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx) // join the outer transaction
	}

	r.db.txMu.Lock()
	defer r.db.txMu.Unlock()

	r.db.mu.RLock()
	snapshot := r.db.tables.clone()
	r.db.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		r.db.mu.Lock()
		r.db.tables = snapshot
		r.db.mu.Unlock()
		return err
	}
	return nil
}
