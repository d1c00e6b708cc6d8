package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (t tables) withCourseTitle(p payment.Payment) payment.Payment {
	p.CourseTitle = t.courses[p.CourseID].Title
	return p
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = uuid.New().String()
	p.CourseTitle = ""
	repo.db.tables.payments[p.ID] = p
	return p, nil
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.tables.payments[p.ID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	orig.Amount = p.Amount
	orig.Method = p.Method
	orig.Status = p.Status
	orig.Reference = p.Reference
	orig.UpdatedAt = p.UpdatedAt
	repo.db.tables.payments[p.ID] = orig
	return orig, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, filter payment.GetFilter) (payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.tables.payments[filter.ID]; ok {
			return repo.db.tables.withCourseTitle(p), nil
		}
		return payment.Payment{}, payment.ErrNotFound
	}
	if filter.Reference != "" {
		for _, p := range repo.db.tables.payments {
			if p.Reference == filter.Reference {
				return repo.db.tables.withCourseTitle(p), nil
			}
		}
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	payments := make([]payment.Payment, 0)
	for _, p := range repo.db.tables.payments {
		if (filter.UserID != "" && p.UserID != filter.UserID) || (filter.Status != "" && p.Status != filter.Status) {
			continue
		}
		payments = append(payments, repo.db.tables.withCourseTitle(p))
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.After(payments[j].CreatedAt) })
	return payments, nil
}

func (repo *paymentRepository) TransitionStatus(_ context.Context, reference, status string) (payment.Payment, bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, p := range repo.db.tables.payments {
		if p.Reference != reference {
			continue
		}
		if p.Status == status || p.Status == payment.StatusPaid {
			return p, false, nil
		}
		p.Status = status
		p.UpdatedAt = time.Now().UTC()
		repo.db.tables.payments[id] = p
		return p, true, nil
	}
	return payment.Payment{}, false, payment.ErrNotFound
}

func (repo *paymentRepository) ExpirePending(_ context.Context, before time.Time) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	now := time.Now().UTC()
	for id, p := range repo.db.tables.payments {
		if p.Status == payment.StatusPending && p.CreatedAt.Before(before) {
			p.Status = payment.StatusExpired
			p.UpdatedAt = now
			repo.db.tables.payments[id] = p
			n++
		}
	}
	return n, nil
}

func (repo *paymentRepository) RecordWebhookEvent(_ context.Context, key string) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.tables.webhookEvents[key]; ok {
		return false, nil
	}
	repo.db.tables.webhookEvents[key] = time.Now().UTC()
	return true, nil
}
