package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/certificate"
)

type certificateRepository struct {
	db *DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *DB) *certificateRepository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) GetCertificate(_ context.Context, filter certificate.GetFilter) (certificate.Certificate, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, cert := range repo.db.tables.certificates {
		switch {
		case filter.Code != "":
			if cert.Code == filter.Code {
				return cert, nil
			}
		case filter.CourseID != "" && filter.UserID != "":
			if cert.CourseID == filter.CourseID && cert.UserID == filter.UserID {
				return cert, nil
			}
		}
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) CreateCertificate(_ context.Context, cert certificate.Certificate) (certificate.Certificate, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.tables.certificates {
		if existing.Code == cert.Code {
			return certificate.Certificate{}, certificate.ErrCodeTaken
		}
		if existing.CourseID == cert.CourseID && existing.UserID == cert.UserID {
			return certificate.Certificate{}, certificate.ErrAlreadyIssued
		}
	}
	cert.ID = uuid.New().String()
	repo.db.tables.certificates[cert.ID] = cert
	return cert, nil
}
