package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrNoRecords = errors.New("no attendance records provided")

type (
	Repository interface {
		// UpsertRecords writes records keyed on (student, date);
		// an existing key is overwritten. Last write wins.
		UpsertRecords(ctx context.Context, records []Record) error
		QueryRecords(ctx context.Context, filter *QueryFilter) ([]Record, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Mark upserts a batch of presence records, typically one whole training
// session at once.
func (svc *Service) Mark(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	now := time.Now().UTC()
	for i := range records {
		if err := records[i].Validate(svc.validate); err != nil {
			return err
		}
		records[i].UpdatedAt = now
	}
	return svc.repo.UpsertRecords(ctx, records)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Record, error) {
	if filter != nil && !filter.Date.IsZero() {
		filter.Date = filter.Date.UTC().Truncate(24 * time.Hour)
	}
	return svc.repo.QueryRecords(ctx, filter)
}
