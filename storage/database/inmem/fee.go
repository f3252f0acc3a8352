package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/fee"
)

type feeRepository struct {
	db *feeTable
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *DB) *feeRepository {
	return &feeRepository{db: db.fee}
}

func (repo *feeRepository) query() []fee.Fee {
	fees := make([]fee.Fee, 0, len(repo.db.table))
	for _, f := range repo.db.table {
		fees = append(fees, *f)
	}
	return fees
}

func (repo *feeRepository) CreateFee(ctx context.Context, f fee.Fee) (fee.Fee, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.table {
		if existing.StudentID == f.StudentID && existing.Period == f.Period {
			return fee.Fee{}, fee.ErrDuplicateFee
		}
	}
	f.ID = uuid.New().String()
	repo.db.table[f.ID] = &f
	return f, nil
}

func (repo *feeRepository) GetFeeByID(ctx context.Context, id string) (fee.Fee, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if f, ok := repo.db.table[id]; ok {
		return *f, nil
	}
	return fee.Fee{}, fee.ErrNotFound
}

func (repo *feeRepository) QueryFees(ctx context.Context, filter *fee.QueryFilter, _ []core.DBOrdering) ([]fee.Fee, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var fees []fee.Fee
	for _, f := range repo.query() {
		if matchFee(f, filter) {
			fees = append(fees, f)
		}
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].DueDate.After(fees[j].DueDate) })
	return fees, nil
}

func matchFee(f fee.Fee, filter *fee.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.StudentID != "" && f.StudentID != filter.StudentID {
		return false
	}
	if filter.Period != "" && f.Period != filter.Period {
		return false
	}
	if filter.Status != "" && f.Status != filter.Status {
		return false
	}
	if !filter.DueFrom.IsZero() && f.DueDate.Before(filter.DueFrom) {
		return false
	}
	if !filter.DueTo.IsZero() && f.DueDate.After(filter.DueTo) {
		return false
	}
	return true
}

func (repo *feeRepository) TransitionFee(ctx context.Context, f fee.Fee, from string) (fee.Fee, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[f.ID]
	if !ok {
		return fee.Fee{}, fee.ErrNotFound
	}
	if orig.Status != from {
		return fee.Fee{}, fee.ErrInvalidTransition
	}
	f.StudentID = orig.StudentID
	f.CreatedAt = orig.CreatedAt
	repo.db.table[f.ID] = &f
	return f, nil
}

func (repo *feeRepository) DeleteFeesByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
