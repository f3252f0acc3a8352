package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/profile"
)

type profileRepository struct {
	db *profileTable
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db.profile}
}

func (repo *profileRepository) query() []profile.Profile {
	profs := make([]profile.Profile, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		profs = append(profs, *p)
	}
	return profs
}

func (repo *profileRepository) CreateProfile(ctx context.Context, prof profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, p := range repo.db.table {
		if p.Email == prof.Email {
			return profile.Profile{}, profile.ErrEmailExists
		}
		if prof.AuthID != "" && p.AuthID == prof.AuthID {
			return profile.Profile{}, profile.ErrProfileExists
		}
	}
	prof.ID = uuid.New().String()
	repo.db.table[prof.ID] = &prof
	return prof, nil
}

func (repo *profileRepository) GetProfileByID(ctx context.Context, id string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prof, ok := repo.db.table[id]; ok {
		return *prof, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) GetProfileByAuthID(ctx context.Context, authID string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, prof := range repo.query() {
		if prof.AuthID != "" && prof.AuthID == authID {
			return prof, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) GetProfileByEmail(ctx context.Context, email string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, prof := range repo.query() {
		if prof.Email == email {
			return prof, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryProfiles(ctx context.Context, filter *profile.QueryFilter, _ []core.DBOrdering) ([]profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var profs []profile.Profile
	for _, prof := range repo.query() {
		if matchProfile(prof, filter) {
			profs = append(profs, prof)
		}
	}
	sort.Slice(profs, func(i, j int) bool { return profs[i].CreatedAt.After(profs[j].CreatedAt) })
	return profs, nil
}

func matchProfile(prof profile.Profile, filter *profile.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(prof.FirstName), kw) &&
			!strings.Contains(strings.ToLower(prof.LastName), kw) &&
			!strings.Contains(strings.ToLower(prof.Email), kw) {
			return false
		}
	}
	if filter.Role != "" && prof.Role != filter.Role {
		return false
	}
	if filter.Status != "" && prof.Status != filter.Status {
		return false
	}
	if filter.Category != "" && prof.Category != filter.Category {
		return false
	}
	if filter.Completed != nil && prof.Completed != *filter.Completed {
		return false
	}
	return true
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, prof profile.Profile, completed *bool) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[prof.ID]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	for id, p := range repo.db.table {
		if id != prof.ID && p.Email == prof.Email {
			return profile.Profile{}, profile.ErrEmailExists
		}
	}

	prof.CreatedAt = orig.CreatedAt
	if completed != nil {
		prof.Completed = *completed
	} else {
		prof.Completed = orig.Completed
	}
	repo.db.table[prof.ID] = &prof
	return prof, nil
}

func (repo *profileRepository) DeleteProfilesByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
