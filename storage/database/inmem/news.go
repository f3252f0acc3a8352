package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/news"
)

type newsRepository struct {
	db *newsTable
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *DB) *newsRepository {
	return &newsRepository{db: db.news}
}

func (repo *newsRepository) CreateItem(ctx context.Context, item news.Item) (news.Item, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	item.ID = uuid.New().String()
	repo.db.table[item.ID] = &item
	return item, nil
}

func (repo *newsRepository) GetItemByID(ctx context.Context, id string) (news.Item, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if item, ok := repo.db.table[id]; ok {
		return *item, nil
	}
	return news.Item{}, news.ErrNotFound
}

func (repo *newsRepository) QueryItems(ctx context.Context, filter *news.QueryFilter, _ []core.DBOrdering) ([]news.Item, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var items []news.Item
	for _, item := range repo.db.table {
		if matchItem(*item, filter) {
			items = append(items, *item)
		}
	}
	// published first, newest first
	sort.Slice(items, func(i, j int) bool {
		if !items[i].PublishedAt.Equal(items[j].PublishedAt) {
			return items[i].PublishedAt.After(items[j].PublishedAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func matchItem(item news.Item, filter *news.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(item.Title), kw) &&
			!strings.Contains(strings.ToLower(item.Content), kw) {
			return false
		}
	}
	if filter.AuthorID != "" && item.AuthorID != filter.AuthorID {
		return false
	}
	if filter.PublishedOnly && !item.IsPublished() {
		return false
	}
	return true
}

func (repo *newsRepository) UpdateItem(ctx context.Context, item news.Item) (news.Item, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[item.ID]
	if !ok {
		return news.Item{}, news.ErrNotFound
	}
	item.AuthorID = orig.AuthorID
	item.CreatedAt = orig.CreatedAt
	repo.db.table[item.ID] = &item
	return item, nil
}

func (repo *newsRepository) DeleteItemsByID(ctx context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
