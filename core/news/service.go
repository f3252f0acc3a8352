package news

import (
	"context"
	"errors"
	"time"

	"github.com/canteraproject/cantera/core"
)

var ErrNotFound = errors.New("news item not found")

type (
	Repository interface {
		CreateItem(ctx context.Context, item Item) (Item, error)
		GetItemByID(ctx context.Context, id string) (Item, error)
		// QueryItems applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on title or content.
		QueryItems(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Item, error)
		UpdateItem(ctx context.Context, item Item) (Item, error)
		DeleteItemsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, authorID string, ni NewItem) (Item, error) {
	now := time.Now().UTC()
	item := Item{
		Title:     ni.Title,
		Content:   ni.Content,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ni.Publish {
		item.PublishedAt = now
	}
	return svc.repo.CreateItem(ctx, item)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Item, error) {
	return svc.repo.GetItemByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Item, error) {
	return svc.repo.QueryItems(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, ui UpdateItem) (Item, error) {
	orig, err := svc.repo.GetItemByID(ctx, id)
	if err != nil {
		return Item{}, err
	}
	orig.Title = ui.Title
	orig.Content = ui.Content
	if ui.Publish != nil {
		if *ui.Publish && !orig.IsPublished() {
			orig.PublishedAt = time.Now().UTC()
		} else if !*ui.Publish {
			orig.PublishedAt = time.Time{}
		}
	}
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateItem(ctx, orig)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteItemsByID(ctx, ids...)
}
