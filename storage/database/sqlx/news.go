package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/news"
)

type newsRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Content     string      `db:"content"`
	AuthorID    null.String `db:"author_id"`
	PublishedAt null.Time   `db:"published_at"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type newsRepository struct {
	db *sqlx.DB
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *sqlx.DB) *newsRepository {
	return &newsRepository{db: db}
}

func (repo newsRepository) pack(item news.Item) newsRow {
	return newsRow{
		ID:          item.ID,
		Title:       item.Title,
		Content:     item.Content,
		AuthorID:    null.NewString(item.AuthorID, item.AuthorID != ""),
		PublishedAt: null.NewTime(item.PublishedAt.UTC(), !item.PublishedAt.IsZero()),
		CreatedAt:   item.CreatedAt.UTC(),
		UpdatedAt:   item.UpdatedAt.UTC(),
	}
}

func (repo newsRepository) unpack(row newsRow) news.Item {
	return news.Item{
		ID:          row.ID,
		Title:       row.Title,
		Content:     row.Content,
		AuthorID:    row.AuthorID.String,
		PublishedAt: row.PublishedAt.Time,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to news.ErrNotFound
func (repo newsRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return news.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo newsRepository) CreateItem(ctx context.Context, item news.Item) (news.Item, error) {
	item.ID = uuid.New().String()
	row := repo.pack(item)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO news (id, title, content, author_id, published_at, created_at, updated_at)
		VALUES (:id, :title, :content, :author_id, :published_at, :created_at, :updated_at)`, row)
	if err != nil {
		return news.Item{}, errors.Wrap(err, "inserting news item")
	}
	return repo.unpack(row), nil
}

func (repo newsRepository) GetItemByID(ctx context.Context, id string) (news.Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return news.Item{}, news.ErrNotFound
	}
	var row newsRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM news WHERE id = $1", id); err != nil {
		return news.Item{}, repo.trapNoRowsErr(err, "finding news item by ID")
	}
	return repo.unpack(row), nil
}

func (repo newsRepository) QueryItems(ctx context.Context, filter *news.QueryFilter, ordering []core.DBOrdering) ([]news.Item, error) {
	query := "SELECT * FROM news"
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, "(title ILIKE ? OR content ILIKE ?)")
			args = append(args, val, val)
		}
		if filter.AuthorID != "" {
			conds = append(conds, "author_id = ?")
			args = append(args, filter.AuthorID)
		}
		if filter.PublishedOnly {
			conds = append(conds, "published_at IS NOT NULL")
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderBy(ordering, "published_at DESC NULLS LAST, created_at DESC")

	var rows []newsRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying news items")
	}
	items := make([]news.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, repo.unpack(row))
	}
	return items, nil
}

func (repo newsRepository) UpdateItem(ctx context.Context, item news.Item) (news.Item, error) {
	row := repo.pack(item)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE news SET title = :title, content = :content, published_at = :published_at, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return news.Item{}, errors.Wrap(err, "updating news item")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return news.Item{}, news.ErrNotFound
	}
	return repo.unpack(row), nil
}

func (repo newsRepository) DeleteItemsByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In("DELETE FROM news WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "deleting news items")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting news items")
	}
	return nil
}
