package news

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/canteraproject/cantera/core"
)

// Item is an announcement. An item is a draft until PublishedAt is set.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"author_id"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (i *Item) IsPublished() bool { return !i.PublishedAt.IsZero() }

// NewItem contains information needed to create a news Item.
type NewItem struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Publish bool   `json:"publish"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.Title = core.CleanString(ni.Title)
	ni.Content = core.CleanString(ni.Content)
	return validate.Struct(ni)
}

// UpdateItem defines what may be modified on an existing Item.
// Empty fields keep their previous value.
type UpdateItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Publish *bool  `json:"publish"`
}

func (ui *UpdateItem) Validate(orig Item, validate *validator.Validate) error {
	if title := core.CleanString(ui.Title); title != "" {
		ui.Title = title
	} else {
		ui.Title = orig.Title
	}
	if content := core.CleanString(ui.Content); content != "" {
		ui.Content = content
	} else {
		ui.Content = orig.Content
	}
	return validate.Struct(ui)
}

type QueryFilter struct {
	Search        string `query:"search"`
	AuthorID      string `query:"author_id"`
	PublishedOnly bool   `query:"published"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.AuthorID == "" && !qf.PublishedOnly
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
