package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core/news"
)

type newsApi struct {
	deps     *Deps
	svc      *news.Service
	validate *validator.Validate
}

func registerNewsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := newsApi{deps: deps, svc: deps.NewsSvc, validate: deps.Validate}

	ng := g.Group("/news")

	// published items are public; the detail view additionally lets an
	// authenticated admin through to an unpublished item
	ng.GET("", api.query)
	ng.GET("/:id", api.retrieve, optionalAuth(jwt))

	// management endpoints are admin-only, authed per route so the exact-path
	// handlers above stay public
	admin := []echo.MiddlewareFunc{jwt, sessionMiddleware(deps.AccountSvc), adminMiddleware()}
	ng.GET("/drafts", api.queryDrafts, admin...)
	ng.POST("", api.create, admin...)
	ng.PUT("/:id", api.update, admin...)
	ng.DELETE("/:id", api.destroy, admin...)
	ng.DELETE("", api.destroyMultiple, admin...)
}

// optionalAuth applies the JWT middleware only when the request carries an
// Authorization header; anonymous requests pass through unauthenticated.
func optionalAuth(jwt echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(ctx)
			}
			return jwt(next)(ctx)
		}
	}
}

// Handlers

func (api *newsApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data news.NewItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	item, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating news item")
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *newsApi) query(ctx echo.Context) error {
	filter := new(news.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []news.Item{})
	}
	filter.Clean()
	// the public listing never includes drafts
	filter.PublishedOnly = true
	ordering := new(Ordering)
	ordering.Bind(ctx)

	items, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying news items")
	}
	if items == nil {
		items = []news.Item{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *newsApi) retrieve(ctx echo.Context) error {
	item, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding news item by ID")
	}
	// unpublished items do not exist as far as the public is concerned;
	// an admin with a live session may still fetch them
	if !item.IsPublished() && !api.isAdminRequest(ctx) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *newsApi) isAdminRequest(ctx echo.Context) bool {
	claims, err := getContextClaims(ctx)
	if err != nil || !claims.IsAdmin() {
		return false
	}
	_, err = getContextAccount(ctx, api.deps.AccountSvc, claims)
	return err == nil
}

// queryDrafts lists every item, drafts included, for the admin area.
func (api *newsApi) queryDrafts(ctx echo.Context) error {
	filter := new(news.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []news.Item{})
	}
	filter.Clean()
	filter.PublishedOnly = false

	items, err := api.svc.Query(ctx.Request().Context(), filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying news items")
	}
	if items == nil {
		items = []news.Item{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *newsApi) update(ctx echo.Context) error {
	var data news.UpdateItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateItem")
	}

	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding news item by ID")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	item, err := api.svc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating news item")
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *newsApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting news item")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *newsApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting news items")
	}
	return ctx.NoContent(http.StatusNoContent)
}
