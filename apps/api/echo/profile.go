package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core/profile"
)

var errProfNotFoundInCtx = errors.New("profile object not found in echo.Context")

type profileApi struct {
	deps     *Deps
	svc      *profile.Service
	validate *validator.Validate
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := profileApi{deps: deps, svc: deps.ProfileSvc, validate: deps.Validate}

	pg := g.Group("/profiles", jwt, sessionMiddleware(deps.AccountSvc))

	pg.POST("/complete", api.complete)
	pg.GET("/me", api.me)
	pg.GET("", api.query, adminMiddleware())
	pg.DELETE("", api.destroyMultiple, adminMiddleware())

	// detail endpoints
	dg := pg.Group("/:id", api.ownProfileOrAdminMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

// complete sets the caller's own profile data after their first login,
// creating the profile if it does not exist yet.
func (api *profileApi) complete(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if _, err = getContextAccount(ctx, api.deps.AccountSvc, claims); err != nil {
		return err
	}

	var data profile.CompleteProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prof, err := api.svc.Complete(ctx.Request().Context(), claims.Subject, claims.Email, data)
	if err != nil {
		return errors.Wrap(err, "completing profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	prof, err := api.svc.GetByAuthID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding profile by auth ID")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) query(ctx echo.Context) error {
	filter := new(profile.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []profile.Profile{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	profs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	if profs == nil {
		profs = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(profile.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) update(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(profile.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}

	var data profile.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin() {
		// `Email`, `Role`, `Status` and `Completed` can only be changed by admin
		if data.Email != "" || data.Role != "" || data.Status != "" || data.Completed != nil {
			return errHttpForbidden
		}
	}

	if err := data.Validate(prof, api.validate); err != nil {
		return err
	}

	prof, err = api.svc.Update(ctx.Request().Context(), prof.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *profileApi) destroy(ctx echo.Context) error {
	prof, ok := ctx.Get("object").(profile.Profile)
	if !ok {
		return errors.Wrap(errProfNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), prof.ID); err != nil {
		return errors.Wrap(err, "deleting profile")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *profileApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting profiles")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownProfileOrAdminMiddleware lets a profile's owner or an admin through,
// loading the profile into the context. Anyone else gets a 404, not a 403:
// the resource's existence is not leaked.
func (api *profileApi) ownProfileOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			prof, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == profile.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding profile by ID")
			}

			if claims.IsAdmin() || prof.AuthID == claims.Subject {
				ctx.Set("object", prof)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}
