package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/registration"
	"github.com/canteraproject/cantera/core/session"
)

type authApi struct {
	deps     *Deps
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := authApi{deps: deps, validate: deps.Validate}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)

	// authed endpoints
	tg := ag.Group("", jwt)
	tg.POST("/logout", api.logout)
	tg.POST("/token-refresh", api.refreshToken)
	tg.GET("/session", api.session)
}

// Handlers

// signup creates a credential record only. The application profile is
// deferred until the first login's profile completion step.
func (api *authApi) signup(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acct, err := api.deps.AccountSvc.SignUp(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	return ctx.JSON(http.StatusCreated, acct)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, sess, dest, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.deps)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:           token,
		Role:            sess.Role,
		RequiresProfile: sess.RequiresProfile,
		Destination:     dest,
	})
}

// register runs the full student enrollment: account, profile and student
// record in one call.
func (api *authApi) register(ctx echo.Context) error {
	var data registration.StudentRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentRegistration")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.deps.RegistrationSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

// logout revokes the token's session. Logging out twice is not an error.
func (api *authApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.deps.AccountSvc.SignOut(ctx.Request().Context(), claims.SessionID); err != nil {
		return errors.Wrap(err, "signing out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.deps)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// session re-resolves the caller's session state; the frontend uses it to
// re-route after profile completion.
func (api *authApi) session(ctx echo.Context) error {
	acct, err := getContextAccount(ctx, api.deps.AccountSvc)
	if err != nil {
		return err
	}
	sess, err := api.deps.Bootstrapper.Bootstrap(ctx.Request().Context(), acct)
	if err != nil {
		return errors.Wrap(err, "bootstrapping session")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{
		Session:     sess,
		Destination: session.Route(sess.Role, sess.RequiresProfile),
	})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token           string              `json:"token"`
		Role            string              `json:"role,omitempty"`
		RequiresProfile bool                `json:"requires_profile,omitempty"`
		Destination     session.Destination `json:"destination,omitempty"`
	}

	SessionResponse struct {
		Session     session.Session     `json:"session"`
		Destination session.Destination `json:"destination"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
