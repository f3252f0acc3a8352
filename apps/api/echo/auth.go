package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/session"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "accountToken",
		Claims:        new(Claims),
	}
	contextAccountKey = "account"

	jwtConf *core.Config
)

func initJWTConfig(conf *core.Config) {
	appJWTConfig.SigningKey = []byte(conf.SecretKey)
	jwtConf = conf
}

// Claims represents the authorization claims transmitted via a JWT.
// SessionID ties the token to a server-side session: a token whose session
// has been deleted is dead regardless of its expiry.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt    int64  `json:"oriat,omitempty"`
	SessionID       string `json:"sid,omitempty"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	RequiresProfile bool   `json:"requires_profile,omitempty"`
}

func (c *Claims) IsAdmin() bool   { return c.Role == profile.RoleAdmin }
func (c *Claims) IsCoach() bool   { return c.Role == profile.RoleCoach }
func (c *Claims) IsStudent() bool { return c.Role == profile.RoleStudent }

func GetSessionClaims(sess session.Session, sessionID string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    jwtConf.AppName,
			Subject:   sess.Account.ID,
			Audience:  "Cantera",
			ExpiresAt: now.Add(jwtConf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:    oriat,
		SessionID:       sessionID,
		Email:           sess.Account.Email,
		Role:            sess.Role,
		RequiresProfile: sess.RequiresProfile,
	}
}

// authenticate signs an account in, bootstraps its session state and
// resolves the landing destination.
func authenticate(ctx context.Context, email, pwd string, deps *Deps) (*Claims, session.Session, session.Destination, error) {
	acct, sessionID, err := deps.AccountSvc.SignIn(ctx, email, pwd)
	if err != nil {
		if errors.Cause(err) == account.ErrInvalidCredentials {
			return nil, session.Session{}, "", errAuthenticationFailed
		}
		return nil, session.Session{}, "", errors.Wrap(err, "signing in")
	}

	sess, err := deps.Bootstrapper.Bootstrap(ctx, acct)
	if err != nil {
		return nil, session.Session{}, "", errors.Wrap(err, "bootstrapping session")
	}

	dest := session.Route(sess.Role, sess.RequiresProfile)
	return GetSessionClaims(sess, sessionID), sess, dest, nil
}

// GenerateToken generates a signed JWT token string representing the claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey.([]byte))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextAccount resolves the authenticated account, checking that the
// token's session is still alive. The account is cached on the context.
func getContextAccount(ctx echo.Context, svc *account.Service, clms ...Claims) (account.Account, error) {
	if acct, ok := ctx.Get(contextAccountKey).(account.Account); ok {
		return acct, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return account.Account{}, errors.Wrap(err, "getting context claims")
		}
	}

	acct, err := svc.GetSessionAccount(ctx.Request().Context(), claims.SessionID)
	if err != nil {
		if errors.Cause(err) == account.ErrNotAuthenticated {
			return account.Account{}, errUnauthorized
		}
		return account.Account{}, errors.Wrap(err, "getting session account")
	}
	ctx.Set(contextAccountKey, acct)
	return acct, nil
}

func refreshToken(ctx echo.Context, deps *Deps) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	acct, err := getContextAccount(ctx, deps.AccountSvc, claims)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(jwtConf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	// the role or profile state may have changed since sign-in
	sess, err := deps.Bootstrapper.Bootstrap(ctx.Request().Context(), acct)
	if err != nil {
		return "", errors.Wrap(err, "bootstrapping session")
	}

	newClaims := GetSessionClaims(sess, claims.SessionID, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
