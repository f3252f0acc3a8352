package echoapi

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
)

type diagApi struct {
	db *sqlx.DB
}

func registerDiagAPI(g *echo.Group, db *sqlx.DB) {
	api := diagApi{db: db}
	g.GET("/test-db", api.testDB)
}

type testDBResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`
}

// testDB checks database connectivity and runs a trivial query so a broken
// deployment can be diagnosed from the outside.
func (api *diagApi) testDB(ctx echo.Context) error {
	if api.db == nil {
		return ctx.JSON(http.StatusServiceUnavailable, testDBResponse{
			Success: false,
			Message: "Database connection failed",
			Error:   "database not configured",
		})
	}

	if err := api.db.PingContext(ctx.Request().Context()); err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, testDBResponse{
			Success: false,
			Message: "Database connection failed",
			Error:   "ping failed",
			Details: err.Error(),
		})
	}

	var count int
	if err := api.db.GetContext(ctx.Request().Context(), &count, "SELECT COUNT(*) FROM users"); err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, testDBResponse{
			Success: false,
			Message: "Database connection failed",
			Error:   "query failed",
			Details: err.Error(),
		})
	}

	return ctx.JSON(http.StatusOK, testDBResponse{
		Success: true,
		Message: "Database connection successful",
		Data:    echo.Map{"user_count": count},
	})
}
