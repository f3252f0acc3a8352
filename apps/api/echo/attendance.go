package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core/attendance"
	"github.com/canteraproject/cantera/core/profile"
)

type attendanceApi struct {
	deps *Deps
	svc  *attendance.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := attendanceApi{deps: deps, svc: deps.AttendanceSvc}

	ag := g.Group("/attendance", jwt, sessionMiddleware(deps.AccountSvc))

	ag.POST("", api.mark, roleMiddleware(profile.RoleAdmin, profile.RoleCoach))
	ag.GET("", api.query, roleMiddleware(profile.RoleAdmin, profile.RoleCoach))
	ag.GET("/me", api.mine)
}

// Handlers

// mark writes a batch of attendance records; re-marking a (student, date)
// pair overwrites the previous value.
func (api *attendanceApi) mark(ctx echo.Context) error {
	var data MarkAttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendanceRequest")
	}
	if len(data.Records) == 0 {
		return attendance.ErrNoRecords
	}

	if err := api.svc.Mark(ctx.Request().Context(), data.Records...); err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

// mine lists the caller's own attendance history.
func (api *attendanceApi) mine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	prof, err := api.deps.ProfileSvc.GetByAuthID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding profile by auth ID")
	}
	st, err := api.deps.StudentSvc.GetByProfileID(ctx.Request().Context(), prof.ID)
	if err != nil {
		return errors.Wrap(err, "finding student by profile ID")
	}

	records, err := api.svc.Query(ctx.Request().Context(), &attendance.QueryFilter{StudentID: st.ID})
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

type MarkAttendanceRequest struct {
	Records []attendance.Record `json:"records"`
}
