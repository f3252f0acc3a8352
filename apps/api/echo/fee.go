package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/fee"
)

type feeApi struct {
	deps     *Deps
	svc      *fee.Service
	validate *validator.Validate
}

func registerFeeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := feeApi{deps: deps, svc: deps.FeeSvc, validate: deps.Validate}

	fg := g.Group("/fees", jwt, sessionMiddleware(deps.AccountSvc))

	fg.GET("/me", api.mine)
	fg.POST("", api.create, adminMiddleware())
	fg.GET("", api.query, adminMiddleware())
	fg.DELETE("", api.destroyMultiple, adminMiddleware())
	fg.POST("/generate", api.generate, adminMiddleware())

	// detail endpoints
	dg := fg.Group("/:id")
	dg.GET("", api.retrieve, adminMiddleware())
	dg.POST("/proof", api.recordProof)
	dg.POST("/approve", api.approve, adminMiddleware())
	dg.POST("/reject", api.reject, adminMiddleware())
	dg.POST("/waive", api.waive, adminMiddleware())
	dg.POST("/reminder", api.sendReminder, adminMiddleware())
}

// Handlers

func (api *feeApi) create(ctx echo.Context) error {
	var data fee.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusCreated, withEffectiveStatus(f))
}

// mine lists the caller's own fees, resolved through their profile's
// student record.
func (api *feeApi) mine(ctx echo.Context) error {
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

	fees, err := api.svc.Query(ctx.Request().Context(), &fee.QueryFilter{StudentID: st.ID}, nil)
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	return ctx.JSON(http.StatusOK, withEffectiveStatuses(fees))
}

func (api *feeApi) query(ctx echo.Context) error {
	filter := new(fee.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []FeeResponse{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	fees, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	return ctx.JSON(http.StatusOK, withEffectiveStatuses(fees))
}

func (api *feeApi) retrieve(ctx echo.Context) error {
	f, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding fee by ID")
	}
	return ctx.JSON(http.StatusOK, withEffectiveStatus(f))
}

// generate bulk-creates the pending fees of a period for all enrolled
// students. Safe to re-run: existing (student, period) fees are skipped.
func (api *feeApi) generate(ctx echo.Context) error {
	var data GenerateFeesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateFeesRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	amount := data.Amount
	if amount == 0 {
		amount = api.deps.Conf.Fees.DefaultAmount
	}
	created, err := api.svc.GenerateMonthly(ctx.Request().Context(), data.Period, amount, data.DueDate)
	if err != nil {
		return errors.Wrap(err, "generating fees")
	}
	return ctx.JSON(http.StatusOK, GenerateFeesResponse{Created: created})
}

// recordProof attaches a payment proof reference to the caller's own
// pending fee (or any fee, for an admin) and moves it to pending approval.
func (api *feeApi) recordProof(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data RecordProofRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordProofRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding fee by ID")
	}

	if !claims.IsAdmin() {
		owned, err := api.ownsFee(ctx, claims.Subject, f)
		if err != nil {
			return err
		}
		if !owned {
			return errHttpNotFound
		}
	}

	f, err = api.svc.RecordProof(ctx.Request().Context(), f.ID, data.ProofRef, data.ProofFilename)
	if err != nil {
		return errors.Wrap(err, "recording payment proof")
	}
	return ctx.JSON(http.StatusOK, withEffectiveStatus(f))
}

func (api *feeApi) approve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	f, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "approving fee")
	}
	return ctx.JSON(http.StatusOK, withEffectiveStatus(f))
}

func (api *feeApi) reject(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data RejectFeeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectFeeRequest")
	}

	f, err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data.Reason)
	if err != nil {
		return errors.Wrap(err, "rejecting fee")
	}
	return ctx.JSON(http.StatusOK, withEffectiveStatus(f))
}

func (api *feeApi) waive(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	f, err := api.svc.Waive(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "waiving fee")
	}
	return ctx.JSON(http.StatusOK, withEffectiveStatus(f))
}

func (api *feeApi) sendReminder(ctx echo.Context) error {
	if err := api.svc.SendReminder(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "sending payment reminder")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Payment reminder sent."})
}

func (api *feeApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting fees")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownsFee reports whether the fee belongs to the student linked to the
// caller's profile.
func (api *feeApi) ownsFee(ctx echo.Context, authID string, f fee.Fee) (bool, error) {
	prof, err := api.deps.ProfileSvc.GetByAuthID(ctx.Request().Context(), authID)
	if err != nil {
		return false, errors.Wrap(err, "finding profile by auth ID")
	}
	st, err := api.deps.StudentSvc.GetByProfileID(ctx.Request().Context(), prof.ID)
	if err != nil {
		return false, errors.Wrap(err, "finding student by profile ID")
	}
	return f.StudentID == st.ID, nil
}

type (
	// FeeResponse is a Fee with the overdue state derived on top of the
	// stored status.
	FeeResponse struct {
		fee.Fee
		EffectiveStatus string `json:"effective_status"`
	}

	GenerateFeesRequest struct {
		Period  string    `json:"period" validate:"required,period"`
		Amount  int64     `json:"amount" validate:"omitempty,gt=0"`
		DueDate time.Time `json:"due_date" validate:"required"`
	}

	GenerateFeesResponse struct {
		Created int `json:"created"`
	}

	RecordProofRequest struct {
		ProofRef      string `json:"payment_proof_url" validate:"required"`
		ProofFilename string `json:"payment_proof_filename"`
	}

	RejectFeeRequest struct {
		Reason string `json:"rejection_reason"`
	}
)

func (gr *GenerateFeesRequest) Validate(validate *validator.Validate) error {
	gr.Period = core.CleanString(gr.Period)
	return validate.Struct(gr)
}

func (rp *RecordProofRequest) Validate(validate *validator.Validate) error {
	rp.ProofRef = core.CleanString(rp.ProofRef)
	rp.ProofFilename = core.CleanString(rp.ProofFilename)
	return validate.Struct(rp)
}

func withEffectiveStatus(f fee.Fee) FeeResponse {
	return FeeResponse{Fee: f, EffectiveStatus: f.EffectiveStatus(time.Now())}
}

func withEffectiveStatuses(fees []fee.Fee) []FeeResponse {
	now := time.Now()
	resp := make([]FeeResponse, 0, len(fees))
	for _, f := range fees {
		resp = append(resp, FeeResponse{Fee: f, EffectiveStatus: f.EffectiveStatus(now)})
	}
	return resp
}
