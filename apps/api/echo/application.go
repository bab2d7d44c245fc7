package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core/application"
)

type applicationApi struct {
	svc      application.Service
	validate *validator.Validate
}

func registerApplicationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := applicationApi{
		svc:      deps.ApplicationSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/applications", jwt)
	ag.POST("", api.submit, studentMiddleware())
	ag.GET("", api.query, adminMiddleware(false))

	// wizard drafts
	dg := ag.Group("/drafts/:period_uid", studentMiddleware())
	dg.GET("", api.retrieveDraft)
	dg.PUT("", api.saveDraft)
	dg.DELETE("", api.destroyDraft)

	// detail endpoints
	ag.GET("/:uid", api.retrieve, api.ownerOrAdminMiddleware())
	ag.PUT("/:uid/withdraw", api.withdraw, studentMiddleware(), api.ownerOrAdminMiddleware())
	ag.PUT("/:uid/status", api.setStatus, adminMiddleware(true))
}

// ownerOrAdminMiddleware loads the form of the :uid param for its owner and admins.
func (api *applicationApi) ownerOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("uid"))
			if err != nil {
				return errors.Wrap(err, "getting application")
			}
			if canRead(claims, f.StudentID) {
				ctx.Set("object", f)
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// Handlers

func (api *applicationApi) submit(ctx echo.Context) error {
	var data application.NewForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForm")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.Submit(ctx.Request().Context(), claims.Username, data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *applicationApi) query(ctx echo.Context) error {
	filter := new(application.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	forms, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	return ctx.JSON(http.StatusOK, forms)
}

func (api *applicationApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *applicationApi) withdraw(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	f, _ := ctx.Get("object").(application.Form)
	if f.StudentID != claims.Username {
		return errHttpForbidden
	}

	f, err = api.svc.Withdraw(ctx.Request().Context(), f.UID)
	if err != nil {
		return errors.Wrap(err, "withdrawing application")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *applicationApi) setStatus(ctx echo.Context) error {
	var data application.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("uid"), data)
	if err != nil {
		return errors.Wrap(err, "setting application status")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *applicationApi) retrieveDraft(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.GetDraft(ctx.Request().Context(), claims.Username, ctx.Param("period_uid"))
	if err != nil {
		return errors.Wrap(err, "getting draft")
	}
	return ctx.JSON(http.StatusOK, d)
}

// saveDraft merges the sections of the payload into the draft and moves it to the given step.
func (api *applicationApi) saveDraft(ctx echo.Context) error {
	var data application.DraftUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DraftUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.SaveDraft(ctx.Request().Context(), claims.Username, ctx.Param("period_uid"), data)
	if err != nil {
		return errors.Wrap(err, "saving draft")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *applicationApi) destroyDraft(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteDraft(ctx.Request().Context(), claims.Username, ctx.Param("period_uid")); err != nil {
		return errors.Wrap(err, "deleting draft")
	}
	return ctx.NoContent(http.StatusNoContent)
}
