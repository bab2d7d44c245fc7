package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/period"
	exportsvc "github.com/sutdhousing/portal/services/export"
)

type periodApi struct {
	svc      period.Service
	appSvc   application.Service
	validate *validator.Validate
}

func registerPeriodAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := periodApi{
		svc:      deps.PeriodSvc,
		appSvc:   deps.ApplicationSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/application_periods", jwt)
	pg.POST("", api.create, adminMiddleware(true))
	pg.GET("", api.queryOngoing)
	pg.GET("/all", api.queryAll, adminMiddleware(false))
	pg.GET("/:uid", api.retrieve)
	pg.PUT("/:uid", api.update, adminMiddleware(true))
	pg.DELETE("/:uid", api.destroy, adminMiddleware(true))
	pg.GET("/:uid/export", api.export, adminMiddleware(false))
}

// Handlers

func (api *periodApi) create(ctx echo.Context) error {
	var data period.PeriodData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PeriodData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Create(ctx.Request().Context(), data, claims.Username)
	if err != nil {
		return errors.Wrap(err, "creating application period")
	}
	return ctx.JSON(http.StatusCreated, p)
}

// queryOngoing lists the open periods. Students only see the periods they may apply to.
func (api *periodApi) queryOngoing(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var studentID string
	if !claims.IsAdmin {
		studentID = claims.Username
	}

	periods, err := api.svc.QueryOngoing(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying ongoing application periods")
	}
	return ctx.JSON(http.StatusOK, periods)
}

func (api *periodApi) queryAll(ctx echo.Context) error {
	periods, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying application periods")
	}
	return ctx.JSON(http.StatusOK, periods)
}

func (api *periodApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("uid"))
	if err != nil {
		return errors.Wrap(err, "getting application period")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *periodApi) update(ctx echo.Context) error {
	var data period.PeriodData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PeriodData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Update(ctx.Request().Context(), ctx.Param("uid"), data)
	if err != nil {
		return errors.Wrap(err, "updating application period")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *periodApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("uid")); err != nil {
		return errors.Wrap(err, "deleting application period")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// export sends the applications of the period as an xlsx workbook.
func (api *periodApi) export(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("uid"))
	if err != nil {
		return errors.Wrap(err, "getting application period")
	}
	forms, err := api.appSvc.Query(ctx.Request().Context(), &application.QueryFilter{PeriodUID: p.UID})
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}

	data, err := exportsvc.Applications(forms)
	if err != nil {
		return errors.Wrap(err, "exporting applications")
	}
	return attachment(ctx, exportsvc.Filename("applications_"+p.ApplicationWindowOpen.Format("20060102"), time.Now()), data)
}

func attachment(ctx echo.Context, filename string, data []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, exportsvc.ContentType, data)
}
