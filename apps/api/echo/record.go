package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core/record"
	exportsvc "github.com/sutdhousing/portal/services/export"
)

type recordApi struct {
	svc      record.Service
	validate *validator.Validate
}

func registerRecordAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := recordApi{
		svc:      deps.RecordSvc,
		validate: deps.Validate,
	}

	rg := g.Group("/records", jwt)
	rg.POST("", api.create, adminMiddleware(true))
	rg.GET("", api.query, adminMiddleware(false))
	rg.GET("/export", api.export, adminMiddleware(false))

	// detail endpoints
	rg.GET("/:uid", api.retrieve)
	rg.PUT("/:uid", api.update, adminMiddleware(true))
	rg.DELETE("/:uid", api.destroy, adminMiddleware(true))
}

// Handlers

func (api *recordApi) create(ctx echo.Context) error {
	var data record.RecordData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.Create(ctx.Request().Context(), data, claims.Username)
	if err != nil {
		return errors.Wrap(err, "creating disciplinary record")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *recordApi) query(ctx echo.Context) error {
	filter := new(record.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, record.OrderingFields...); err != nil {
		return err
	}
	filter.Orderings = ordering.Orderings

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying disciplinary records")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *recordApi) export(ctx echo.Context) error {
	records, err := api.svc.Query(ctx.Request().Context(), &record.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying disciplinary records")
	}
	data, err := exportsvc.Records(records)
	if err != nil {
		return errors.Wrap(err, "exporting disciplinary records")
	}
	return attachment(ctx, exportsvc.Filename("disciplinary_records", time.Now()), data)
}

// retrieve is allowed to admins and the student the record is about.
func (api *recordApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	r, err := api.svc.Get(ctx.Request().Context(), ctx.Param("uid"))
	if err != nil {
		return errors.Wrap(err, "getting disciplinary record")
	}
	if !canRead(claims, r.StudentID) {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *recordApi) update(ctx echo.Context) error {
	var data record.RecordData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Update(ctx.Request().Context(), ctx.Param("uid"), data)
	if err != nil {
		return errors.Wrap(err, "updating disciplinary record")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *recordApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("uid")); err != nil {
		return errors.Wrap(err, "deleting disciplinary record")
	}
	return ctx.NoContent(http.StatusNoContent)
}
