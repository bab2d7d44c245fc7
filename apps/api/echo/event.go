package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core/event"
)

type eventApi struct {
	svc      event.Service
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := eventApi{
		svc:      deps.EventSvc,
		validate: deps.Validate,
	}

	eg := g.Group("/events", jwt)
	eg.POST("", api.create, houseGuardianOrAdminMiddleware(deps.StudentSvc))
	eg.GET("", api.queryUpcoming)
	eg.GET("/all", api.queryAll)

	// detail endpoints
	dg := eg.Group("/:uid")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, api.creatorOrAdminMiddleware())
	dg.DELETE("", api.destroy, api.creatorOrAdminMiddleware())
	dg.PUT("/signup", api.signup, studentMiddleware())
	dg.PUT("/quit", api.quit, studentMiddleware())
	dg.PUT("/attendance", api.attendance, api.creatorOrAdminMiddleware())
}

// creatorOrAdminMiddleware allows the creator of the :uid event and admins with write access.
func (api *eventApi) creatorOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("uid"))
			if err != nil {
				return errors.Wrap(err, "getting event")
			}
			if claims.IsAdminWrite || e.CreatedBy == claims.Username {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// Handlers

func (api *eventApi) create(ctx echo.Context) error {
	var data event.EventData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EventData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Create(ctx.Request().Context(), data, claims.Username)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *eventApi) queryUpcoming(ctx echo.Context) error {
	events, err := api.svc.QueryUpcoming(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying upcoming events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) queryAll(ctx echo.Context) error {
	events, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("uid"))
	if err != nil {
		return errors.Wrap(err, "getting event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.EventData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EventData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Update(ctx.Request().Context(), ctx.Param("uid"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("uid")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) signup(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Signup(ctx.Request().Context(), ctx.Param("uid"), claims.Username)
	if err != nil {
		return errors.Wrap(err, "signing up for event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) quit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Quit(ctx.Request().Context(), ctx.Param("uid"), claims.Username)
	if err != nil {
		return errors.Wrap(err, "quitting event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) attendance(ctx echo.Context) error {
	var data event.Attendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Attendance")
	}

	e, err := api.svc.RecordAttendance(ctx.Request().Context(), ctx.Param("uid"), data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusOK, e)
}
