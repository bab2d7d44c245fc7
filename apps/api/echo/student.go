package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/event"
	"github.com/sutdhousing/portal/core/record"
	"github.com/sutdhousing/portal/core/student"
)

const defaultStudentsNum = 30

type studentApi struct {
	svc       student.Service
	appSvc    application.Service
	eventSvc  event.Service
	recordSvc record.Service
	validate  *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{
		svc:       deps.StudentSvc,
		appSvc:    deps.ApplicationSvc,
		eventSvc:  deps.EventSvc,
		recordSvc: deps.RecordSvc,
		validate:  deps.Validate,
	}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, adminMiddleware(false))
	sg.PUT("/house_guardians", api.setHouseGuardians, adminMiddleware(true))

	// detail endpoints
	dg := sg.Group("/:student_id")
	dg.GET("", api.retrieve, selfOrAdminMiddleware(false))
	dg.PUT("", api.update, selfOrAdminMiddleware(true))
	dg.PUT("/identity", api.updateIdentity, adminMiddleware(true))
	dg.PUT("/set_hg", api.setHouseGuardian, adminMiddleware(true))
	dg.PUT("/revoke_hg", api.revokeHouseGuardian, adminMiddleware(true))
	dg.PUT("/revoke_sg", api.revokeHouseGuardian, adminMiddleware(true))
	dg.PUT("/update_room_profile", api.updateRoomProfile, selfOrAdminMiddleware(true))
	dg.PUT("/update_lifestyle_profile", api.updateLifestyleProfile, selfOrAdminMiddleware(true))
	dg.GET("/events", api.events)
	dg.GET("/records", api.records, selfOrAdminMiddleware(false))
	dg.GET("/applications", api.applications, selfOrAdminMiddleware(false))
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, student.OrderingFields...); err != nil {
		return err
	}
	filter.Orderings = ordering.Orderings

	num := defaultStudentsNum
	if s := ctx.QueryParam("num"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return core.NewFieldValidationError("num", errors.New("must be a positive integer"))
		}
		num = n
	}

	students, err := api.svc.Query(ctx.Request().Context(), filter, num)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.EditableProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditableProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateEditable(ctx.Request().Context(), ctx.Param("student_id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) updateIdentity(ctx echo.Context) error {
	var data student.IdentityProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to IdentityProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateIdentity(ctx.Request().Context(), ctx.Param("student_id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student identity")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) setHouseGuardian(ctx echo.Context) error {
	return api.houseGuardian(ctx, true)
}

func (api *studentApi) revokeHouseGuardian(ctx echo.Context) error {
	return api.houseGuardian(ctx, false)
}

func (api *studentApi) houseGuardian(ctx echo.Context, isHG bool) error {
	s, err := api.svc.SetHouseGuardian(ctx.Request().Context(), ctx.Param("student_id"), isHG)
	if err != nil {
		return errors.Wrap(err, "setting house guardian")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) setHouseGuardians(ctx echo.Context) error {
	var data HouseGuardiansRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HouseGuardiansRequest")
	}
	data.StudentIDs = core.CleanStrings(data.StudentIDs)
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	results, err := api.svc.SetHouseGuardians(ctx.Request().Context(), data.StudentIDs)
	if err != nil {
		return errors.Wrap(err, "setting house guardians")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *studentApi) updateRoomProfile(ctx echo.Context) error {
	var data student.RoomProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RoomProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateRoomProfile(ctx.Request().Context(), ctx.Param("student_id"), data)
	if err != nil {
		return errors.Wrap(err, "updating room profile")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) updateLifestyleProfile(ctx echo.Context) error {
	var data student.LifestyleProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LifestyleProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateLifestyleProfile(ctx.Request().Context(), ctx.Param("student_id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lifestyle profile")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) events(ctx echo.Context) error {
	studentID := ctx.Param("student_id")
	if _, err := api.svc.Get(ctx.Request().Context(), studentID); err != nil {
		return errors.Wrap(err, "getting student")
	}
	events, err := api.eventSvc.QueryByStudent(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying student events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *studentApi) records(ctx echo.Context) error {
	studentID := ctx.Param("student_id")
	if _, err := api.svc.Get(ctx.Request().Context(), studentID); err != nil {
		return errors.Wrap(err, "getting student")
	}
	records, err := api.recordSvc.Query(ctx.Request().Context(), &record.QueryFilter{StudentID: studentID})
	if err != nil {
		return errors.Wrap(err, "querying student records")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *studentApi) applications(ctx echo.Context) error {
	studentID := ctx.Param("student_id")
	if _, err := api.svc.Get(ctx.Request().Context(), studentID); err != nil {
		return errors.Wrap(err, "getting student")
	}
	forms, err := api.appSvc.QueryByStudent(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying student applications")
	}
	return ctx.JSON(http.StatusOK, forms)
}

type HouseGuardiansRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1"`
}
