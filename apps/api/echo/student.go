package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutordesk/core/student"
)

type studentApi struct {
	svc               student.Service
	validate          *validator.Validate
	defaultExpiryDays int
}

func registerStudentAPI(g *echo.Group, svc student.Service, validate *validator.Validate, defaultExpiryDays int) {
	api := studentApi{svc: svc, validate: validate, defaultExpiryDays: defaultExpiryDays}

	students := g.Group("/students")
	students.GET("", api.query)
	students.POST("", api.create)
	students.GET("/dashboard", api.dashboard)
	students.GET("/expiring", api.expiring)
	students.GET("/status/:status", api.queryByStatus)
	students.GET("/:id", api.retrieve)
	students.PUT("/:id", api.update)
	students.DELETE("/:id", api.destroy)
	students.PUT("/:id/subscription", api.updateSubscription)
	students.POST("/:id/subscription/toggle", api.toggleSubscription)
	students.POST("/:id/subscription/extend", api.extendSubscription)
	students.POST("/:id/progress", api.addProgress)
	students.POST("/:id/payments", api.addPayment)
}

func criteriaFromQuery(ctx echo.Context) student.Criteria {
	return student.NewCriteria(ctx.QueryParam("search"), ctx.QueryParam("status"), ctx.QueryParam("course"))
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.Filter(ctx.Request().Context(), criteriaFromQuery(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context(), criteriaFromQuery(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *studentApi) expiring(ctx echo.Context) error {
	days, err := intQueryParam(ctx, "days", api.defaultExpiryDays)
	if err != nil {
		return err
	}
	students, err := api.svc.QueryExpiring(ctx.Request().Context(), days)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) queryByStatus(ctx echo.Context) error {
	status := student.Status(strings.ToUpper(ctx.Param("status")))
	students, err := api.svc.QueryByStatus(ctx.Request().Context(), status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	orig, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(reqCtx, api.validate, orig, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Update(reqCtx, orig.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) updateSubscription(ctx echo.Context) error {
	var data student.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) toggleSubscription(ctx echo.Context) error {
	s, err := api.svc.Toggle(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) extendSubscription(ctx echo.Context) error {
	var data student.ExtendSubscription
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExtendSubscription")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.ExtendSubscription(ctx.Request().Context(), ctx.Param("id"), data.Months)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) addProgress(ctx echo.Context) error {
	var data student.NewProgressEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgressEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.AddProgress(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) addPayment(ctx echo.Context) error {
	var data student.NewPaymentEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPaymentEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.AddPayment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
