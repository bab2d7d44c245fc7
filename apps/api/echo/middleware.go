package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sutdhousing/portal/core/student"
)

// adminMiddleware allows admins. When write is set, only admins with write access.
func adminMiddleware(write bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdmin && (!write || claims.IsAdminWrite) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsStudent {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// selfOrAdminMiddleware allows the student named by the :student_id param and admins.
// When write is set, admins need write access.
func selfOrAdminMiddleware(write bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if isSelf(claims, ctx.Param("student_id")) || (claims.IsAdmin && (!write || claims.IsAdminWrite)) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// houseGuardianOrAdminMiddleware allows admins with write access and house guardians.
// The house guardian flag is read from storage so that revocations apply immediately.
func houseGuardianOrAdminMiddleware(svc student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.IsAdminWrite {
				return next(ctx)
			}
			if claims.IsStudent {
				isHG, err := svc.IsHouseGuardian(ctx.Request().Context(), claims.Username)
				if err != nil && errors.Cause(err) != student.ErrNotFound {
					return errors.Wrap(err, "checking house guardian")
				}
				if isHG {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func isSelf(claims Claims, studentID string) bool {
	return claims.IsStudent && studentID != "" && claims.Username == studentID
}

// canRead reports whether claims may read a resource owned by studentID.
func canRead(claims Claims, studentID string) bool {
	return claims.IsAdmin || isSelf(claims, studentID)
}
