package flashsaleserver

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	salesapp "github.com/Apurer/flash-sale-engine/internal/domains/sales/application"
	salesdomain "github.com/Apurer/flash-sale-engine/internal/domains/sales/domain"
	salesports "github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
	userapp "github.com/Apurer/flash-sale-engine/internal/domains/users/application"
	userports "github.com/Apurer/flash-sale-engine/internal/domains/users/ports"
	apierrors "github.com/Apurer/flash-sale-engine/internal/shared/errors"
)

const retryAfterSeconds = 1

var responder = apierrors.NewChainedResponder("", salesProblem, userProblem)

// respondProblem maps a ProblemDetail through the shared responder.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	responder.Respond(c, problem)
}

func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

func salesProblem(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, salesapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, salesports.ErrIdempotencyConflict):
		return apierrors.ErrUnprocessable.WithDetail(err.Error()), true
	case errors.Is(err, salesports.ErrIdempotencyInFlight):
		return apierrors.ErrConflict.WithDetail(err.Error()).Retryable(retryAfterSeconds), true
	case errors.Is(err, salesdomain.ErrInsufficientStock):
		return apierrors.ErrConflict.WithDetail(err.Error()).Retryable(0), true
	case errors.Is(err, salesapp.ErrRejected):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, salesports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, salesports.ErrLockTimeout):
		return apierrors.ErrUnavailable.WithDetail("the product is busy, retry shortly").Retryable(retryAfterSeconds), true
	case errors.Is(err, salesports.ErrPersistence):
		return apierrors.ErrUnavailable.WithDetail("storage temporarily unavailable").Retryable(retryAfterSeconds), true
	}
	return apierrors.ProblemDetail{}, false
}

func userProblem(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, userapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, userapp.ErrConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, userports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func isNotFound(err error) bool {
	return errors.Is(err, salesports.ErrNotFound) || errors.Is(err, userports.ErrNotFound)
}

// parseIDParam binds a simple-style int64 path parameter.
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		responder.BadRequest(c, err.Error())
		return 0, false
	}
	return id, true
}

// bindQueryInt reads an optional form-style integer query parameter.
func bindQueryInt(c *gin.Context, name string, fallback int) (int, bool) {
	value := fallback
	if err := runtime.BindQueryParameter("form", true, false, name, c.Request.URL.Query(), &value); err != nil {
		responder.BadRequest(c, err.Error())
		return 0, false
	}
	return value, true
}
