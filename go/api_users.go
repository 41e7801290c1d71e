package flashsaleserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userhttpmapper "github.com/Apurer/flash-sale-engine/internal/domains/users/adapters/http/mapper"
	userports "github.com/Apurer/flash-sale-engine/internal/domains/users/ports"
	apierrors "github.com/Apurer/flash-sale-engine/internal/shared/errors"
)

// UserAPI implements the user section of the API.
type UserAPI struct {
	service userports.Service
}

// NewUserAPI wires dependencies.
func NewUserAPI(service userports.Service) UserAPI {
	return UserAPI{service: service}
}

// Post /v1/users
// Register a buyer
func (api *UserAPI) RegisterUser(c *gin.Context) {
	var payload userhttpmapper.RegisterRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	user, err := api.service.Register(c.Request.Context(), payload.Email, payload.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userhttpmapper.FromDomainUser(user))
}

// Get /v1/users/:userId
func (api *UserAPI) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	user, err := api.service.GetUser(c.Request.Context(), id)
	if err != nil {
		if isNotFound(err) {
			respondProblem(c, apierrors.NewNotFoundProblem("user", id))
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userhttpmapper.FromDomainUser(user))
}
