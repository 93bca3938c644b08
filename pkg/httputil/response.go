package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/openphms/admin-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a 201 with the created resource
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError maps the error's code to an HTTP status. Unrecognized
// errors come out as a generic 500 so internals never leak to the client.
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}

	message := appErr.Message
	if appErr.Code == apperrors.ErrInternal || appErr.Code == apperrors.ErrStorage {
		message = "internal server error"
	}

	c.Error(err)
	c.JSON(appErr.StatusCode(), Response{
		Success: false,
		Error: &Error{
			Code:    appErr.Code.String(),
			Message: message,
			Field:   appErr.Field,
		},
	})
}

// RespondWithValidationError reports a request-binding failure.
func RespondWithValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error: &Error{
			Code:    apperrors.ErrValidation.String(),
			Message: err.Error(),
		},
	})
}
