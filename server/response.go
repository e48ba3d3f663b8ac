package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/flowgen/errors"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries list metadata.
type Meta struct {
	Total int `json:"total"`
}

// RespondWithError derives status and body from an AppError, or sends a
// generic 500 for anything else.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondList sends a 200 response with a total count.
func RespondList(c *gin.Context, data any, total int) {
	c.JSON(http.StatusOK, DataResponse{Data: data, Meta: &Meta{Total: total}})
}

// RespondAccepted sends a 202 response wrapping data.
func RespondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, DataResponse{Data: data})
}

// RespondNoContent sends a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
