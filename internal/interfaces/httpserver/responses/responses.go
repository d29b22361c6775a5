package responses

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

// HandleError renders err as a JSON error response. Platform errors keep their
// type and code; anything else becomes an opaque 500.
func HandleError(c *gin.Context, log zerolog.Logger, err error) {
	platformerrors.WriteError(c, err, log)
}

// HandleNewError creates a new typed error at the route layer and handles it
func HandleNewError(c *gin.Context, log zerolog.Logger, errorType platformerrors.ErrorType, message string, uuid string) {
	err := platformerrors.NewError(c.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, uuid)
	platformerrors.WriteHTTPError(c, err, log)
}
