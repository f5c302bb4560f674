package response

import (
	"github.com/gin-gonic/gin"

	"github.com/abdullah0408/server/internal/platform/apierr"
)

// RespondAPIError writes err with the status its apierr sentinel maps to. code
// is used unless err already carries one.
func RespondAPIError(c *gin.Context, err error, code string) {
	ae := apierr.From(err, code)
	if ae.Code != "" {
		code = ae.Code
	}
	RespondError(c, ae.Status, code, err)
}
