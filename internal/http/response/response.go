package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careerdesk/careerdesk-backend/internal/platform/apierr"
)

// ErrorBody is the wire shape for every failed request: a short machine
// code in error, the human explanation in detail.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	if code == "" {
		code = "internal"
	}
	c.JSON(status, ErrorBody{Error: code, Detail: detail})
}

// RespondAPIError renders any error through the apierr taxonomy, defaulting
// unknown errors to 500/internal.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.Internal(err)
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	RespondError(c, status, ae.Code, ae.Err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
