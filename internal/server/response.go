package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

// Response is the fixed API envelope. Success is code 0; error categories
// map to distinct numeric codes.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: errs.CodeOK, Message: "ok", Data: data})
}

func respondError(c *gin.Context, err error) {
	code := errs.CodeOf(err)

	status := http.StatusOK
	switch code {
	case errs.CodeAuth:
		status = http.StatusUnauthorized
	case errs.CodeInternal:
		status = http.StatusInternalServerError
	}

	// Internal detail stays in the logs; the caller only sees the message.
	c.JSON(status, Response{Code: code, Message: err.Error(), Data: nil})
}
