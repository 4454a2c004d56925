package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funny-ai-box/paraluxflow/pkg/errs"
)

// handleProxyImage streams a remote image through the server, trying the
// proxy path first and falling back to a direct fetch.
func (s *Server) handleProxyImage(c *gin.Context) {
	imageURL := c.Query("url")
	if imageURL == "" {
		respondError(c, errs.Validation("url is required"))
		return
	}

	data, mime, err := s.ContentFetcher.ProxyImage(c.Request.Context(), imageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, mime, data)
}
