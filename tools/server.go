package tools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/amansk/librelink-mcp-server/librelink"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const invocationTimeout = 10 * time.Second

// Server maps registry tools onto HTTP routes. Listing is GET /tools,
// invocation is POST /tools/:name with the JSON input as the body.
type Server struct {
	Registry *Registry
	Logger   *zap.Logger
}

func (s *Server) Routes() *gin.Engine {
	r := gin.Default()

	r.GET("/tools", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Registry.List())
	})

	r.POST("/tools/:name", func(c *gin.Context) {
		name := c.Param("name")
		tool, ok := s.Registry.Lookup(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tool: " + name})
			return
		}

		input, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), invocationTimeout)
		defer cancel()

		res, err := tool.Handler(ctx, input)
		if err != nil {
			s.Logger.Debug("tool invocation failed",
				zap.String("tool", name),
				zap.Error(err),
			)

			status := http.StatusBadRequest
			body := gin.H{"error": err.Error()}

			// Upstream failures carry a stable code for the caller to
			// translate.
			var lerr *librelink.Error
			if errors.As(err, &lerr) {
				status = http.StatusBadGateway
				body["code"] = lerr.Code
			}

			c.JSON(status, body)
			return
		}

		c.JSON(http.StatusOK, res)
	})

	return r
}

func (s *Server) Run(addr string) error {
	return s.Routes().Run(addr)
}
