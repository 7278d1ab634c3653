package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roach88/nodetree/internal/tree"
)

// Error messages returned to clients.
const (
	msgNameRequired      = "Name is required"
	msgKeyValueRequired  = "Key and value are required"
	msgParentNotFound    = "Parent not found"
	msgNodeNotFound      = "Node not found"
	msgPathConflict      = "Node already exists"
	msgInvalidBody       = "Request body must be a JSON object"
	msgTimeout           = "Request timed out"
	msgInternal          = "Internal server error"
	msgRouteNotFound     = "Not found"
	msgTooManyRequests   = "Too many requests"
	propertiesPathSuffix = "/properties"
	subtreePathSuffix    = "/subtree"
)

// NodeService is the part of service.Service the handlers use.
type NodeService interface {
	CreateNode(ctx context.Context, name, parentPath string) (tree.Node, error)
	AddProperty(ctx context.Context, nodePath, key string, value float64) (tree.Property, error)
	GetSubtree(ctx context.Context, nodePath string) (tree.NodeTree, bool, error)
}

// RootHandler answers GET / with the service banner.
func RootHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "PC Node Service API"})
	}
}

// HealthHandler answers GET /health.
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// CreateNodeHandler handles POST /api/nodes.
func CreateNodeHandler(svc NodeService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateNodeRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgNameRequired})
			return
		}

		node, err := svc.CreateNode(c.Request.Context(), req.Name, req.ParentPath)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, node)
	}
}

// AddPropertyHandler handles POST /api/nodes/<path>/properties.
func AddPropertyHandler(svc NodeService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		nodePath, ok := nodePathParam(c, propertiesPathSuffix)
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: msgRouteNotFound})
			return
		}

		var req AddPropertyRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgKeyValueRequired})
			return
		}

		prop, err := svc.AddProperty(c.Request.Context(), nodePath, req.Key, *req.Value)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, prop)
	}
}

// postNodePath dispatches POST /api/nodes/*path. A bare "/" is the
// collection itself and creates a node.
func postNodePath(createNode, addProperty gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("path") == "/" {
			createNode(c)
			return
		}
		addProperty(c)
	}
}

// SubtreeHandler handles GET /api/nodes/<path>/subtree.
func SubtreeHandler(svc NodeService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		nodePath, ok := nodePathParam(c, subtreePathSuffix)
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: msgRouteNotFound})
			return
		}

		t, found, err := svc.GetSubtree(c.Request.Context(), nodePath)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: msgNodeNotFound})
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// nodePathParam extracts the node path from the catch-all "path" parameter
// by removing suffix. "/A/B/subtree" yields "/A/B".
func nodePathParam(c *gin.Context, suffix string) (string, bool) {
	p := c.Param("path")
	if !strings.HasSuffix(p, suffix) {
		return "", false
	}
	return strings.TrimSuffix(p, suffix), true
}

// bindJSON decodes the body into dst. An empty body decodes as {} so that
// required-field checks produce their usual messages.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidBody})
		return false
	}
	return true
}

// writeError maps a service error to a status code and client message.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var te *tree.Error
	switch {
	case tree.IsParentNotFound(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgParentNotFound})
	case tree.IsNodeNotFound(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgNodeNotFound})
	case tree.IsInvalidInput(err) && errors.As(err, &te):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: te.Message})
	case tree.IsPathConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: msgPathConflict})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: msgTimeout})
	default:
		logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
	}
}
