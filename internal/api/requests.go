package api

import (
	"github.com/go-playground/validator/v10"
)

// validate is shared by all handlers; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = validator.New()

// CreateNodeRequest is the body of POST /api/nodes.
type CreateNodeRequest struct {
	Name       string `json:"name" validate:"required"`
	ParentPath string `json:"parent_path"`
}

// AddPropertyRequest is the body of POST /api/nodes/<path>/properties.
// Value is a pointer so an explicit 0 is distinguishable from a missing value.
type AddPropertyRequest struct {
	Key   string   `json:"key" validate:"required"`
	Value *float64 `json:"value" validate:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
