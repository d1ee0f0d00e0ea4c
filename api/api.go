// Package api holds the OpenAPI description of the HTTP API.
package api

import _ "embed"

// OpenAPI is api/openapi.yaml, compiled into the binary.
//
//go:embed openapi.yaml
var OpenAPI []byte
