// Package httpx collects small response and validation helpers shared by
// every handler package, so each endpoint doesn't reinvent its own JSON
// envelope or schema-validation boilerplate.
package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"
)

// OK writes a 200 JSON envelope.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, envelope(payload))
}

// Created writes a 201 JSON envelope.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, envelope(payload))
}

// envelope flattens payload's own JSON fields into the top-level success
// body instead of nesting them under a "result" key, so a handler's response
// struct (e.g. hashResponse's hash/algorithm/tokenType) lands exactly where
// callers document it, with a single top-level "ok". A payload that isn't a
// JSON object on the wire (a bare slice, a scalar) has nothing to flatten
// into, so it's kept under "result" instead.
func envelope(payload interface{}) gin.H {
	body := gin.H{}
	if data, err := json.Marshal(payload); err == nil {
		var fields map[string]interface{}
		if err := json.Unmarshal(data, &fields); err == nil {
			for k, v := range fields {
				body[k] = v
			}
		} else if payload != nil {
			body["result"] = payload
		}
	}
	body["ok"] = true
	return body
}

// Error writes a status-coded error envelope and aborts the chain.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": message})
}

// BadRequest is shorthand for Error(c, http.StatusBadRequest, ...).
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// ValidateAgainstSchema checks doc against a JSON Schema document, returning
// a human-readable error describing every violation found. Used by storage
// endpoints to validate stored payloads against a caller-supplied schema
// before persisting them.
func ValidateAgainstSchema(schema json.RawMessage, doc interface{}) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document for schema validation: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(docJSON)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msg := "document does not match schema:"
	for _, desc := range result.Errors() {
		msg += fmt.Sprintf(" %s: %s;", desc.Context().String(), desc.Description())
	}
	return fmt.Errorf("%s", msg)
}
