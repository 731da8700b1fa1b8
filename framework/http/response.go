package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/km-arc/go-qudo/framework/errdefs"
	"github.com/km-arc/go-qudo/framework/validation"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with JSON envelope helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusConflict, "component is not finalizable")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	res.Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// ValidationError sends 422 with the error bag.
//
//	{"message": "...", "errors": {"port": ["The port must be an integer."]}}
func (res *Response) ValidationError(message string, errs *validation.Errors) {
	res.JSON(http.StatusUnprocessableEntity, envelope{"message": message, "errors": errs.Bag})
}

// Fail maps err to a status by its kind and sends it.
//
//	not found          → 404
//	validation         → 422 (with the error bag when there is one)
//	dependency         → 424
//	lifecycle          → 409
//	registration       → 400
//	anything else      → 500
func (res *Response) Fail(err error) {
	var bag *validation.Errors
	switch {
	case errdefs.IsNotFound(err):
		res.NotFound(err.Error())
	case errors.As(err, &bag):
		res.ValidationError(err.Error(), bag)
	case errdefs.IsValidation(err):
		res.Error(http.StatusUnprocessableEntity, err.Error())
	case errdefs.IsDependency(err):
		res.Error(http.StatusFailedDependency, err.Error())
	case errdefs.IsLifecycle(err):
		res.Error(http.StatusConflict, err.Error())
	case errdefs.IsRegistration(err):
		res.Error(http.StatusBadRequest, err.Error())
	default:
		res.ServerError(err.Error())
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
