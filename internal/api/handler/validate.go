package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prepwise/prepwise-api/internal/api/respond"
	"github.com/prepwise/prepwise-api/internal/auth"
	"github.com/prepwise/prepwise-api/internal/validation"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst. With strict set, unknown fields are
// rejected. On failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, strict bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		msg := "Request body must be valid JSON"
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			msg = "Request body is required"
		case errors.As(err, &typeErr):
			msg = fmt.Sprintf("Field %q has the wrong type", typeErr.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			respond.WriteValidationError(w, "Request contains fields that cannot be set",
				map[string]string{strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`): "is not allowed"})
			return false
		}
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", msg, err.Error())
		return false
	}
	return true
}

// validateStruct runs struct-tag validation. On failure it writes a 400 with
// a field map and returns false.
func validateStruct(w http.ResponseWriter, v any) bool {
	fields, err := validation.Struct(v)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return false
	}
	return !writeFields(w, fields)
}

// writeFields writes a 400 for a non-empty field map and reports whether it did.
func writeFields(w http.ResponseWriter, fields map[string]string) bool {
	if len(fields) == 0 {
		return false
	}
	respond.WriteValidationError(w, "Request validation failed", fields)
	return true
}

// actor returns the authenticated caller. The auth middleware guarantees
// presence on every /api/v1 route.
func actor(r *http.Request) auth.Actor {
	a, _ := auth.FromContext(r.Context())
	return a
}

// pathID parses a UUID URL parameter, writing a 404 when malformed.
func pathID(w http.ResponseWriter, r *http.Request, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", resource+" not found")
		return uuid.Nil, false
	}
	return id, true
}
