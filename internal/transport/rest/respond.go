package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"

	"github.com/airealtor/recall/internal/core"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeAndValidate binds the JSON body into dst and runs its validate
// tags. Anything wrong with the request becomes a validation error so the
// caller gets a 400, not a 500.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", core.ErrValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", core.ErrValidation, formatValidationError(err))
	}
	return nil
}

// formatValidationError flattens validator output into one readable line.
func formatValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "required_with":
			msgs = append(msgs, fmt.Sprintf("%s is required with %s", field, strings.ToLower(e.Param())))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s is out of range", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are out already, nothing to do but note it.
		zlog.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), map[string]any{
		"error": err.Error(),
	})
}
