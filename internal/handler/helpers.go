package handler

import (
	"errors"
	"net/http"

	"outliner/internal/domain"
	"outliner/internal/httputil"
)

// handleError converts service errors to problem responses. Unknown errors become a 500
// without leaking their message.
func handleError(w http.ResponseWriter, err error) {
	var transportErr *domain.TransportError

	switch {
	case errors.Is(err, domain.ErrGenerationInFlight):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrMissingCredential):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, err.Error(), map[string]interface{}{
			"code": "missing_credential",
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &transportErr):
		httputil.RespondErrorWithExtras(w, http.StatusBadGateway, transportErr.Error(), map[string]interface{}{
			"provider": transportErr.Provider,
		})
	default:
		var httpErr domain.HTTPError
		if errors.As(err, &httpErr) {
			httputil.RespondError(w, httpErr.StatusCode(), err.Error())
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// PathParam returns the named path value, or responds 400 and returns false when it is empty.
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	return value, true
}
