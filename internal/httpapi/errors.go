package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-kit/log/level"

	"github.com/goliatone/go-student-api/store"
)

// Error codes returned in the "error" field of error bodies.
const (
	codeBadRequest         = "bad_request"
	codeNotFound           = "not_found"
	codeConflict           = "conflict"
	codeInternal           = "internal_error"
	codeServiceUnavailable = "service_unavailable"
)

const (
	messageInternal = "Internal Server Error"
	messageNotFound = "The requested resource was not found"
)

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

// apiError is an error that already knows its response.
type apiError struct {
	status int
	body   errorBody
	err    error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.body.Message + ": " + e.err.Error()
	}
	return e.body.Message
}

func (e *apiError) Unwrap() error { return e.err }

func badRequest(message string, err error) error {
	return &apiError{
		status: http.StatusBadRequest,
		body:   errorBody{Error: codeBadRequest, Message: message},
		err:    err,
	}
}

func unavailable(message, detail string, err error) error {
	return &apiError{
		status: http.StatusServiceUnavailable,
		body:   errorBody{Error: codeServiceUnavailable, Message: message, Detail: detail},
		err:    err,
	}
}

// errorResponse maps err to a status code and body. Unknown errors become a
// generic 500 and their text is never returned.
func errorResponse(err error) (int, errorBody) {
	var (
		apiErr *apiError
		valErr *store.ValidationError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.status, apiErr.body
	case errors.As(err, &valErr):
		fields := make(map[string]string, len(valErr.Fields))
		for name, fieldErr := range valErr.Fields {
			fields[name] = fieldErr.Error()
		}
		return http.StatusBadRequest, errorBody{
			Error:   codeBadRequest,
			Message: valErr.Error(),
			Fields:  fields,
		}
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, errorBody{Error: codeBadRequest, Message: err.Error()}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: codeNotFound, Message: messageNotFound}
	case errors.Is(err, store.ErrDuplicateEmail):
		return http.StatusConflict, errorBody{Error: codeConflict, Message: store.ErrDuplicateEmail.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: codeInternal, Message: messageInternal}
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	status, body := errorResponse(err)

	logger := a.requestLogger(r)
	switch {
	case status >= http.StatusInternalServerError:
		level.Error(logger).Log("msg", "request failed", "endpoint", endpoint, "status", status, "err", err)
	case status != http.StatusNotFound:
		level.Warn(logger).Log("msg", "request rejected", "endpoint", endpoint, "status", status, "err", err)
	}

	writeJSON(w, r, status, body)
}
