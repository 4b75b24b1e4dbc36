package api

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"metadata-mapper/internal/domain"
)

type errorResponse struct {
	Error       string   `json:"error"`
	Kind        string   `json:"kind"`
	Suggestions []string `json:"suggestions,omitempty"`
	Chain       []string `json:"chain,omitempty"`
}

// statusOf maps an error to its HTTP status and response body.
func statusOf(err error) (int, errorResponse) {
	var (
		invalid    *domain.InvalidDocumentError
		unresolved *domain.UnresolvedReferenceError
		cyclic     *domain.CyclicEvaluationError
		mismatch   *domain.SchemaMismatchError
		threshold  *domain.FailureThresholdError
		external   *domain.ExternalStoreError
		httpErr    *echo.HTTPError
	)

	resp := errorResponse{Error: err.Error()}

	switch {
	case errors.As(err, &invalid):
		resp.Kind = "invalid_document"
		return http.StatusBadRequest, resp
	case errors.As(err, &unresolved):
		resp.Kind = "unresolved_reference"
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &cyclic):
		resp.Kind, resp.Chain = "cyclic_evaluation", cyclic.Chain
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &mismatch):
		resp.Kind, resp.Suggestions = "schema_mismatch", mismatch.Suggestions
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &threshold):
		resp.Kind = "failure_threshold"
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &external):
		resp.Kind = "external_store"
		return http.StatusBadGateway, resp
	case errors.As(err, &httpErr):
		resp.Kind = "request"
		if msg, ok := httpErr.Message.(string); ok {
			resp.Error = msg
		}

		return httpErr.Code, resp
	default:
		resp.Kind = "internal"
		return http.StatusInternalServerError, resp
	}
}

func (s *Server) fail(c echo.Context, err error) error {
	status, resp := statusOf(err)

	entry := s.deps.Log.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	return c.JSON(status, resp)
}
