package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hristiyandudev55/nurblifebg/internal/internaltypes"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func statusFor(k internaltypes.Kind) int {
	switch k {
	case internaltypes.KindResourceUnavailable, internaltypes.KindInvalidStatusTransition:
		return http.StatusConflict
	case internaltypes.KindNotFound:
		return http.StatusNotFound
	case internaltypes.KindVoucherInvalid:
		return http.StatusUnprocessableEntity
	case internaltypes.KindInvalidInput:
		return http.StatusBadRequest
	case internaltypes.KindTransient:
		return http.StatusServiceUnavailable
	case internaltypes.KindExternalServiceFailure:
		return http.StatusBadGateway
	case internaltypes.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// errorResponse maps err to a status and body. Unknown errors are not exposed.
func errorResponse(err error) (int, ErrorResponse) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, ErrorResponse{
			Code:    internaltypes.KindInvalidInput.String(),
			Message: "request validation failed",
			Details: verrs,
		}
	}

	e, ok := internaltypes.As(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{Code: "internal", Message: "internal server error"}
	}
	resp := ErrorResponse{Code: e.Kind.String(), Message: e.Error()}
	switch e.Kind {
	case internaltypes.KindResourceUnavailable:
		resp.Message = e.ResourceType + " unavailable: " + e.Detail
		resp.Details = map[string]string{"resource_type": e.ResourceType}
	case internaltypes.KindInvalidStatusTransition:
		resp.Details = map[string]string{"current": e.Current, "target": e.Target}
	case internaltypes.KindVoucherInvalid:
		resp.Message = e.Reason
	case internaltypes.KindExternalServiceFailure:
		resp.Message = e.Service + " service failure"
	case internaltypes.KindTransient:
		resp.Message = "temporarily unavailable, retry later"
	}
	return statusFor(e.Kind), resp
}

func writeError(w http.ResponseWriter, err error) {
	status, resp := errorResponse(err)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
