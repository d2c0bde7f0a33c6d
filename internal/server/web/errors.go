package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/logging"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps an error onto an HTTP status and a client-safe message.
func statusFor(err error) (int, errorBody) {
	var ve *common.ValidationError
	var ue *common.UpstreamError

	switch {
	case errors.As(err, &ve):
		msg := ve.Message
		if msg == "" {
			msg = "invalid input"
		}
		return http.StatusBadRequest, errorBody{Error: msg, Fields: ve.Fields}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, errorBody{Error: "not found"}
	case errors.Is(err, common.ErrExpired):
		return http.StatusGone, errorBody{Error: "code expired, request a new one"}
	case errors.Is(err, common.ErrMismatch):
		return http.StatusUnauthorized, errorBody{Error: "invalid code"}
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, errorBody{Error: "unauthorized"}
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, errorBody{Error: "forbidden"}
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, errorBody{Error: "already exists"}
	case errors.As(err, &ue):
		return http.StatusBadGateway, errorBody{Error: ue.Service + " unavailable"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(ctx context.Context, l logging.Logger, w http.ResponseWriter, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", "status", status, "error", err)
	} else {
		l.Debug(ctx, "request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}
