package api

import (
	"encoding/json"
	"net/http"

	"netif-recorder/internal/domain/errors"

	"github.com/sirupsen/logrus"
)

// Response is the envelope every command returns
type Response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// statusFor maps a command error to an HTTP status code
func statusFor(err error) int {
	errType, ok := errors.TypeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch errType {
	case errors.ErrorTypeValidation, errors.ErrorTypeIndex:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	case errors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body Response, logger *logrus.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode command response")
	}
}

func writeError(w http.ResponseWriter, err error, logger *logrus.Logger) {
	writeJSON(w, statusFor(err), Response{OK: false, Error: err.Error()}, logger)
}
