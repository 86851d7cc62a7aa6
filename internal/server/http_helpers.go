package server

import (
	"encoding/json"
	"io"
	"net/http"
)

// Machine-readable error codes carried alongside the human message.
const (
	CodeDailyLimit    = "DAILY_LIMIT"
	CodeValidation    = "VALIDATION_ERROR"
	CodeDB            = "DB_ERROR"
	CodeTimeout       = "TIMEOUT"
	CodeContentFilter = "CONTENT_FILTER"
	CodeAPIError      = "API_ERROR"
)

type apiError struct {
	Status  int
	Code    string
	Message string
}

func errValidation(status int, message string) *apiError {
	return &apiError{Status: status, Code: CodeValidation, Message: message}
}

func readJSON(body io.Reader, dest any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

func writeAPIError(w http.ResponseWriter, err *apiError) {
	writeError(w, err.Status, err.Code, err.Message)
}
