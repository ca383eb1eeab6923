// Package httpapi holds the JSON envelope and request helpers shared by every domain handler.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Data    any                `json:"data,omitempty"`
	Errors  apperr.FieldErrors `json:"errors,omitempty"`
}

// JSON writes a successful envelope.
func JSON(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Envelope{Success: true, Message: message, Data: data})
}

// OK writes a 200 envelope with data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data, "")
}

// Created writes a 201 envelope with data.
func Created(w http.ResponseWriter, data any, message string) {
	JSON(w, http.StatusCreated, data, message)
}

// Fail writes an unsuccessful envelope with a message.
func Fail(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: false, Message: message})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
