// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package apperr defines the stable, machine-readable error codes returned by
// every pagesmith entry point and their HTTP mapping.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/compose"
	"github.com/AleutianAI/pagesmith/services/pagesmith/content"
	"github.com/AleutianAI/pagesmith/services/pagesmith/interpret"
	"github.com/AleutianAI/pagesmith/services/pagesmith/sessionstore"
	"github.com/AleutianAI/pagesmith/services/pagesmith/transform"
)

// Code is a stable error code.
type Code string

const (
	CodeInfeasible             Code = "INFEASIBLE"
	CodeNotFound               Code = "NOT_FOUND"
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeStoreUnavailable       Code = "STORE_UNAVAILABLE"
	CodeInterpreterTimeout     Code = "INTERPRETER_TIMEOUT"
	CodeInterpreterUnavailable Code = "INTERPRETER_UNAVAILABLE"
	CodeInternal               Code = "INTERNAL"
)

// HTTPStatus maps the code to a response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInfeasible:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the same request.
func (c Code) Retryable() bool {
	return c == CodeStoreUnavailable
}

// Error is a classified error.
type Error struct {
	Code    Code
	Message string
	Details string

	// Infeasible is set for CodeInfeasible.
	Infeasible *compose.Infeasible

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error with a cause. The cause's text becomes Details.
func Wrap(code Code, message string, err error) *Error {
	e := &Error{Code: code, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// Validation is shorthand for a CodeValidation error.
func Validation(details string) *Error {
	return &Error{Code: CodeValidation, Message: "invalid request", Details: details}
}

// FromInfeasible converts a composer result into an error.
func FromInfeasible(inf *compose.Infeasible) *Error {
	return &Error{
		Code:       CodeInfeasible,
		Message:    "no valid sequence satisfies the hard constraints",
		Details:    inf.Reason,
		Infeasible: inf,
	}
}

// From classifies err. Already classified errors are returned unchanged;
// known sentinels of the engine packages map to their codes; anything else
// is CodeInternal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case errors.Is(err, sessionstore.ErrNotFound):
		return Wrap(CodeNotFound, "session not found", err)
	case errors.Is(err, catalog.ErrNotFound):
		return Wrap(CodeNotFound, "catalog entry not found", err)
	case errors.Is(err, sessionstore.ErrUnavailable):
		return Wrap(CodeStoreUnavailable, "session store unavailable", err)
	case errors.Is(err, compose.ErrInvalidRequest),
		errors.Is(err, content.ErrInvalidContent),
		errors.Is(err, transform.ErrInvalidSpec),
		errors.Is(err, transform.ErrUnknownTransform):
		return Wrap(CodeValidation, "invalid request", err)
	case errors.Is(err, interpret.ErrInterpreterTimeout), errors.Is(err, context.DeadlineExceeded):
		return Wrap(CodeInterpreterTimeout, "interpreter timed out", err)
	case errors.Is(err, interpret.ErrInterpreterUnavailable):
		return Wrap(CodeInterpreterUnavailable, "interpreter unavailable", err)
	}
	return Wrap(CodeInternal, "internal error", err)
}

// =============================================================================
// Wire form
// =============================================================================

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	// Error is the human-readable message.
	Error string `json:"error"`

	// Code is the stable machine-readable code.
	Code Code `json:"code"`

	// Details provides additional context (optional).
	Details string `json:"details,omitempty"`

	// Retryable is true when the same request may succeed later.
	Retryable bool `json:"retryable"`

	// Infeasible is set together with CodeInfeasible.
	Infeasible  bool         `json:"infeasible,omitempty"`
	Kind        catalog.Kind `json:"kind,omitempty"`
	Constraints []string     `json:"constraints,omitempty"`
}

// Response renders e. Internal causes are not leaked to callers.
func (e *Error) Response() ErrorResponse {
	r := ErrorResponse{
		Error:     e.Message,
		Code:      e.Code,
		Details:   e.Details,
		Retryable: e.Code.Retryable(),
	}
	if e.Code == CodeInternal {
		r.Details = ""
	}
	if e.Infeasible != nil {
		r.Infeasible = true
		r.Kind = e.Infeasible.Kind
		r.Constraints = e.Infeasible.Constraints
	}
	return r
}

// Describe renders e on one line for CLI output.
func Describe(err error) string {
	e := From(err)
	parts := []string{string(e.Code), e.Message}
	if e.Details != "" {
		parts = append(parts, e.Details)
	}
	return strings.Join(parts, ": ")
}
