// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the request and response bodies of the pagesmith
// HTTP API together with their validation rules.
package datatypes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/pagesmith/services/pagesmith/apperr"
	"github.com/AleutianAI/pagesmith/services/pagesmith/catalog"
	"github.com/AleutianAI/pagesmith/services/pagesmith/session"
)

// MaxCommandBytes bounds a natural-language command.
const MaxCommandBytes = 2048

// MaxBodyBytes bounds any request body.
const MaxBodyBytes = 1 << 20

// =============================================================================
// Shared Validator Instance
// =============================================================================

var validate = NewValidator()

// NewValidator returns a validator with the pagesmith rules registered:
//
//   - sessionid: 1-64 characters of [A-Za-z0-9_-]
//   - sectionkind: a catalog section kind
//   - tone: a catalog tone
//   - maxcommand: at most MaxCommandBytes bytes
//
// Field names in errors follow the json tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("sessionid", func(fl validator.FieldLevel) bool {
		return session.ValidID(fl.Field().String())
	})
	_ = v.RegisterValidation("sectionkind", func(fl validator.FieldLevel) bool {
		_, err := catalog.ParseKind(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("tone", func(fl validator.FieldLevel) bool {
		_, err := catalog.ParseTone(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("maxcommand", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxCommandBytes
	})
	return v
}

// Validate checks v against its struct tags. Failures are returned as a
// VALIDATION_ERROR listing every offending field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return apperr.Validation(strings.Join(msgs, "; "))
}

// describeField renders one failure as "path: reason".
func describeField(fe validator.FieldError) string {
	// Namespace is "ComposeRequest.sections[0].kind"; drop the type name.
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "min":
		reason = "must have at least " + fe.Param()
	case "max":
		reason = "must have at most " + fe.Param()
	case "oneof":
		reason = "must be one of [" + fe.Param() + "]"
	case "sessionid":
		reason = "must be 1-64 characters of letters, digits, '-' or '_'"
	case "sectionkind":
		reason = fmt.Sprintf("unknown section kind %q", fe.Value())
	case "tone":
		reason = fmt.Sprintf("unknown tone %q", fe.Value())
	case "maxcommand":
		reason = fmt.Sprintf("must be at most %d bytes", MaxCommandBytes)
	default:
		reason = "failed " + fe.Tag()
	}
	return path + ": " + reason
}

// =============================================================================
// Decoding
// =============================================================================

// Decode strictly parses one JSON value from r into v and validates it.
// Unknown fields, trailing data and bodies over MaxBodyBytes are rejected.
func Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, MaxBodyBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("malformed JSON: " + err.Error())
	}
	if dec.More() {
		return apperr.Validation("request body must contain a single JSON object")
	}
	if dec.InputOffset() > MaxBodyBytes {
		return apperr.Validation(fmt.Sprintf("request body exceeds %d bytes", MaxBodyBytes))
	}
	return Validate(v)
}
