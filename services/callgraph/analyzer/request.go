// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedRequest is returned when a request cannot be decoded or is
// missing required fields. It is the only error that aborts a run.
var ErrMalformedRequest = errors.New("malformed request")

// Request is one analysis invocation.
type Request struct {
	// Files are paths relative to ProjectRoot, processed in this order.
	// An empty list is valid; a missing or null list is not.
	Files []string `json:"files" validate:"required,dive,required"`

	// ProjectRoot is absolute or relative to the working directory. Empty
	// resolves files against the working directory itself.
	ProjectRoot string `json:"projectRoot"`
}

// requestPayload is the wire form of Request. A pointer tells an empty
// projectRoot apart from a missing one.
type requestPayload struct {
	Files       []string `json:"files" validate:"required,dive,required"`
	ProjectRoot *string  `json:"projectRoot" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks required fields. Failures wrap ErrMalformedRequest.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrMalformedRequest)
	}
	return validateStruct(r)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %q failed %q", ErrMalformedRequest, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return nil
}

// DecodeRequest reads one JSON request from r and validates it.
//
// Description:
//
//	Anything other than a JSON object with a "files" array of non-empty
//	strings and a "projectRoot" string is malformed. An empty projectRoot
//	is accepted. Unknown fields are ignored.
//
// Outputs:
//   - *Request: The validated request.
//   - error: Wraps ErrMalformedRequest on decode or validation failure.
func DecodeRequest(r io.Reader) (*Request, error) {
	var payload requestPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if err := validateStruct(&payload); err != nil {
		return nil, err
	}
	return &Request{Files: payload.Files, ProjectRoot: *payload.ProjectRoot}, nil
}
