// Copyright Project Contour Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ddserr holds the DCPS return-code taxonomy (spec.md §6, §7)
// and the helpers used to carry one through an ordinary Go error chain
// instead of the original C sources' goto done/goto free_* cleanups.
package ddserr

import (
	"github.com/pkg/errors"
)

// Code is a DCPS return code.
type Code int

const (
	OK Code = iota
	ErrorCode
	BadParameter
	Unsupported
	PreconditionNotMet
	OutOfResources
	NotEnabled
	ImmutablePolicy
	InconsistentPolicy
	AlreadyDeleted
	Timeout
	NoData
	IllegalOperation
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case ErrorCode:
		return "ERROR"
	case BadParameter:
		return "BAD_PARAMETER"
	case Unsupported:
		return "UNSUPPORTED"
	case PreconditionNotMet:
		return "PRECONDITION_NOT_MET"
	case OutOfResources:
		return "OUT_OF_RESOURCES"
	case NotEnabled:
		return "NOT_ENABLED"
	case ImmutablePolicy:
		return "IMMUTABLE_POLICY"
	case InconsistentPolicy:
		return "INCONSISTENT_POLICY"
	case AlreadyDeleted:
		return "ALREADY_DELETED"
	case Timeout:
		return "TIMEOUT"
	case NoData:
		return "NO_DATA"
	case IllegalOperation:
		return "ILLEGAL_OPERATION"
	default:
		return "UNKNOWN"
	}
}

// codeError pairs a Code with the Go cause that produced it, so the
// Code survives being wrapped by errors.Wrap along a call chain.
type codeError struct {
	code  Code
	cause error
}

func (e *codeError) Error() string {
	if e.cause == nil {
		return e.code.String()
	}
	return e.code.String() + ": " + e.cause.Error()
}

func (e *codeError) Unwrap() error { return e.cause }

// New wraps cause (which may be nil) with a DCPS return code.
func New(code Code, cause error) error {
	if code == OK {
		return nil
	}
	return &codeError{code: code, cause: cause}
}

// Wrap is New with a formatted cause, mirroring errors.Wrap's shape.
func Wrap(code Code, cause error, msg string) error {
	if cause == nil {
		return New(code, errors.New(msg))
	}
	return New(code, errors.Wrap(cause, msg))
}

// CodeOf recovers the Code carried by err, or ErrorCode if err does not
// wrap one. A nil err reports OK.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code
	}
	return ErrorCode
}

// Is reports whether err carries the given Code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

func BadParam(cause error) error          { return New(BadParameter, cause) }
func PreconditionErr(cause error) error   { return New(PreconditionNotMet, cause) }
func OutOfResourcesErr(cause error) error { return New(OutOfResources, cause) }
func AlreadyDeletedErr() error            { return New(AlreadyDeleted, nil) }
func InconsistentPolicyErr(cause error) error {
	return New(InconsistentPolicy, cause)
}
