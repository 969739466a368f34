// Copyright 2025 Kadir Pekel
//
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

package bookrag

import (
	"errors"
	"fmt"
)

// Kind enumerates the pipeline's error taxonomy. The pipeline is the single
// point that translates internal failures into stream events; agents never
// raise across the streaming boundary.
type Kind string

const (
	// KindQueryInvalid marks an empty or meaningless query.
	KindQueryInvalid Kind = "QueryInvalid"
	// KindQueryTooLong marks a query exceeding the maximum length
	// (2000 characters).
	KindQueryTooLong Kind = "QueryTooLong"
	// KindRetrievalUnavailable marks a vector store failure.
	KindRetrievalUnavailable Kind = "RetrievalUnavailable"
	// KindLLMUnavailable marks a completion provider failure or stream
	// interruption.
	KindLLMUnavailable Kind = "LLMUnavailable"
	// KindAgentFailure marks an unexpected agent-side exception.
	KindAgentFailure Kind = "AgentFailure"
	// KindSessionWriteFailure marks a failure to persist session state.
	// Non-fatal: the pipeline logs it and never surfaces it to the client.
	KindSessionWriteFailure Kind = "SessionWriteFailure"
)

// Error is the pipeline's typed error: a Kind for dispatch plus the
// component and operation that produced it, following the rag package's
// *Error convention.
type Error struct {
	Kind      Kind
	Component string // e.g. "retrieval", "llm", "agent:glossary", "session"
	Operation string // e.g. "search", "generate_streaming", "append_turn"
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s/%s: %s", e.Kind, e.Component, e.Operation, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a pipeline Error.
func NewError(kind Kind, component, operation, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Operation: operation, Message: message, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
