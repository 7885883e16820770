/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package threads

import "fmt"
import "runtime"
import "github.com/launix-de/blockvm/blocks"

type ErrorKind int

const (
	TypeMismatch ErrorKind = iota
	UndeclaredVariable
	TimeoutExceeded
	DivisionOrDomainError
	UserThrown
	HostIOError
	InternalInvariantViolation
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case UndeclaredVariable:
		return "UndeclaredVariable"
	case TimeoutExceeded:
		return "TimeoutExceeded"
	case DivisionOrDomainError:
		return "DivisionOrDomainError"
	case UserThrown:
		return "UserThrown"
	case HostIOError:
		return "HostIOError"
	case InternalInvariantViolation:
		return "InternalInvariantViolation"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is what a failing block reports. Primitives raise it by panicking.
type Error struct {
	Kind    ErrorKind
	Message string
	Node    blocks.Node // block that failed, may be nil
	Value   any         // payload of a thrown error
}

func (e *Error) Error() string {
	if b, ok := e.Node.(*blocks.Block); ok {
		return e.Kind.String() + " in " + b.Selector + " at " + b.Source.String() + ": " + e.Message
	}
	return e.Kind.String() + ": " + e.Message
}

func raise(kind ErrorKind, format string, args ...any) {
	panic(&Error{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// asError converts anything recovered from a panic into an *Error.
func asError(r any, node blocks.Node) *Error {
	var result *Error
	switch e := r.(type) {
	case *Error:
		result = e
	case runtime.Error:
		result = &Error{Kind: InternalInvariantViolation, Message: e.Error()}
	case error:
		result = &Error{Kind: HostIOError, Message: e.Error()}
	case string:
		result = &Error{Kind: UserThrown, Message: e, Value: e}
	default:
		result = &Error{Kind: UserThrown, Message: blocks.ToText(r), Value: r}
	}
	if result.Node == nil && node != nil {
		result.Node = node
	}
	return result
}

// Catchable tells whether a local handler may recover from the error.
func (e *Error) Catchable() bool {
	return e.Kind != InternalInvariantViolation
}
