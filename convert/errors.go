package convert

import (
	"fmt"
	"reflect"
	"strings"
)

// InvalidRuleSpecError reports a malformed raw rule shape or an invalid
// option value, detected at normalization time before any data flows.
type InvalidRuleSpecError struct {
	Dst    string
	Src    string
	Detail string
}

func (e *InvalidRuleSpecError) Error() string {
	if e.Dst == "" && e.Src == "" {
		return e.Detail
	}

	return fmt.Sprintf("rule (%s, %s): %s", e.Dst, e.Src, e.Detail)
}

// ValueRequiredError reports that a required source value was absent, or
// failed its requirement predicate. It is recoverable by the caller.
type ValueRequiredError struct {
	Path    string
	Message string
}

func (e *ValueRequiredError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("%q required but not found in the source", e.Path)
}

// InvalidDestinationTypeError reports a destination type set with more
// than one alternative. The engine cannot choose among alternatives when
// building a fresh instance.
type InvalidDestinationTypeError struct {
	Definition string
	Types      []reflect.Type
}

func (e *InvalidDestinationTypeError) Error() string {
	names := make([]string, len(e.Types))
	for i, t := range e.Types {
		names[i] = t.String()
	}

	return fmt.Sprintf("%s: destination type set with alternatives is forbidden: %s",
		e.Definition, strings.Join(names, " | "))
}

// UnsupportedConverterTypeError reports a configured converter that is
// neither a string, a usable function, nor a rule-set definition.
type UnsupportedConverterTypeError struct {
	Dst       string
	Converter any
}

func (e *UnsupportedConverterTypeError) Error() string {
	return fmt.Sprintf("unexpected converter type %T for destination attribute %s",
		e.Converter, e.Dst)
}

// TypeMismatchError reports a source object that does not satisfy the
// definition's accepted source type set.
type TypeMismatchError struct {
	Definition string
	Accepted   []reflect.Type
	Source     any
}

func (e *TypeMismatchError) Error() string {
	names := make([]string, len(e.Accepted))
	for i, t := range e.Accepted {
		names[i] = t.String()
	}

	return fmt.Sprintf("%s: source %T is not an instance of %s",
		e.Definition, e.Source, strings.Join(names, " | "))
}
