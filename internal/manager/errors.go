package manager

import (
	"errors"
	"fmt"
)

// invalidArgumentError signals a malformed request (missing name, empty query).
type invalidArgumentError struct{ msg string }

func (e invalidArgumentError) Error() string { return e.msg }

// ErrInvalidArgument constructs an invalidArgumentError.
func ErrInvalidArgument(msg string) error { return invalidArgumentError{msg: msg} }

// IsInvalidArgument reports whether err indicates a malformed request.
func IsInvalidArgument(err error) bool {
	var e invalidArgumentError
	return errors.As(err, &e)
}

type unsupportedModelTypeError struct{ typ string }

func (e unsupportedModelTypeError) Error() string { return "unsupported model type: " + e.typ }

// ErrUnsupportedModelType is returned when a model type has no generation strategy.
func ErrUnsupportedModelType(typ string) error { return unsupportedModelTypeError{typ: typ} }

// IsUnsupportedModelType reports whether err indicates an unknown model type.
func IsUnsupportedModelType(err error) bool {
	var e unsupportedModelTypeError
	return errors.As(err, &e)
}

// modelNotFoundError is returned when no model record exists under a name.
type modelNotFoundError struct{ name string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.name }

func ErrModelNotFound(name string) error { return modelNotFoundError{name: name} }

// IsModelNotFound reports whether the error indicates a missing model record.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

type adapterNotFoundError struct{ name string }

func (e adapterNotFoundError) Error() string { return "adapter not found: " + e.name }

func ErrAdapterNotFound(name string) error { return adapterNotFoundError{name: name} }

// IsAdapterNotFound reports whether the error indicates a missing adapter record.
func IsAdapterNotFound(err error) bool {
	var e adapterNotFoundError
	return errors.As(err, &e)
}

// modelNotLoadedError is returned when an operation needs a resident handle
// and none exists for the model.
type modelNotLoadedError struct{ name string }

func (e modelNotLoadedError) Error() string { return "model not loaded: " + e.name }

func ErrModelNotLoaded(name string) error { return modelNotLoadedError{name: name} }

func IsModelNotLoaded(err error) bool {
	var e modelNotLoadedError
	return errors.As(err, &e)
}

type adapterNotAttachedError struct{ model, adapter string }

func (e adapterNotAttachedError) Error() string {
	return fmt.Sprintf("adapter %s is not attached to model %s", e.adapter, e.model)
}

func ErrAdapterNotAttached(model, adapter string) error {
	return adapterNotAttachedError{model: model, adapter: adapter}
}

// IsAdapterNotAttached reports whether err names an adapter missing from a handle.
func IsAdapterNotAttached(err error) bool {
	var e adapterNotAttachedError
	return errors.As(err, &e)
}

type multipleAdaptersError struct{ n int }

func (e multipleAdaptersError) Error() string {
	return fmt.Sprintf("at most one adapter per request is supported, got %d", e.n)
}

func ErrMultipleAdapters(n int) error { return multipleAdaptersError{n: n} }

func IsMultipleAdapters(err error) bool {
	var e multipleAdaptersError
	return errors.As(err, &e)
}

type invalidStorageURIError struct{ uri string }

func (e invalidStorageURIError) Error() string { return "invalid storage uri: " + e.uri }

// ErrInvalidStorageURI is returned for adapter URIs with an unsupported scheme or shape.
func ErrInvalidStorageURI(uri string) error { return invalidStorageURIError{uri: uri} }

func IsInvalidStorageURI(err error) bool {
	var e invalidStorageURIError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so the HTTP layer can return 503 Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
