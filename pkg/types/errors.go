package types

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes for the error taxonomy shared by the guard, the commands and the
// HTTP transport.
const (
	TextCodeInvalidInput             = "INVALID_INPUT"
	TextCodeUnauthenticated          = "UNAUTHENTICATED"
	TextCodeForbidden                = "FORBIDDEN"
	TextCodeDuplicateUser            = "DUPLICATE_USER"
	TextCodeSelfActionForbidden      = "SELF_ACTION_FORBIDDEN"
	TextCodeIdentityCreationFailed   = "IDENTITY_CREATION_FAILED"
	TextCodeProfileWriteFailed       = "PROFILE_WRITE_FAILED"
	TextCodeInvitationDispatchFailed = "INVITATION_DISPATCH_FAILED"
	TextCodeIdentityRemovalFailed    = "IDENTITY_REMOVAL_FAILED"
	TextCodeNotFound                 = "NOT_FOUND"
)

// MetadataDetails holds the originating error message on wrapped failures.
const MetadataDetails = "details"

// NewInvalidInputError reports missing or malformed input.
func NewInvalidInputError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeInvalidInput)
}

// NewUnauthenticatedError reports that no valid acting identity is present.
func NewUnauthenticatedError(message string) *goerrors.Error {
	if message == "" {
		message = "Unauthorized"
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(TextCodeUnauthenticated)
}

// NewForbiddenError reports that the acting identity lacks the required role.
func NewForbiddenError(message string) *goerrors.Error {
	if message == "" {
		message = "Insufficient permissions"
	}
	return goerrors.New(message, goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden).
		WithTextCode(TextCodeForbidden)
}

// NewDuplicateUserError reports that the email already has an identity.
func NewDuplicateUserError(email string) *goerrors.Error {
	return goerrors.New("User with this email already exists", goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeDuplicateUser).
		WithMetadata(map[string]any{"email": email})
}

// NewSelfActionError reports an attempt to target the caller's own account.
func NewSelfActionError(action string) *goerrors.Error {
	return goerrors.New("You cannot "+action+" your own account", goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden).
		WithTextCode(TextCodeSelfActionForbidden)
}

// NewNotFoundError reports a missing target.
func NewNotFoundError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithTextCode(TextCodeNotFound)
}

// NewStepFailure wraps the error returned by a pipeline step. The originating
// message is kept under the "details" metadata key.
func NewStepFailure(textCode, message string, cause error, metadata map[string]any) *goerrors.Error {
	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	if cause != nil {
		meta[MetadataDetails] = cause.Error()
	}
	var wrapped *goerrors.Error
	if cause != nil {
		wrapped = goerrors.Wrap(cause, goerrors.CategoryInternal, message)
	} else {
		wrapped = goerrors.New(message, goerrors.CategoryInternal)
	}
	return wrapped.
		WithCode(goerrors.CodeInternal).
		WithTextCode(textCode).
		WithMetadata(meta)
}

// TextCode returns the taxonomy text code carried by err, or "" when err is
// not a go-errors value.
func TextCode(err error) string {
	var richErr *goerrors.Error
	if errors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode
	}
	return ""
}

// IsTextCode reports whether err carries the supplied text code.
func IsTextCode(err error, code string) bool {
	return err != nil && TextCode(err) == code
}

// ErrorMessage returns the client-facing message of err without the
// category and text code decoration that go-errors adds to Error().
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if errors.As(err, &richErr) && richErr != nil {
		return richErr.Message
	}
	return err.Error()
}

// ErrorDetails returns the originating message stored on step failures.
func ErrorDetails(err error) string {
	var richErr *goerrors.Error
	if !errors.As(err, &richErr) || richErr == nil || richErr.Metadata == nil {
		return ""
	}
	if details, ok := richErr.Metadata[MetadataDetails].(string); ok {
		return details
	}
	return ""
}

// HTTPStatus maps an error onto the status code the transport returns.
func HTTPStatus(err error) int {
	switch TextCode(err) {
	case TextCodeInvalidInput, TextCodeDuplicateUser:
		return http.StatusBadRequest
	case TextCodeUnauthenticated:
		return http.StatusUnauthorized
	case TextCodeForbidden, TextCodeSelfActionForbidden:
		return http.StatusForbidden
	case TextCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
