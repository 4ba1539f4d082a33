package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/gin-gonic/gin"
)

// Error codes carried in the JSON body.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeDuplicate        = "DUPLICATE_IDENTITY"
	CodeBadCredentials   = "INVALID_CREDENTIALS"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// HTTPError is the body of every non-2xx response.
type HTTPError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e HTTPError) Error() string {
	return e.Message
}

var (
	errUnauthenticated = HTTPError{Code: CodeUnauthenticated, Message: "Unauthorized", StatusCode: http.StatusUnauthorized}
	errForbidden       = HTTPError{Code: CodeForbidden, Message: "Access denied", StatusCode: http.StatusForbidden}
	errInternal        = HTTPError{Code: CodeInternal, Message: "Internal server error", StatusCode: http.StatusInternalServerError}
	errNoRefreshToken  = HTTPError{Code: CodeUnauthenticated, Message: "No refresh token provided", StatusCode: http.StatusUnauthorized}
	errBadRefreshToken = HTTPError{Code: CodeUnauthenticated, Message: "Invalid refresh token", StatusCode: http.StatusUnauthorized}
)

// MapErr turns a service error into its HTTP form. Anything it does not
// recognize becomes a 500 with a generic message.
func MapErr(err error) HTTPError {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return HTTPError{Code: CodeValidation, Message: err.Error(), StatusCode: http.StatusBadRequest}
	case errors.Is(err, common.ErrDuplicateIdentity):
		return HTTPError{Code: CodeDuplicate, Message: "User already exists", StatusCode: http.StatusBadRequest}
	case errors.Is(err, common.ErrCredentialMismatch):
		return HTTPError{Code: CodeBadCredentials, Message: "Invalid email or password", StatusCode: http.StatusBadRequest}
	case errors.Is(err, common.ErrTokenMissing),
		errors.Is(err, common.ErrTokenInvalidSignature),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshNotCurrent):
		return errUnauthenticated
	case errors.Is(err, common.ErrIdentityNotFound):
		return HTTPError{Code: CodeNotFound, Message: "User not found", StatusCode: http.StatusNotFound}
	case errors.Is(err, common.ErrStoreUnavailable):
		return HTTPError{Code: CodeStoreUnavailable, Message: "Service temporarily unavailable", StatusCode: http.StatusServiceUnavailable}
	default:
		return errInternal
	}
}

// mapRefreshErr differs from MapErr in that every token or identity problem
// is reported as an invalid refresh token.
func mapRefreshErr(err error) HTTPError {
	switch {
	case errors.Is(err, common.ErrTokenMissing):
		return errNoRefreshToken
	case errors.Is(err, common.ErrTokenInvalidSignature),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshNotCurrent),
		errors.Is(err, common.ErrIdentityNotFound):
		return errBadRefreshToken
	default:
		return MapErr(err)
	}
}

func abortWith(c *gin.Context, e HTTPError) {
	c.AbortWithStatusJSON(e.StatusCode, e)
}
