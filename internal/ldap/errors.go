package ldap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrorCategory groups directory failures by what the operator can do about them.
type ErrorCategory string

const (
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryPermission     ErrorCategory = "permission"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryConflict       ErrorCategory = "conflict"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryServer         ErrorCategory = "server"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// resultCategories maps the result codes a rename run can meet to a category.
// A rename onto an existing RDN reports EntryAlreadyExists.
var resultCategories = map[uint16]ErrorCategory{
	ldap.LDAPResultInvalidCredentials:          ErrorCategoryAuthentication,
	ldap.LDAPResultInappropriateAuthentication: ErrorCategoryAuthentication,
	ldap.LDAPResultStrongAuthRequired:          ErrorCategoryAuthentication,
	ldap.LDAPResultConfidentialityRequired:     ErrorCategoryAuthentication,

	ldap.LDAPResultInsufficientAccessRights: ErrorCategoryPermission,
	ldap.LDAPResultUnwillingToPerform:       ErrorCategoryPermission,

	ldap.LDAPResultNoSuchObject:           ErrorCategoryNotFound,
	ldap.LDAPResultNoSuchAttribute:        ErrorCategoryNotFound,
	ldap.LDAPResultUndefinedAttributeType: ErrorCategoryNotFound,

	ldap.LDAPResultEntryAlreadyExists:     ErrorCategoryConflict,
	ldap.LDAPResultAttributeOrValueExists: ErrorCategoryConflict,
	ldap.LDAPResultObjectClassViolation:   ErrorCategoryConflict,
	ldap.LDAPResultNotAllowedOnNonLeaf:    ErrorCategoryConflict,

	ldap.LDAPResultInvalidAttributeSyntax: ErrorCategoryValidation,
	ldap.LDAPResultConstraintViolation:    ErrorCategoryValidation,
	ldap.LDAPResultInvalidDNSyntax:        ErrorCategoryValidation,
	ldap.LDAPResultNamingViolation:        ErrorCategoryValidation,
	ldap.LDAPResultFilterError:            ErrorCategoryValidation,

	ldap.LDAPResultServerDown:         ErrorCategoryServer,
	ldap.LDAPResultUnavailable:        ErrorCategoryServer,
	ldap.LDAPResultBusy:               ErrorCategoryServer,
	ldap.LDAPResultTimeLimitExceeded:  ErrorCategoryServer,
	ldap.LDAPResultAdminLimitExceeded: ErrorCategoryServer,

	ldap.LDAPResultConnectError:  ErrorCategoryConnection,
	ldap.LDAPResultProtocolError: ErrorCategoryConnection,
}

// resultMessages holds operator-facing text for the same codes.
var resultMessages = map[uint16]string{
	ldap.LDAPResultInvalidCredentials:          "Invalid credentials",
	ldap.LDAPResultInappropriateAuthentication: "Inappropriate authentication method",
	ldap.LDAPResultStrongAuthRequired:          "Strong authentication required",
	ldap.LDAPResultConfidentialityRequired:     "Confidentiality required, use TLS",
	ldap.LDAPResultInsufficientAccessRights:    "Insufficient access rights",
	ldap.LDAPResultUnwillingToPerform:          "Server is unwilling to perform the operation",
	ldap.LDAPResultNoSuchObject:                "Requested object does not exist",
	ldap.LDAPResultNoSuchAttribute:             "Requested attribute does not exist",
	ldap.LDAPResultUndefinedAttributeType:      "Attribute type is not defined",
	ldap.LDAPResultEntryAlreadyExists:          "Entry already exists",
	ldap.LDAPResultAttributeOrValueExists:      "Attribute or value already exists",
	ldap.LDAPResultObjectClassViolation:        "Object class violation",
	ldap.LDAPResultNotAllowedOnNonLeaf:         "Operation not allowed on non-leaf entry",
	ldap.LDAPResultNotAllowedOnRDN:             "Operation not allowed on RDN",
	ldap.LDAPResultInvalidAttributeSyntax:      "Invalid attribute syntax",
	ldap.LDAPResultConstraintViolation:         "Constraint violation",
	ldap.LDAPResultInvalidDNSyntax:             "Invalid DN syntax",
	ldap.LDAPResultNamingViolation:             "Naming violation",
	ldap.LDAPResultFilterError:                 "Invalid search filter",
	ldap.LDAPResultSizeLimitExceeded:           "Size limit exceeded, lower AD_PAGE_SIZE",
	ldap.LDAPResultTimeLimitExceeded:           "Time limit exceeded",
	ldap.LDAPResultAdminLimitExceeded:          "Administrative limit exceeded",
	ldap.LDAPResultServerDown:                  "Server is down",
	ldap.LDAPResultUnavailable:                 "Server is unavailable",
	ldap.LDAPResultBusy:                        "Server is busy",
	ldap.LDAPResultConnectError:                "Connection error",
	ldap.LDAPResultProtocolError:               "Protocol error",
	ldap.LDAPResultTimeout:                     "Operation timed out",
}

// messageKeywords classifies errors that carry no result code, checked in order.
var messageKeywords = []struct {
	category ErrorCategory
	words    []string
}{
	{ErrorCategoryConnection, []string{"connection", "network", "timeout", "broken pipe"}},
	{ErrorCategoryAuthentication, []string{"authentication", "credentials", "password"}},
	{ErrorCategoryPermission, []string{"permission", "access", "denied"}},
}

// LDAPError is a failed directory operation with its result code and category.
type LDAPError struct {
	Operation string
	Category  ErrorCategory
	LDAPCode  uint16
	Message   string
	ServerMsg string // diagnostic text from the server
	DN        string // entry the operation targeted, when known
	Cause     error
}

func (e *LDAPError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "LDAP %s failed", e.Operation)
	if e.LDAPCode > 0 {
		fmt.Fprintf(&b, " (code %d)", e.LDAPCode)
	}
	if e.Message != "" {
		b.WriteString(" - " + e.Message)
	}
	if e.ServerMsg != "" && e.ServerMsg != e.Message {
		b.WriteString(" - server: " + e.ServerMsg)
	}
	if e.DN != "" {
		b.WriteString(" - DN: " + e.DN)
	}

	return b.String()
}

func (e *LDAPError) Unwrap() error {
	return e.Cause
}

// NewLDAPError classifies err as the failure of operation.
func NewLDAPError(operation string, err error) *LDAPError {
	if err == nil {
		return nil
	}

	ldapErr := &LDAPError{Operation: operation, Cause: err}

	var resultErr *ldap.Error
	if !errors.As(err, &resultErr) {
		ldapErr.Category = categorizeGenericError(err)
		ldapErr.Message = err.Error()
		return ldapErr
	}

	ldapErr.LDAPCode = resultErr.ResultCode
	ldapErr.Category = categorizeError(resultErr.ResultCode)
	ldapErr.Message = getLDAPCodeMessage(resultErr.ResultCode)
	if resultErr.Err != nil {
		ldapErr.ServerMsg = resultErr.Err.Error()
	}

	return ldapErr
}

func categorizeError(code uint16) ErrorCategory {
	if category, ok := resultCategories[code]; ok {
		return category
	}
	return ErrorCategoryUnknown
}

func categorizeGenericError(err error) ErrorCategory {
	msg := strings.ToLower(err.Error())

	for _, k := range messageKeywords {
		for _, word := range k.words {
			if strings.Contains(msg, word) {
				return k.category
			}
		}
	}

	return ErrorCategoryUnknown
}

func getLDAPCodeMessage(code uint16) string {
	if msg, ok := resultMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown LDAP error (code %d)", code)
}

// WrapError classifies err unless it is already an *LDAPError, in which case
// only a missing operation name is filled in.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var ldapErr *LDAPError
	if !errors.As(err, &ldapErr) {
		return NewLDAPError(operation, err)
	}
	if ldapErr.Operation == "" {
		ldapErr.Operation = operation
	}
	return err
}

// WrapErrorWithDN is WrapError that also records the targeted DN.
func WrapErrorWithDN(operation, dn string, err error) error {
	wrapped := WrapError(operation, err)

	var ldapErr *LDAPError
	if errors.As(wrapped, &ldapErr) && ldapErr.DN == "" {
		ldapErr.DN = dn
	}

	return wrapped
}

// GetErrorCategory returns the category of err, classifying it if needed.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		return ldapErr.Category
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		return categorizeError(resultErr.ResultCode)
	}

	return categorizeGenericError(err)
}

func IsNotFoundError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryNotFound
}

// IsConflictError reports whether the target name is already taken.
func IsConflictError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryConflict
}

// IsPermissionError reports whether the bound account lacks the rights.
func IsPermissionError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryPermission
}

func IsAuthenticationError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryAuthentication
}
