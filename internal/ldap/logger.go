package ldap

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
)

// Subsystem logger names.
const (
	SubsystemLDAP      = "ldap"
	SubsystemKerberos  = "kerberos"
	SubsystemDiscovery = "discovery"
)

// subsystem returns the named child of logger, or a null logger when logger is nil.
func subsystem(logger hclog.Logger, name string) hclog.Logger {
	if logger == nil {
		return hclog.NewNullLogger()
	}
	return logger.Named(name)
}

// fieldArgs flattens fields into hclog key/value pairs in key order.
func fieldArgs(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	return args
}

// LogOperation is a helper function to log an operation with timing.
func LogOperation(logger hclog.Logger, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	fields = SanitizeFields(fields)
	fields["operation"] = operation

	logger.Debug("Starting operation", fieldArgs(fields)...)

	err := fn()

	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		fields["error"] = err.Error()
		logger.Error("Operation failed", fieldArgs(fields)...)
	} else {
		logger.Debug("Operation completed successfully", fieldArgs(fields)...)
	}

	return err
}

// LogLDAPError logs LDAP-specific error information.
func LogLDAPError(logger hclog.Logger, operation string, err error, fields map[string]any) {
	fields = SanitizeFields(fields)
	fields["operation"] = operation
	fields["error"] = err.Error()

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		fields["ldap_result_code"] = resultErr.ResultCode
		if resultErr.MatchedDN != "" {
			fields["ldap_matched_dn"] = resultErr.MatchedDN
		}
		if resultErr.Err != nil {
			fields["ldap_diagnostic_message"] = resultErr.Err.Error()
		}
	}

	logger.Error("LDAP operation failed", fieldArgs(fields)...)
}

var sensitiveFieldMarkers = []string{"password", "secret", "token", "credential", "keytab_content"}

// SanitizeFields returns a copy of fields with sensitive values redacted.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any, len(fields)+3)
	for key, value := range fields {
		lower := strings.ToLower(key)
		redact := false
		for _, marker := range sensitiveFieldMarkers {
			if strings.Contains(lower, marker) {
				redact = true
				break
			}
		}
		if redact {
			sanitized[key] = "[REDACTED]"
		} else {
			sanitized[key] = value
		}
	}
	return sanitized
}
