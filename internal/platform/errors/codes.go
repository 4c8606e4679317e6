package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Configuration errors
	CodeConfiguration Code = "CONFIGURATION"

	// Login errors
	CodeAuthentication Code = "AUTHENTICATION"
	CodeProfileFetch   Code = "PROFILE_FETCH"

	// Authenticated call errors
	CodeSessionExpired      Code = "SESSION_EXPIRED"
	CodeDomainAccessDenied  Code = "DOMAIN_ACCESS_DENIED"
	CodeUpstream            Code = "UPSTREAM"
	CodeUpstreamUnreachable Code = "UPSTREAM_UNREACHABLE"
)
