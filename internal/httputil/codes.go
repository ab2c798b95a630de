package httputil

// Machine-readable error codes returned alongside error messages.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeInvalidAuthHeader  = "invalid_auth_header"
	CodeMissingAuth        = "missing_auth"
	CodeInvalidToken       = "invalid_token"
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeEmailAlreadyExists = "email_already_exists"
	CodeUnprocessableToken = "unprocessable_token"
	CodeVerificationError  = "verification_error"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeInvalidQueryParam  = "invalid_query_param"
	CodeTooManyRequests    = "too_many_requests"
	CodeInternalError      = "internal_error"
)
