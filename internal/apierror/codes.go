package apierror

// Error type URIs following the urn:engagement:error:* pattern.
// These are used as the "type" field in RFC 9457 Problem Details.
const (
	// TypeValidation indicates request validation failed (400)
	TypeValidation = "urn:engagement:error:validation"

	// TypeBadRequest indicates a malformed request body (400)
	TypeBadRequest = "urn:engagement:error:bad_request"

	// TypeInvalidTimezone indicates an unknown IANA zone or offset (400)
	TypeInvalidTimezone = "urn:engagement:error:invalid_timezone"

	// TypeInvalidTimestamp indicates a reference instant that is not RFC 3339 (400)
	TypeInvalidTimestamp = "urn:engagement:error:invalid_timestamp"

	// TypeUnauthorized indicates the caller did not identify a user (401)
	TypeUnauthorized = "urn:engagement:error:unauthorized"

	// TypeNotFound indicates the requested route or resource does not exist (404)
	TypeNotFound = "urn:engagement:error:not_found"

	// TypePayloadTooLarge indicates a batch above the configured limit (413)
	TypePayloadTooLarge = "urn:engagement:error:payload_too_large"

	// TypeRateLimit indicates too many requests (429)
	TypeRateLimit = "urn:engagement:error:rate_limit"

	// TypeInternal indicates an unexpected server error (500)
	TypeInternal = "urn:engagement:error:internal"
)

// Titles for each error type
const (
	TitleValidation       = "Validation Error"
	TitleBadRequest       = "Bad Request"
	TitleInvalidTimezone  = "Invalid Timezone"
	TitleInvalidTimestamp = "Invalid Timestamp"
	TitleUnauthorized     = "User Identification Required"
	TitleNotFound         = "Resource Not Found"
	TitlePayloadTooLarge  = "Batch Too Large"
	TitleRateLimit        = "Rate Limit Exceeded"
	TitleInternal         = "Internal Server Error"
)
