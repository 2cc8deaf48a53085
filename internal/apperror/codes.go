package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Detection-specific error codes
const (
	// Observation intake errors
	CodeInvalidObservation   Code = "INVALID_OBSERVATION"
	CodeInvalidProductID     Code = "INVALID_PRODUCT_ID"
	CodeInvalidMarketplaceID Code = "INVALID_MARKETPLACE_ID"
	CodePriceUnavailable     Code = "PRICE_UNAVAILABLE"

	// Currency errors
	CodeUnknownCurrency  Code = "UNKNOWN_CURRENCY"
	CodeRateUnavailable  Code = "RATE_UNAVAILABLE"
	CodeConversionFailed Code = "CONVERSION_FAILED"

	// Risk scoring configuration errors
	CodeInvalidRiskWeights Code = "INVALID_RISK_WEIGHTS"
	CodeInvalidThreshold   Code = "INVALID_THRESHOLD"

	// Feed errors
	CodeFeedConnectionFailed Code = "FEED_CONNECTION_FAILED"
	CodeFeedDecodeFailed     Code = "FEED_DECODE_FAILED"
	CodeWebSocketClosed      Code = "WEBSOCKET_CLOSED"

	// Emission errors
	CodeSinkDeliveryFailed Code = "SINK_DELIVERY_FAILED"
	CodeSinkUnavailable    Code = "SINK_UNAVAILABLE"
	CodeHistoryWriteFailed Code = "HISTORY_WRITE_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
