package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Observation intake errors
	CodeInvalidObservation:   "Invalid price observation",
	CodeInvalidProductID:     "Invalid product identifier",
	CodeInvalidMarketplaceID: "Invalid marketplace identifier",
	CodePriceUnavailable:     "Price unavailable for observation",

	// Currency errors
	CodeUnknownCurrency:  "Unknown currency code",
	CodeRateUnavailable:  "No exchange rate available",
	CodeConversionFailed: "Currency conversion failed",

	// Risk scoring configuration errors
	CodeInvalidRiskWeights: "Risk weights must sum to 1",
	CodeInvalidThreshold:   "Threshold must not be negative",

	// Feed errors
	CodeFeedConnectionFailed: "Failed to connect to observation feed",
	CodeFeedDecodeFailed:     "Failed to decode observation payload",
	CodeWebSocketClosed:      "WebSocket connection closed",

	// Emission errors
	CodeSinkDeliveryFailed: "Failed to deliver event to sink",
	CodeSinkUnavailable:    "Emission sink unavailable",
	CodeHistoryWriteFailed: "Failed to write opportunity history",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
