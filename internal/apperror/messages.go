package apperror

// messages maps error codes to their default human-readable messages.
var messages = map[Code]string{
	CodeRequiredField:   "required field is missing",
	CodeInvalidInput:    "invalid input",
	CodeInvalidState:    "operation not valid in current state",
	CodeNotFound:        "resource not found",
	CodeValidationError: "validation failed",

	CodeConfigurationError: "invalid configuration",

	CodeInternalError: "internal error",
	CodeUnknownError:  "unknown error",

	CodeZeroAmount:            "amount must be greater than zero",
	CodeUnsupportedPair:       "asset pair is not supported by this pool",
	CodeInsufficientLiquidity: "pool has insufficient liquidity",
	CodeInsufficientBalance:   "holder has insufficient balance",
	CodeUnauthorizedProvider:  "only the pool owner may add liquidity",
	CodeSwapFailed:            "swap could not be completed",

	CodeLoanNotRepaid:        "flash loan was not repaid in full",
	CodeLoanInFlight:         "a flash loan is already in flight for this pool",
	CodeUnauthorizedCallback: "loan callback invoked by unexpected caller",

	CodeArbitrageAborted: "arbitrage attempt aborted",
	CodeCircuitOpen:      "circuit breaker is open",
}
