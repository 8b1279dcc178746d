package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Pool and swap error codes
const (
	CodeZeroAmount            Code = "ZERO_AMOUNT"
	CodeUnsupportedPair       Code = "UNSUPPORTED_PAIR"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	CodeUnauthorizedProvider  Code = "UNAUTHORIZED_PROVIDER"
	CodeSwapFailed            Code = "SWAP_FAILED"
)

// Flash loan error codes
const (
	CodeLoanNotRepaid        Code = "LOAN_NOT_REPAID"
	CodeLoanInFlight         Code = "LOAN_IN_FLIGHT"
	CodeUnauthorizedCallback Code = "UNAUTHORIZED_CALLBACK"
)

// Arbitrage error codes
const (
	CodeArbitrageAborted Code = "ARBITRAGE_ABORTED"
	CodeCircuitOpen      Code = "CIRCUIT_OPEN"
)
