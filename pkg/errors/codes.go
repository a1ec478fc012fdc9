package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeInternal       ErrorCode = "COMMON_001"
	ErrCodeBadRequest     ErrorCode = "COMMON_002"
	ErrCodeNotFound       ErrorCode = "COMMON_003"
	ErrCodeConflict       ErrorCode = "COMMON_004"
	ErrCodeValidation     ErrorCode = "COMMON_005"
	ErrCodeSerialization  ErrorCode = "COMMON_006"
	ErrCodeDatabaseError  ErrorCode = "COMMON_007"
	ErrCodePublishFailure ErrorCode = "COMMON_008"
	ErrCodeNotImplemented ErrorCode = "COMMON_009"
)

// Data validation error codes.
const (
	// ErrCodeRecordInvalid marks malformed or missing required fields on an
	// input record. Never auto-corrected; always surfaced to the caller.
	ErrCodeRecordInvalid ErrorCode = "VAL_001"

	// ErrCodeFeatureContractMismatch marks a disagreement between a persisted
	// model's frozen feature-column list and the feature engine's current
	// output. Scoring must not proceed with misaligned columns.
	ErrCodeFeatureContractMismatch ErrorCode = "VAL_002"
)

// Risk model error codes.
const (
	// ErrCodeModelNotTrained marks scoring or saving attempted on a model
	// that has not completed training.
	ErrCodeModelNotTrained ErrorCode = "MDL_001"

	// ErrCodeInsufficientData marks a training request with fewer labeled
	// rows than the minimum required for reliable fitting.
	ErrCodeInsufficientData ErrorCode = "MDL_002"

	// ErrCodeModelArtifact marks a persisted model artifact that cannot be
	// decoded, or whose schema version is not understood by this build.
	ErrCodeModelArtifact ErrorCode = "MDL_003"

	// ErrCodeModelKindUnknown marks a model kind outside the closed set of
	// supported estimators.
	ErrCodeModelKindUnknown ErrorCode = "MDL_004"
)

// Collections scheduler error codes.
const (
	ErrCodeAttemptNotFound     ErrorCode = "SCH_001"
	ErrCodeAttemptInvalidState ErrorCode = "SCH_002"
)

// Aliases kept for call-site readability.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeValidation   = ErrCodeValidation
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)
