package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Attempt Governor ──────────────────────────────────────────────
	ErrAlreadyPassed         ErrCode = "ALREADY_PASSED"
	ErrAttemptsExhausted     ErrCode = "ATTEMPTS_EXHAUSTED"
	ErrPracticeQuotaExceeded ErrCode = "PRACTICE_QUOTA_EXHAUSTED"

	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionNotFound      ErrCode = "SESSION_NOT_FOUND"
	ErrSessionSubmitted     ErrCode = "SESSION_ALREADY_SUBMITTED"
	ErrConfirmationRequired ErrCode = "CONFIRMATION_REQUIRED"
	ErrInvalidQuestion      ErrCode = "INVALID_QUESTION"
	ErrInvalidOption        ErrCode = "INVALID_OPTION"
	ErrInvalidPosition      ErrCode = "INVALID_POSITION"

	// ─── Submission ────────────────────────────────────────────────────
	ErrResultPersistence ErrCode = "RESULT_PERSISTENCE_FAILED"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The identifier format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Attempt Governor ──────────────────────────────────────────────
	case ErrAlreadyPassed:
		return "You have already passed this exam and cannot retake it."
	case ErrAttemptsExhausted:
		return "You have used all available attempts for this exam."
	case ErrPracticeQuotaExceeded:
		return "You have used all free practice attempts. Subscribe for unlimited practice."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "No active session was found for this exam."
	case ErrSessionSubmitted:
		return "This session has already been submitted."
	case ErrConfirmationRequired:
		return "Some questions are unanswered. Confirm to submit anyway."
	case ErrInvalidQuestion:
		return "That question is not part of this exam."
	case ErrInvalidOption:
		return "The selected option does not exist for this question."
	case ErrInvalidPosition:
		return "The requested question position is out of range."

	// ─── Submission ────────────────────────────────────────────────────
	case ErrResultPersistence:
		return "Your result could not be saved. Please try submitting again."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The resource was not found."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
