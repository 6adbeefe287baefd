// Package errors provides structured error handling for bot commands.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Command errors
	CodeMalformedCommand Code = "COMMAND_MALFORMED"

	// Record errors
	CodeCharacterNotFound Code = "CHARACTER_NOT_FOUND"
	CodeEmptySheetText    Code = "CHARACTER_EMPTY_SHEET_TEXT"

	// Static message errors
	CodeStaticMessageNotFound Code = "STATIC_MESSAGE_NOT_FOUND"

	// Transport errors
	CodePictureFetchFailed Code = "PICTURE_FETCH_FAILED"
)
