package gateway

import (
	"errors"

	apperrors "github.com/smartgarden/backend/pkg/errors"
)

// UserMessage turns a flow error into copy for the user. A photo that was not
// recognised reads differently from a service that could not be reached.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeImageProcessing:
		return "That photo could not be read. Try a different image file."
	case apperrors.ErrorTypePlantNotRecognized:
		return "We couldn't recognise a plant in that photo. Try another photo, closer up and in good light."
	case apperrors.ErrorTypeValidation:
		return "That doesn't look like something we can save: " + messageOf(err)
	case apperrors.ErrorTypeRecognitionUnavailable:
		return "The plant recognition service is unavailable right now. Please try again shortly."
	case apperrors.ErrorTypeRecognitionProtocol:
		return "The plant recognition service sent an unexpected response. Please try again later."
	case apperrors.ErrorTypeAuthRequired:
		return "Your session has expired. Please sign in again."
	case apperrors.ErrorTypeUnauthorized:
		return "Could not sign in: " + messageOf(err)
	case apperrors.ErrorTypeConflict:
		return messageOf(err)
	case apperrors.ErrorTypeRecordSubmission:
		return "Your plant couldn't be saved: " + messageOf(err)
	case apperrors.ErrorTypeNotFound:
		return "That plant no longer exists."
	case apperrors.ErrorTypeExternal:
		return "The garden service can't be reached. Check your connection and try again."
	default:
		return "Something went wrong. Please try again."
	}
}

func messageOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
