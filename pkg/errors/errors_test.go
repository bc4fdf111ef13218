package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf_WrappedAppError(t *testing.T) {
	base := NewPlantNotRecognizedError("no suggestions")
	wrapped := fmt.Errorf("identify: %w", base)

	assert.Equal(t, ErrorTypePlantNotRecognized, TypeOf(wrapped))
	assert.True(t, IsType(wrapped, ErrorTypePlantNotRecognized))
	assert.False(t, IsType(wrapped, ErrorTypeRecognitionUnavailable))
}

func TestTypeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorType(""), TypeOf(fmt.Errorf("boom")))
	assert.False(t, IsType(nil, ErrorTypeInternal))
}

func TestAppError_Message(t *testing.T) {
	err := NewRecognitionUnavailableError("identification request failed", fmt.Errorf("timeout"))
	assert.Equal(t, "RECOGNITION_UNAVAILABLE: identification request failed: timeout", err.Error())

	sub := NewRecordSubmissionError("store rejected record", 422)
	assert.Equal(t, 422, sub.StatusCode)
	assert.Equal(t, "RECORD_SUBMISSION: store rejected record", sub.Error())
}
