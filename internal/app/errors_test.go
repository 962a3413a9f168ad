package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"knowledge-assistant/internal/pkg/textextract"
)

func TestClientError(t *testing.T) {
	invalid := fmt.Errorf("%w: question is required", ErrInvalidInput)
	assert.Equal(t, invalid.Error(), ClientError(invalid, true))
	assert.Equal(t, invalid.Error(), ClientError(invalid, false))

	_, err := textextract.Extract("slides.pptx", nil)
	assert.True(t, IsClientError(err))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	internal := errors.New("dial tcp: connection refused")
	assert.Equal(t, "internal error", ClientError(internal, true))
	assert.Equal(t, internal.Error(), ClientError(internal, false))

	assert.Empty(t, ClientError(nil, true))
}
