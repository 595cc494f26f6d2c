package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageError(t *testing.T) {
	base := errors.New("disk full")
	err := fmt.Errorf("capture: %w", Storage("put", base))
	assert.True(t, IsStorage(err))
	assert.ErrorIs(t, err, base)
	assert.EqualError(t, err, "capture: storage put: disk full")

	assert.NoError(t, Storage("put", nil))
	assert.False(t, IsStorage(ErrNotFound))
}
