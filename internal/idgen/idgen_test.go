package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	id := New()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, New())

	restore := Sequence("boot")
	assert.Equal(t, "boot-1", New())
	assert.Equal(t, "boot-2", New())
	restore()
	_, err = uuid.Parse(New())
	assert.NoError(t, err)
}
