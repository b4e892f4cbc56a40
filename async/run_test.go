package async

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert := assert.New(t)
	a := <-Run(func() int {
		return 123
	})
	assert.Equal(123, a)
}

func TestRunError(t *testing.T) {
	assert := assert.New(t)
	err := <-Run(func() error {
		return errors.New("failed")
	})
	assert.EqualError(err, "failed")
}
