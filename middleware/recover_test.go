package middleware

import (
	"errors"
	"testing"

	"github.com/emberhttp/ember"
	"github.com/stretchr/testify/assert"
)

func TestRecoverCatchesPanic(t *testing.T) {
	logger := ember.NewLogger(ember.DefaultConfig())
	wrap := Recover(logger)

	result, err := wrap(func() (interface{}, error) {
		panic("boom")
	})

	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRecoverPassesThroughNormalReturn(t *testing.T) {
	logger := ember.NewLogger(ember.DefaultConfig())
	wrap := Recover(logger)

	result, err := wrap(func() (interface{}, error) {
		return "ok", nil
	})

	assert.Equal(t, "ok", result)
	assert.NoError(t, err)
}

func TestRecoverPropagatesHandlerError(t *testing.T) {
	logger := ember.NewLogger(ember.DefaultConfig())
	wrap := Recover(logger)

	boom := errors.New("handler failed")
	_, err := wrap(func() (interface{}, error) {
		return nil, boom
	})

	assert.Equal(t, boom, err)
}
