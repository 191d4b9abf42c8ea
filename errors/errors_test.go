package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapFormat(t *testing.T) {
	base := stderrors.New("port gone")
	err := Wrap(base, "Listener", "poll", "read device")

	assert.Equal(t, "Listener.poll: read device failed: port gone", err.Error())
	assert.True(t, stderrors.Is(err, base))
	assert.Nil(t, Wrap(nil, "Listener", "poll", "read device"))
}

func TestClassifiedWrappers(t *testing.T) {
	base := stderrors.New("boom")

	assert.True(t, IsTransient(WrapTransient(base, "c", "m", "a")))
	assert.True(t, IsFatal(WrapFatal(base, "c", "m", "a")))
	assert.True(t, IsInvalid(WrapInvalid(base, "c", "m", "a")))

	// Wrapping preserves the chain
	err := WrapFatal(ErrReconnectExhausted, "Listener", "Run", "connect")
	assert.True(t, stderrors.Is(err, ErrReconnectExhausted))

	assert.Nil(t, WrapTransient(nil, "c", "m", "a"))
	assert.Nil(t, WrapFatal(nil, "c", "m", "a"))
	assert.Nil(t, WrapInvalid(nil, "c", "m", "a"))
}

func TestClassifyStandardErrors(t *testing.T) {
	assert.True(t, IsTransient(ErrDeviceNotFound))
	assert.True(t, IsTransient(ErrDeviceDisconnected))
	assert.True(t, IsFatal(ErrReconnectExhausted))
	assert.True(t, IsFatal(ErrInvalidConfig))
	assert.True(t, IsInvalid(ErrUnknownHandlerKind))
	assert.True(t, IsInvalid(ErrDepthExceeded))

	assert.Equal(t, ErrorFatal, Classify(ErrReconnectExhausted))
	assert.Equal(t, ErrorInvalid, Classify(ErrDepthExceeded))
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("something else")))
}

func TestClassifyNil(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsInvalid(nil))
}

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
}
