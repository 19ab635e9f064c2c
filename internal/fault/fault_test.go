package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Datastore, CodeOf(New(Datastore, errors.New("redis: connection refused"))))
	assert.Equal(t, Validation, CodeOf(Newf(Validation, "field %q missing", "room")))
	assert.Equal(t, Unknown, CodeOf(errors.New("something else")))

	// classification survives wrapping
	wrapped := fmt.Errorf("handling updateStatus: %w", New(Authorization, nil))
	assert.Equal(t, Authorization, CodeOf(wrapped))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("record not found")
	err := New(NotFound, cause)
	assert.ErrorIs(t, err, cause)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "AUTHENTICATION_ERROR", New(Authentication, nil).Error())
	assert.Equal(t, "DATASTORE_ERROR: timeout", New(Datastore, errors.New("timeout")).Error())
}

func TestSafeMessageNeverLeaksCause(t *testing.T) {
	for code := range safeMessages {
		env := Envelope(New(code, errors.New("internal secret detail")))
		assert.Equal(t, string(code), env.Code)
		assert.Equal(t, SafeMessage(code), env.Message)
		assert.NotContains(t, env.Message, "secret")
		assert.False(t, env.Timestamp.IsZero())
	}
}

func TestEnvelopeUnclassified(t *testing.T) {
	env := Envelope(errors.New("raw"))
	assert.Equal(t, string(Unknown), env.Code)
	assert.Equal(t, SafeMessage(Unknown), env.Message)
}

func TestCritical(t *testing.T) {
	assert.True(t, Datastore.Critical())
	assert.True(t, Authentication.Critical())
	assert.False(t, Validation.Critical())
	assert.False(t, Authorization.Critical())
	assert.False(t, Unknown.Critical())
}
