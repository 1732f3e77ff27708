package core_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladsoleymani/brokerbridge/core"
)

func TestProvisionError_InvalidConfiguration(t *testing.T) {
	err := error(core.NewInvalidConfiguration("One of the fields 'brokers' or 'topic' is missing"))

	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
	assert.NotErrorIs(t, err, core.ErrBackendUnavailable)
	assert.Equal(t, "brokerbridge: Invalid resource configuration: One of the fields 'brokers' or 'topic' is missing", err.Error())

	var pe *core.ProvisionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, core.InvalidConfiguration, pe.Kind)
}

func TestProvisionError_BackendUnavailable(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := error(core.NewBackendUnavailable(cause))

	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestInstanceID_RoundTrip(t *testing.T) {
	node := uuid.New()
	id := core.NewInstanceID(node)

	assert.Equal(t, node, id.NodeID)
	assert.False(t, id.IsZero())

	parsed, err := core.ParseInstanceID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestInstanceID_Unique(t *testing.T) {
	node := uuid.New()
	seen := make(map[core.InstanceID]struct{})
	for i := 0; i < 1000; i++ {
		id := core.NewInstanceID(node)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestParseInstanceID_Malformed(t *testing.T) {
	for _, s := range []string{"", "abc", "not-a-uuid/also-not", uuid.NewString() + "/x"} {
		_, err := core.ParseInstanceID(s)
		assert.Error(t, err, s)
	}
}

func TestMessageKind_String(t *testing.T) {
	assert.Equal(t, "cast", core.KindCast.String())
	assert.Equal(t, "call", core.KindCall.String())
	assert.Equal(t, "control", core.KindControl.String())
	assert.Equal(t, "MessageKind(42)", core.MessageKind(42).String())
}
