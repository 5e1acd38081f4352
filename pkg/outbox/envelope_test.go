package outbox

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeDefaults(t *testing.T) {
	env := newEnvelope(0, time.Time{}, nil, json.RawMessage(`{"intentCode":"PI-1"}`))
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.False(t, env.OccurredAt.IsZero())
	assert.NotEmpty(t, env.EventID)
}

func TestDecodeEnvelope(t *testing.T) {
	good, err := json.Marshal(newEnvelope(1, time.Now(), &ActorRef{Source: "requery"}, json.RawMessage(`{"a":1}`)))
	require.NoError(t, err)

	env, err := DecodeEnvelope(good)
	require.NoError(t, err)
	assert.Equal(t, "requery", env.Actor.Source)

	_, err = DecodeEnvelope([]byte(`{"version":9,"data":{"a":1}}`))
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))

	_, err = DecodeEnvelope([]byte(`{"version":1,"data":null}`))
	assert.True(t, errors.Is(err, ErrEmptyPayload))

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}
