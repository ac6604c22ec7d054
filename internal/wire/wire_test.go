package wire

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	require.NoError(t, WriteEndOfStream(&buf))

	payload, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))

	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestEnvelopeEncodeDecode(t *testing.T) {
	raw, err := Encode(KindHello, Hello{Name: "member1"})
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindHello, env.Kind)

	var hello Hello
	require.NoError(t, json.Unmarshal(env.Payload, &hello))
	assert.Equal(t, "member1", hello.Name)
}

func TestDispatchAndResultPayloadRoundTrip(t *testing.T) {
	raw, err := Encode(KindDispatch, DispatchPayload{
		Nodes:     []string{"n1", "n2"},
		Operation: "retrieve",
		Route:     RouteDescriptor{Kind: "plugin_route", PluginAttrs: []string{"hardwaremanagement.method"}, Default: "ipmi"},
	})
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindDispatch, env.Kind)

	var dispatch DispatchPayload
	require.NoError(t, json.Unmarshal(env.Payload, &dispatch))
	assert.Equal(t, []string{"n1", "n2"}, dispatch.Nodes)
	assert.Equal(t, "ipmi", dispatch.Route.Default)

	resultRaw, err := Encode(KindResult, ResultPayload{Node: "n1", Value: json.RawMessage(`"on"`)})
	require.NoError(t, err)
	resultEnv, err := Decode(resultRaw)
	require.NoError(t, err)
	var result ResultPayload
	require.NoError(t, json.Unmarshal(resultEnv.Payload, &result))
	assert.Equal(t, "n1", result.Node)
	assert.Equal(t, `"on"`, string(result.Value))
}
