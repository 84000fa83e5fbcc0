package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStatus(t *testing.T) {
	raw := []byte(`{"id":"a","type":"status","data":{"name":"alice","playing":true,"currentMediaURL":"https://example.com/v.mp4","currentMediaTimestamp":100000,"currentPing":20,"currentPlaybackRate":1}}`)

	msg, err := Decode(raw)
	require.NoError(t, err)

	status, ok := msg.(*Status)
	require.True(t, ok, "expected *Status, got %T", msg)
	assert.Equal(t, "a", status.Sender())
	assert.Equal(t, KindStatus, status.Kind())
	assert.Equal(t, "alice", status.Data.Name)
	assert.True(t, status.Data.Playing)
	assert.Equal(t, 100000, status.Data.CurrentMediaTimestamp)
	assert.Equal(t, 20, status.Data.CurrentPing)
	assert.Equal(t, 1.0, status.Data.CurrentPlaybackRate)
}

func TestDecodeSetLeaderAlias(t *testing.T) {
	for _, kind := range []string{"setRuler", "setLeader"} {
		raw := []byte(`{"id":"a","type":"` + kind + `","data":{"newRulerID":"b"}}`)

		msg, err := Decode(raw)
		require.NoError(t, err)

		setRuler, ok := msg.(*SetRuler)
		require.True(t, ok)
		assert.Equal(t, "b", setRuler.Data.NewRulerID)
		assert.Zero(t, setRuler.Data.Epoch)
	}
}

func TestDecodeConnect(t *testing.T) {
	raw := []byte(`{"id":"god","type":"connect","data":{"id":"b","currentRulerID":"a","currentRulerEpoch":3,
		"currentSessions":[{"id":"a","name":"alice","playing":true}],
		"currentMediaURL":"https://example.com/v.mp4","currentMediaPaused":false,"currentMediaTimestamp":5000}}`)

	msg, err := Decode(raw)
	require.NoError(t, err)

	connect, ok := msg.(*Connect)
	require.True(t, ok)
	assert.Equal(t, RelayID, connect.Sender())
	assert.Equal(t, "b", connect.Data.ID)
	assert.Equal(t, "a", connect.Data.CurrentRulerID)
	assert.Equal(t, uint64(3), connect.Data.CurrentRulerEpoch)
	require.Len(t, connect.Data.CurrentSessions, 1)
	assert.Equal(t, "alice", connect.Data.CurrentSessions[0].Name)
	assert.Equal(t, 5000, connect.Data.CurrentMediaTimestamp)
}

func TestDecodeCommandsWithoutData(t *testing.T) {
	msg, err := Decode([]byte(`{"id":"a","type":"play"}`))
	require.NoError(t, err)
	assert.IsType(t, &Play{}, msg)

	msg, err = Decode([]byte(`{"id":"a","type":"pause","data":{}}`))
	require.NoError(t, err)
	assert.IsType(t, &Pause{}, msg)
}

func TestDecodeUnknownType(t *testing.T) {
	msg, err := Decode([]byte(`{"id":"a","type":"chat","data":{"text":"hi"}}`))
	require.NoError(t, err)

	unknown, ok := msg.(*Unknown)
	require.True(t, ok)
	assert.Equal(t, Kind("chat"), unknown.Kind())
	assert.False(t, unknown.Kind().Known())
	assert.JSONEq(t, `{"text":"hi"}`, string(unknown.Data))
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`hello there`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)

	_, err = Decode([]byte(`{"id":"a"}`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)

	_, err = Decode([]byte(`{"id":"a","type":"seek","data":{"mediaTimestamp":"soon"}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Decode([]byte(`{"id":"a","type":"status","data":[1,2,3]}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNewEnvelope(t *testing.T) {
	env, err := New("a", KindSeek, SeekData{MediaTimestamp: 1234})
	require.NoError(t, err)

	raw, err := env.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","type":"seek","data":{"mediaTimestamp":1234}}`, string(raw))

	env, err = New("a", KindPlay, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(env.Data))
}
