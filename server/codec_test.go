package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qkd-demo/configs"
)

func TestCodecs(t *testing.T) {
	type testCase struct {
		model   string
		message string
		encoded string
	}

	testCases := []testCase{
		{model: configs.ModelNone, message: "This is a test message", encoded: "NONE:VGhpcyBpcyBhIHRlc3QgbWVzc2FnZQ=="},
		{model: configs.ModelBB84, message: "hello", encoded: "ENC[BB84]hello"},
		{model: configs.ModelEkert, message: "hello", encoded: "ENC[Ekert]hello"},
	}

	for _, tc := range testCases {
		t.Run(tc.model, func(t *testing.T) {
			codec, err := CodecFor(tc.model)
			require.NoError(t, err)
			assert.Equal(t, tc.encoded, codec.Encode(tc.message))

			decoded, err := codec.Decode(tc.encoded)
			require.NoError(t, err)
			assert.Equal(t, tc.message, decoded)
		})
	}
}

func TestCodecRejects(t *testing.T) {
	_, err := CodecFor("Quantum Magic")
	assert.ErrorIs(t, err, ErrUnknownModel)

	codec, err := CodecFor(configs.ModelBB84)
	require.NoError(t, err)
	_, err = codec.Decode("ENC[Ekert]hello")
	assert.ErrorIs(t, err, ErrUndecodable)

	codec, err = CodecFor(configs.ModelNone)
	require.NoError(t, err)
	_, err = codec.Decode("NONE:%%%")
	assert.ErrorIs(t, err, ErrUndecodable)
	_, err = codec.Decode("VGhpcyBpcyBhIHRlc3QgbWVzc2FnZQ==")
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestSessionCheck(t *testing.T) {
	s := &session{}
	assert.ErrorIs(t, s.check(configs.ModelBB84), ErrNoProtocol)

	s.start(configs.ModelBB84, true)
	assert.NoError(t, s.check(configs.ModelBB84))
	assert.EqualError(t, s.check(configs.ModelEkert), `Invalid protocol "Ekert Protocol" - expecting BB84 Protocol`)

	s.setEavesdropping(false)
	protocol, eavesdropping := s.state()
	assert.Equal(t, configs.ModelBB84, protocol)
	assert.False(t, eavesdropping)
}
