package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"qkd-demo/configs"
)

func TestTUIPageState(t *testing.T) {
	tui := NewTUI(configs.EncryptionModels)

	assert.Equal(t, configs.ModelNone, tui.Value(EncryptionModel))
	tui.NextModel()
	assert.Equal(t, configs.ModelBB84, tui.Value(EncryptionModel))
	tui.NextModel()
	tui.NextModel()
	assert.Equal(t, configs.ModelNone, tui.Value(EncryptionModel))

	assert.False(t, tui.Checked(Eavesdropping))
	tui.ToggleEavesdropping()
	assert.True(t, tui.Checked(Eavesdropping))
	assert.False(t, tui.Checked(AliceInput))

	tui.SetValue(BobReceivedEncrypted, "ENC[BB84]hi")
	assert.Equal(t, "ENC[BB84]hi", tui.Value(BobReceivedEncrypted))

	tui.AppendLog("Bob", "decode: ENC[BB84]hi")
	assert.Equal(t, []string{"Bob: decode: ENC[BB84]hi"}, tui.LogLines())
}

func TestInputText(t *testing.T) {
	type testCase struct {
		buf      string
		expected string
	}

	testCases := []testCase{
		{buf: "hello\n", expected: "hello"},
		{buf: "  hello  \n", expected: "  hello  "},
		{buf: "\thello", expected: "\thello"},
		{buf: "\n", expected: ""},
		{buf: "", expected: ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, inputText(tc.buf), "buffer %q", tc.buf)
	}
}

func TestTUIDrivesRouter(t *testing.T) {
	tui := NewTUI([]string{configs.ModelBB84, configs.ModelEkert})
	emitter := &fakeEmitter{}
	router := NewRouter(tui, emitter)

	tui.SetValue(AliceInput, "hello")
	tui.ToggleEavesdropping()
	router.SendAliceMessage()

	assert.Equal(t, []string{"Alice: send Message: hello - model: BB84 Protocol - eavesdropping: true"}, tui.LogLines())
	assert.JSONEq(t, `{"message":"hello","encryption":"BB84 Protocol","eavesdropping":true}`, emitter.sent[0].payload)
}
