package server

import (
	"encoding/base64"
	"fmt"
	"strings"

	"qkd-demo/configs"
)

// Codec turns a message into what travels between Alice and Bob for one
// encryption model. No model here does real cryptography; the tags only show
// which model carried the message.
type Codec interface {
	Encode(message string) string
	Decode(message string) (string, error)
}

type prefixCodec struct {
	prefix string
}

func (c prefixCodec) Encode(message string) string {
	return c.prefix + message
}

func (c prefixCodec) Decode(message string) (string, error) {
	if !strings.HasPrefix(message, c.prefix) {
		return "", fmt.Errorf("%w: expected %s prefix", ErrUndecodable, c.prefix)
	}
	return strings.TrimPrefix(message, c.prefix), nil
}

// base64Codec shows the message in base64 for the model without a key,
// tagged like the other models
type base64Codec struct {
	tag prefixCodec
}

func (c base64Codec) Encode(message string) string {
	return c.tag.Encode(base64.StdEncoding.EncodeToString([]byte(message)))
}

func (c base64Codec) Decode(message string) (string, error) {
	encoded, err := c.tag.Decode(message)
	if err != nil {
		return "", err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return string(data), nil
}

var codecs = map[string]Codec{
	configs.ModelNone:  base64Codec{tag: prefixCodec{prefix: "NONE:"}},
	configs.ModelBB84:  prefixCodec{prefix: "ENC[BB84]"},
	configs.ModelEkert: prefixCodec{prefix: "ENC[Ekert]"},
}

// CodecFor returns the codec of an encryption model
func CodecFor(model string) (Codec, error) {
	codec, ok := codecs[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return codec, nil
}
