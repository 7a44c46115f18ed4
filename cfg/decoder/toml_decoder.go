package decoder

import (
	"github.com/BurntSushi/toml"
	"github.com/hatlonely/rooster/cfg/storage"
	"github.com/pkg/errors"
)

type TomlDecoder struct{}

func NewTomlDecoder() *TomlDecoder {
	return &TomlDecoder{}
}

// Decode 数组表解码为 []map[string]any，由 MapStorage 统一处理
func (t *TomlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result map[string]any
	if _, err := toml.Decode(string(data), &result); err != nil {
		return nil, errors.Wrap(err, "toml.Decode failed")
	}
	return storage.NewMapStorage(result), nil
}
