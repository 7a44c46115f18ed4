package decoder

import (
	"strings"

	"github.com/hatlonely/rooster/cfg/storage"
	"github.com/pkg/errors"
)

// Decoder 将原始配置数据解码为存储对象
type Decoder interface {
	Decode(data []byte) (storage.Storage, error)
}

// NewDecoder 按格式名创建解码器，格式名不区分大小写，可以带前导点号
func NewDecoder(format string) (Decoder, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json", "json5":
		return NewJsonDecoder(), nil
	case "yaml", "yml":
		return NewYamlDecoder(), nil
	case "toml":
		return NewTomlDecoder(), nil
	case "ini":
		return NewIniDecoder(), nil
	}
	return nil, errors.Errorf("unsupported config format %q", format)
}
