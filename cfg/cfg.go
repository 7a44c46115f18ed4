package cfg

import (
	"os"
	"path/filepath"

	"github.com/hatlonely/rooster/cfg/decoder"
	"github.com/hatlonely/rooster/cfg/storage"
	"github.com/hatlonely/rooster/cfg/validator"
	"github.com/pkg/errors"
)

// Config 只读配置，加载一次后不再变化
//
// 支持 json(json5)、yaml、toml、ini 四种格式，结构体字段按 cfg tag 绑定，
// 默认值来自 def tag，绑定之后按 validate tag 校验
type Config struct {
	storage storage.Storage
	key     string
}

// NewConfig 根据文件扩展名选择解码器
func NewConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s failed", filename)
	}
	c, err := NewConfigFromBytes(data, filepath.Ext(filename))
	if err != nil {
		return nil, errors.WithMessagef(err, "config %s", filename)
	}
	return c, nil
}

func NewConfigFromBytes(data []byte, format string) (*Config, error) {
	d, err := decoder.NewDecoder(format)
	if err != nil {
		return nil, err
	}
	s, err := d.Decode(data)
	if err != nil {
		return nil, err
	}
	return &Config{storage: s}, nil
}

// Sub key 为空时返回自身
func (c *Config) Sub(key string) *Config {
	if key == "" {
		return c
	}
	fullKey := key
	if c.key != "" {
		fullKey = c.key + "." + key
	}
	return &Config{storage: c.storage.Sub(key), key: fullKey}
}

// ConvertTo 绑定并校验，object 必须是非 nil 指针
func (c *Config) ConvertTo(object any) error {
	if err := c.storage.ConvertTo(object); err != nil {
		return errors.WithMessagef(err, "convert %s failed", c.name())
	}
	if err := validator.ValidateStruct(object); err != nil {
		return errors.Wrapf(err, "validate %s failed", c.name())
	}
	return nil
}

func (c *Config) name() string {
	if c.key == "" {
		return "config"
	}
	return c.key
}

// Load 加载文件并绑定到 object
func Load(filename string, object any) error {
	c, err := NewConfig(filename)
	if err != nil {
		return err
	}
	return c.ConvertTo(object)
}
