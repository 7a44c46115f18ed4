package decoder

import (
	"strconv"
	"strings"

	"github.com/hatlonely/rooster/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// IniDecoder section 名中的点号表示嵌套，例如 [repository.table]
//
// 值会尝试转换为 bool、整数、浮点数，逗号分隔的值转换为列表
type IniDecoder struct {
	// AllowShadows 重复的键合并为列表
	AllowShadows bool
}

func NewIniDecoder() *IniDecoder {
	return &IniDecoder{AllowShadows: true}
}

func (i *IniDecoder) Decode(data []byte) (storage.Storage, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:             i.AllowShadows,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "ini.LoadSources failed")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if section.Name() != ini.DefaultSection {
			for _, part := range strings.Split(section.Name(), ".") {
				child, ok := target[part].(map[string]any)
				if !ok {
					child = map[string]any{}
					target[part] = child
				}
				target = child
			}
		}
		for _, key := range section.Keys() {
			target[key.Name()] = i.parseKey(key)
		}
	}
	return storage.NewMapStorage(result), nil
}

func (i *IniDecoder) parseKey(key *ini.Key) any {
	if i.AllowShadows {
		if values := key.ValueWithShadows(); len(values) > 1 {
			result := make([]any, len(values))
			for idx, value := range values {
				result[idx] = parseValue(value)
			}
			return result
		}
	}
	return parseValue(key.String())
}

func parseValue(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if b, err := strconv.ParseBool(value); err == nil && (strings.EqualFold(value, "true") || strings.EqualFold(value, "false")) {
		return b
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		result := make([]any, len(parts))
		for idx, part := range parts {
			result[idx] = parseValue(part)
		}
		return result
	}
	return value
}
