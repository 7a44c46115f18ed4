package decoder

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/hatlonely/rooster/cfg/storage"
	"github.com/pkg/errors"
)

var trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

// JsonDecoder 支持 // 和 /* */ 注释以及尾随逗号
type JsonDecoder struct {
	// UseJSON5 为 false 时按标准 JSON 解析
	UseJSON5 bool
}

func NewJsonDecoder() *JsonDecoder {
	return &JsonDecoder{UseJSON5: true}
}

func (j *JsonDecoder) Decode(data []byte) (storage.Storage, error) {
	if j.UseJSON5 {
		data = []byte(trailingCommaRegex.ReplaceAllString(stripComments(string(data)), "$1"))
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "json.Unmarshal failed")
	}
	return storage.NewMapStorage(result), nil
}

// stripComments 去掉字符串字面量之外的注释
func stripComments(content string) string {
	var sb strings.Builder
	sb.Grow(len(content))

	inString, escaped := false, false
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if inString {
			sb.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		if ch == '/' && i+1 < len(content) {
			switch content[i+1] {
			case '/':
				for i < len(content) && content[i] != '\n' {
					i++
				}
				if i < len(content) {
					sb.WriteByte('\n')
				}
				continue
			case '*':
				end := strings.Index(content[i+2:], "*/")
				if end < 0 {
					return sb.String()
				}
				i += end + 3
				continue
			}
		}

		if ch == '"' {
			inString = true
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}
