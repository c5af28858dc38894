package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是文档未声明字体时使用的内置字体。
const Default = "Go-Regular"

var builtin = map[string][]byte{
	"go-regular":    goregular.TTF,
	"go-bold":       gobold.TTF,
	"go-italic":     goitalic.TTF,
	"go-bolditalic": gobolditalic.TTF,
	"go-mono":       gomono.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:Go-Regular"、"Go-Regular.ttf" 或 "Go-Regular"（不区分大小写）。
func Load(name string) ([]byte, error) {
	key := strings.TrimPrefix(strings.TrimSpace(name), "embed:")
	key = strings.ToLower(strings.TrimSuffix(key, ".ttf"))
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 可用字体为 %s", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 返回全部内置字体名（小写）。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for k := range builtin {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
