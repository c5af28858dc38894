package layout

import "github.com/ByLCY/columna/typeset"

// BuildOptions 配置布局阶段所需的依赖，例如字体度量来源。
type BuildOptions struct {
	Fonts FontProvider
	Debug DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	RawUnits bool // 在调试 JSON 中输出 debug.rawUnits 影子字段
	Summary  bool // 调试 JSON 只输出每页的操作计数与表格分片
}

// FontProvider 把文档中声明的字体资源解析为度量。
// 对同一资源应返回同一个 Metrics 值，布局用它反查字体名。
type FontProvider interface {
	Metrics(font FontResource) (typeset.Metrics, error)
}
