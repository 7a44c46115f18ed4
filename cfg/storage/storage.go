package storage

// Storage 解码后的配置数据
type Storage interface {
	// Sub 获取子配置，key 为空时返回自身
	Sub(key string) Storage

	// ConvertTo 将配置数据转成结构体或者 map/slice 等任意结构
	ConvertTo(object any) error
}
