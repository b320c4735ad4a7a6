package xconf

// Options 配置加载选项
type Options struct {
	// Delim 键分隔符，默认 "."
	Delim string

	// Tag Unmarshal 使用的结构体标签，默认 "koanf"
	Tag string

	// Defaults 在文件内容之前加载的默认值，文件中的同名键覆盖默认值
	Defaults []byte
}

// Option 配置选项函数
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Delim: ".",
		Tag:   "koanf",
	}
}

// WithDelim 设置键分隔符
func WithDelim(delim string) Option {
	return func(o *Options) {
		if delim != "" {
			o.Delim = delim
		}
	}
}

// WithTag 设置结构体标签名
func WithTag(tag string) Option {
	return func(o *Options) {
		if tag != "" {
			o.Tag = tag
		}
	}
}

// WithDefaults 设置默认值，格式与配置文件相同
//
// 每次 Reload 都会重新应用默认值，从文件中删除的键回落到默认值。
func WithDefaults(data []byte) Option {
	return func(o *Options) {
		o.Defaults = data
	}
}
