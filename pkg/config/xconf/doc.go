// Package xconf 基于 koanf 的配置加载器，支持热重载。
//
// # 加载
//
//	cfg, err := xconf.New("/etc/xroll/config.yaml",
//		xconf.WithDefaults([]byte("log_level: info\n")))
//	var rc xrotate.Config
//	err = cfg.Unmarshal("rotation", &rc)
//
// 支持 YAML（.yaml、.yml）和 JSON（.json）。WithDefaults 的内容先于文件加载，
// 文件中的键覆盖默认值。
//
// # 并发
//
// 每次加载生成新的 koanf 实例并用 atomic.Pointer 替换，Client 和 Unmarshal 不加锁。
// Reload 之间串行执行。Client 返回的实例是快照，Reload 后不会更新，需要时重新调用 Client。
//
// # 监视
//
// [Watch] 基于 fsnotify 监视配置文件所在目录，内置防抖，
// 兼容编辑器的原子保存和 ConfigMap 的 ..data 切换：
//
//	w, err := xconf.Watch(cfg, func(c xconf.Config, err error) {
//		if err != nil {
//			return // 保留旧配置
//		}
//		level := c.Client().String("log_level")
//		...
//	})
//	go w.Run(ctx)
//
// Run 阻塞直到 ctx 取消，适合作为 xrun.Group 的一个成员。
package xconf
