// Package xfile 提供日志文件路径的校验与目录准备。
//
//   - [SanitizePath]: 规范化文件路径，拒绝相对路径穿越和空字节
//   - [ValidateBaseName]: 确认文件名是单个路径段（如日志前缀）
//   - [EnsureDir]/[EnsureDirWithPerm]: 创建文件的父目录
//
// 所有错误都可用 [errors.Is] 与本包的哨兵错误比较：
//
//	if err := xfile.ValidateBaseName(prefix); errors.Is(err, xfile.ErrInvalidName) {
//	    // prefix 含分隔符
//	}
package xfile
