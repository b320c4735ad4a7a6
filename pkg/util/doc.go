// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xfile: 文件名校验、路径规范化和目录创建
package util
