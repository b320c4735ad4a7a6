package xfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

func containsNullByte(path string) bool {
	return strings.ContainsRune(path, 0)
}

// hasDotDotSegment 判断路径中是否有恰好为 ".." 的路径段
//
// '/' 和 '\' 都视为分隔符；"..config" 这类文件名不算穿越。
func hasDotDotSegment(path string) bool {
	for i := 0; i < len(path); {
		if path[i] == '/' || path[i] == '\\' {
			i++
			continue
		}
		j := i
		for j < len(path) && path[j] != '/' && path[j] != '\\' {
			j++
		}
		if j-i == 2 && path[i] == '.' && path[i+1] == '.' {
			return true
		}
		i = j
	}
	return false
}

// SanitizePath 校验并规范化日志文件路径
//
// 拒绝空路径、空字节、以分隔符结尾的目录路径，以及规范化后仍含 ".." 段的相对路径。
// 绝对路径中的 ".." 由 filepath.Clean 正常解析（"/var/log/../tmp/a" -> "/tmp/a"）。
// 本函数只做格式检查，不限制路径所在目录。
func SanitizePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required: %w", ErrEmptyPath)
	}
	if containsNullByte(filename) {
		return "", fmt.Errorf("filename contains null byte: %w", ErrNullByte)
	}
	// Clean 会去掉尾部分隔符，必须先检查
	if strings.HasSuffix(filename, "/") || strings.HasSuffix(filename, "\\") {
		return "", fmt.Errorf("path is a directory: %w", ErrInvalidPath)
	}

	cleaned := filepath.Clean(filename)
	if hasDotDotSegment(cleaned) {
		return "", fmt.Errorf("path traversal in filename: %w", ErrPathTraversal)
	}
	base := filepath.Base(cleaned)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("no file name specified: %w", ErrInvalidPath)
	}
	return cleaned, nil
}

// ValidateBaseName 校验 name 是单个路径段，可安全地与目录拼接
//
// 不允许为空、包含空字节或分隔符（'/' 与 '\'），也不能是 "." 或 ".."。
func ValidateBaseName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name is required: %w", ErrEmptyPath)
	case containsNullByte(name):
		return fmt.Errorf("name contains null byte: %w", ErrNullByte)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q contains a path separator: %w", name, ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("name %q is a directory reference: %w", name, ErrInvalidName)
	}
	return nil
}
