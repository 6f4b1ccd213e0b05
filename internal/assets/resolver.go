package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"
)

// ErrInvalidPath 表示请求路径为空或试图逃逸出资源根目录。
var ErrInvalidPath = errors.New("invalid path")

// Resolver 将调用方提供的相对路径解析为 root 内的绝对路径。
type Resolver struct {
	root string
}

// NewResolver 以 root 为沙箱根目录构建解析器；root 会被规范化（绝对路径 + 解析符号链接），
// 目录尚不存在时按已存在的最长前缀解析。
func NewResolver(root string) (*Resolver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("asset root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve asset root: %w", err)
	}
	canonical, err := canonicalize(abs)
	if err != nil {
		return nil, fmt.Errorf("canonicalize asset root: %w", err)
	}
	return &Resolver{root: canonical}, nil
}

// Root 返回规范化后的根目录。
func (r *Resolver) Root() string {
	return r.root
}

// Resolve 规范化 rel（消除 ..、跟随符号链接）后校验其仍位于根目录内。
func (r *Resolver) Resolve(rel string) (string, error) {
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", ErrInvalidPath
	}

	candidate := filepath.FromSlash(rel)
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(r.root, candidate)
	}

	// 先做词法检查，逃逸路径不会触发任何根目录外的文件系统访问。
	candidate = filepath.Clean(candidate)
	if !r.contains(candidate) {
		return "", ErrInvalidPath
	}

	resolved, err := canonicalize(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !r.contains(resolved) {
		return "", ErrInvalidPath
	}
	return resolved, nil
}

func (r *Resolver) contains(p string) bool {
	if p == r.root {
		return true
	}
	prefix := r.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

// canonicalize 解析 p 中的符号链接；不存在的尾部组件原样拼回，
// 与“非严格”路径解析语义一致。
func canonicalize(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
		return "", err
	}

	parent := filepath.Dir(p)
	if parent == p {
		return p, nil
	}
	resolvedParent, err := canonicalize(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(p)), nil
}
