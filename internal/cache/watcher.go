package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Invalidator 由能够按路径丢弃记录的缓存实现。
type Invalidator interface {
	Invalidate(path string)
	InvalidateTree(path string)
}

// Watcher 监听资源根目录（含全部子目录），文件发生变化时立即让缓存失效，
// 这样新下载的资源不必等待存在性 TTL 过期即可被访问。
type Watcher struct {
	root    string
	target  Invalidator
	logger  *logrus.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher 为 root 及其现有子目录注册监听。
func NewWatcher(root string, target Invalidator, logger *logrus.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:    root,
		target:  target,
		logger:  logger,
		watcher: fw,
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run 处理文件事件直到 ctx 结束，退出时关闭底层 watcher。
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithFields(logrus.Fields{
				"action": "asset_watch",
				"root":   w.root,
			}).WithError(err).Warn("fsnotify error")
		}
	}
}

// Close 释放底层 watcher，供未调用 Run 的场景使用。
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.target.InvalidateTree(event.Name)
	case event.Has(fsnotify.Create):
		w.target.Invalidate(event.Name)
		// 新建目录需要补充监听，其下已存在的文件也一并失效。
		if err := w.addTree(event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			w.logger.WithFields(logrus.Fields{
				"action": "asset_watch",
				"path":   event.Name,
			}).WithError(err).Debug("watch new directory failed")
		}
	case event.Has(fsnotify.Write), event.Has(fsnotify.Chmod):
		w.target.Invalidate(event.Name)
	default:
		return
	}

	w.logger.WithFields(logrus.Fields{
		"action": "asset_watch",
		"path":   event.Name,
		"op":     event.Op.String(),
	}).Debug("cache entry invalidated")
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if path != root {
				w.target.Invalidate(path)
			}
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
