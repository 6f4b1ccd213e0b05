package cache

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Options 控制缓存的 TTL、容量以及可替换的文件系统/时钟实现。
type Options struct {
	ExistenceTTL      time.Duration
	ContentTTL        time.Duration
	MaxContentEntries int

	// Stat 默认 os.Stat，测试中可注入计数实现。
	Stat func(name string) (fs.FileInfo, error)
	// Now 默认 time.Now。
	Now func() time.Time
}

// Service 持有存在性缓存与内容缓存，两张表由同一把锁保护。
type Service struct {
	mu        sync.Mutex
	existence map[string]ExistenceEntry
	content   map[string]ContentEntry
	counters  counters

	existenceTTL time.Duration
	contentTTL   time.Duration
	maxContent   int

	stat func(name string) (fs.FileInfo, error)
	now  func() time.Time
}

// New 创建一份空缓存；零值选项使用 30s/60s/100 的默认值。
func New(opts Options) *Service {
	if opts.ExistenceTTL <= 0 {
		opts.ExistenceTTL = 30 * time.Second
	}
	if opts.ContentTTL <= 0 {
		opts.ContentTTL = 60 * time.Second
	}
	if opts.MaxContentEntries <= 0 {
		opts.MaxContentEntries = 100
	}
	if opts.Stat == nil {
		opts.Stat = os.Stat
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		existence:    make(map[string]ExistenceEntry),
		content:      make(map[string]ContentEntry),
		existenceTTL: opts.ExistenceTTL,
		contentTTL:   opts.ContentTTL,
		maxContent:   opts.MaxContentEntries,
		stat:         opts.Stat,
		now:          opts.Now,
	}
}

// CheckExists 返回 path 的存在性与元数据。TTL 内的记录直接复用，
// 否则在锁外执行 stat 并覆盖旧记录。任何 stat 失败都视为不存在，不向调用方返回错误。
func (s *Service) CheckExists(path string) ExistenceEntry {
	s.mu.Lock()
	if entry, ok := s.existence[path]; ok && s.now().Sub(entry.RecordedAt) < s.existenceTTL {
		s.counters.existenceHits++
		s.mu.Unlock()
		return entry
	}
	s.counters.existenceMisses++
	s.mu.Unlock()

	entry := ExistenceEntry{}
	if info, err := s.stat(path); err == nil {
		entry.Exists = info.Mode().IsRegular()
		entry.Meta = &FileMeta{Size: info.Size(), ModTime: info.ModTime()}
	}

	s.mu.Lock()
	entry.RecordedAt = s.now()
	s.existence[path] = entry
	s.mu.Unlock()

	return entry
}

// Lookup 仅当缓存条目的 validator 与传入值一致时返回内容。
// validator 相等是唯一的新鲜度判定，TTL 只约束 janitor 的保留时长。
func (s *Service) Lookup(path, validator string) (ContentEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.content[path]
	if !ok || entry.Validator != validator {
		s.counters.contentMisses++
		return ContentEntry{}, false
	}
	s.counters.contentHits++
	return entry, true
}

// Store 写入或覆盖内容缓存条目；不做同步淘汰，容量由 janitor 控制。
// 并发写同一路径时后写者生效。
func (s *Service) Store(path string, data []byte, contentType, validator string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.content[path] = ContentEntry{
		Data:        data,
		ContentType: contentType,
		Validator:   validator,
		RecordedAt:  s.now(),
	}
}

// Invalidate 同时删除 path 在两张表中的记录。
func (s *Service) Invalidate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.existence, path)
	delete(s.content, path)
}

// InvalidateTree 删除 path 本身以及其下所有路径的记录，用于目录被删除或重命名。
func (s *Service) InvalidateTree(path string) {
	prefix := path
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.existence, path)
	delete(s.content, path)
	for key := range s.existence {
		if strings.HasPrefix(key, prefix) {
			delete(s.existence, key)
		}
	}
	for key := range s.content {
		if strings.HasPrefix(key, prefix) {
			delete(s.content, key)
		}
	}
}

// SweepResult 描述一次清理删除的条目数。
type SweepResult struct {
	ExpiredExistence int
	ExpiredContent   int
	EvictedContent   int
}

// Sweep 在锁内完成一次完整清理：
//  1. 删除超过 ExistenceTTL 的存在性记录；
//  2. 删除超过 ContentTTL 的内容记录；
//  3. 若内容记录仍多于 MaxContentEntries，按 RecordedAt 升序淘汰最旧的条目，
//     直到只剩 MaxContentEntries/2 条。
func (s *Service) Sweep() SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result SweepResult

	for key, entry := range s.existence {
		if now.Sub(entry.RecordedAt) > s.existenceTTL {
			delete(s.existence, key)
			result.ExpiredExistence++
		}
	}
	for key, entry := range s.content {
		if now.Sub(entry.RecordedAt) > s.contentTTL {
			delete(s.content, key)
			result.ExpiredContent++
		}
	}

	if len(s.content) > s.maxContent {
		type aged struct {
			key        string
			recordedAt time.Time
		}
		items := make([]aged, 0, len(s.content))
		for key, entry := range s.content {
			items = append(items, aged{key: key, recordedAt: entry.RecordedAt})
		}
		slices.SortFunc(items, func(a, b aged) int {
			return a.recordedAt.Compare(b.recordedAt)
		})

		evict := len(items) - s.maxContent/2
		for _, item := range items[:evict] {
			delete(s.content, item.key)
		}
		result.EvictedContent = evict
	}

	s.counters.sweeps++
	s.counters.lastSweep = result
	s.counters.lastSweepAt = now
	return result
}
