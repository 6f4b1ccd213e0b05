package cache

import "time"

type counters struct {
	existenceHits   uint64
	existenceMisses uint64
	contentHits     uint64
	contentMisses   uint64
	sweeps          uint64
	lastSweep       SweepResult
	lastSweepAt     time.Time
}

// Stats 是缓存状态的只读快照，供诊断接口输出。
type Stats struct {
	ExistenceEntries int
	ContentEntries   int
	ContentBytes     int64

	ExistenceHits   uint64
	ExistenceMisses uint64
	ContentHits     uint64
	ContentMisses   uint64

	ExistenceTTL      time.Duration
	ContentTTL        time.Duration
	MaxContentEntries int

	Sweeps      uint64
	LastSweep   SweepResult
	LastSweepAt time.Time
}

// Stats 在锁内汇总当前条目数、内容总字节数与命中计数。
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var contentBytes int64
	for _, entry := range s.content {
		contentBytes += int64(len(entry.Data))
	}

	return Stats{
		ExistenceEntries:  len(s.existence),
		ContentEntries:    len(s.content),
		ContentBytes:      contentBytes,
		ExistenceHits:     s.counters.existenceHits,
		ExistenceMisses:   s.counters.existenceMisses,
		ContentHits:       s.counters.contentHits,
		ContentMisses:     s.counters.contentMisses,
		ExistenceTTL:      s.existenceTTL,
		ContentTTL:        s.contentTTL,
		MaxContentEntries: s.maxContent,
		Sweeps:            s.counters.sweeps,
		LastSweep:         s.counters.lastSweep,
		LastSweepAt:       s.counters.lastSweepAt,
	}
}
