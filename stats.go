package formulagraph

import "time"

type statTimer uint8

const (
	statBuild statTimer = iota
	statEvaluation
	statTransform
	statAsync
	statTimerCount
)

type statCounter uint8

const (
	statCriterionCacheHit statCounter = iota
	statCriterionSmallerRange
	statCriterionFullCompute
	statColumnIndexSync
	statEvaluatedFormulas
	statCounterCount
)

// Statistics accumulates timings and counters of one engine.
type Statistics struct {
	timers   [statTimerCount]time.Duration
	counters [statCounterCount]int
}

func (s *Statistics) add(t statTimer, d time.Duration) {
	if s != nil {
		s.timers[t] += d
	}
}

func (s *Statistics) inc(c statCounter) {
	if s != nil {
		s.counters[c]++
	}
}

// measure runs fn and adds its duration to t.
func (s *Statistics) measure(t statTimer, fn func()) {
	start := time.Now()
	fn()
	s.add(t, time.Since(start))
}

func (s *Statistics) reset() {
	*s = Statistics{}
}

// Stats is a snapshot of the engine statistics.
type Stats struct {
	BuildTime          time.Duration
	EvaluationTime     time.Duration
	TransformationTime time.Duration
	AsyncTime          time.Duration

	// CriterionCacheHits counts criterion aggregates served from a range
	// cache.
	CriterionCacheHits int
	// CriterionSmallerRangeReuses counts aggregates computed by extending
	// the cache of the range one row shorter.
	CriterionSmallerRangeReuses int
	// CriterionFullComputes counts aggregates computed over the whole range.
	CriterionFullComputes int
	ColumnIndexSyncs      int
	EvaluatedFormulas     int
}

func (s *Statistics) snapshot() Stats {
	return Stats{
		BuildTime:                   s.timers[statBuild],
		EvaluationTime:              s.timers[statEvaluation],
		TransformationTime:          s.timers[statTransform],
		AsyncTime:                   s.timers[statAsync],
		CriterionCacheHits:          s.counters[statCriterionCacheHit],
		CriterionSmallerRangeReuses: s.counters[statCriterionSmallerRange],
		CriterionFullComputes:       s.counters[statCriterionFullCompute],
		ColumnIndexSyncs:            s.counters[statColumnIndexSync],
		EvaluatedFormulas:           s.counters[statEvaluatedFormulas],
	}
}
