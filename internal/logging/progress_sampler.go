package logging

import "strings"

// ProgressSampler suppresses repetitive download-progress logs while preserving
// signal when the query changes or the percentage crosses bucket boundaries.
type ProgressSampler struct {
	bucketSize float64
	lastQuery  string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 5%) or when the query changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. Percent can be
// negative to indicate "unknown"; query is trimmed before comparison.
func (s *ProgressSampler) ShouldLog(percent float64, query string) bool {
	if s == nil {
		return true
	}
	query = strings.TrimSpace(query)
	emit := false
	if query != "" && query != s.lastQuery {
		s.lastQuery = query
		emit = true
		s.lastBucket = -1
	}
	if percent >= 0 {
		bucket := int(percent / s.bucketSize)
		if percent >= 100 {
			bucket = int(100 / s.bucketSize)
		}
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state (e.g. when a new batch starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastQuery = ""
	s.lastBucket = -1
}
