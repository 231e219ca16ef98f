package scheduler

import (
	"sort"
	"time"
)

// Stats summarizes the most recent Run.
type Stats struct {
	Total           int
	Succeeded       int
	Failed          int
	SuccessRate     float64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	FailedPaths     []string
}

// Stats aggregates counts and durations over the results of the last run.
func (s *Scheduler) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.results)}
	for _, r := range s.results {
		if r.Success {
			st.Succeeded++
		} else {
			st.Failed++
		}
		st.TotalDuration += r.Duration
	}
	if st.Total > 0 {
		st.SuccessRate = float64(st.Succeeded) / float64(st.Total)
		st.AverageDuration = st.TotalDuration / time.Duration(st.Total)
	}
	st.FailedPaths = append([]string(nil), s.failed...)
	sort.Strings(st.FailedPaths)
	return st
}
