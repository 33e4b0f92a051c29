package storage

import (
	"sync"

	"github.com/lehigh-university-libraries/beatbench/internal/beat"
)

// EstimateStore collects beat estimates from concurrent workers.
type EstimateStore struct {
	estimates map[string]*beat.Result
	mu        sync.RWMutex
}

func New() *EstimateStore {
	return &EstimateStore{
		estimates: make(map[string]*beat.Result),
	}
}

func (s *EstimateStore) Get(trackID string) (*beat.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, exists := s.estimates[trackID]
	return result, exists
}

func (s *EstimateStore) Set(trackID string, result *beat.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimates[trackID] = result
}

func (s *EstimateStore) GetAll() map[string]*beat.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*beat.Result, len(s.estimates))
	for k, v := range s.estimates {
		result[k] = v
	}
	return result
}

// Beats returns the estimated beat times keyed by track id.
func (s *EstimateStore) Beats() map[string][]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	beats := make(map[string][]float64, len(s.estimates))
	for k, v := range s.estimates {
		beats[k] = v.Beats
	}
	return beats
}

func (s *EstimateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.estimates)
}

func (s *EstimateStore) Delete(trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.estimates, trackID)
}
