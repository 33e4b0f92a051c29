package metrics

// Scores maps track ids to scores and remembers insertion order. Every query
// over Scores walks it in that order.
type Scores struct {
	ids    []string
	values map[string]float64
}

// NewScores creates an empty score mapping.
func NewScores() *Scores {
	return &Scores{values: make(map[string]float64)}
}

// Set stores the score for id. Overwriting keeps the original position.
func (s *Scores) Set(id string, score float64) {
	if _, ok := s.values[id]; !ok {
		s.ids = append(s.ids, id)
	}
	s.values[id] = score
}

// Get returns the score for id.
func (s *Scores) Get(id string) (float64, bool) {
	v, ok := s.values[id]
	return v, ok
}

// IDs returns the ids in insertion order.
func (s *Scores) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of scored tracks.
func (s *Scores) Len() int {
	return len(s.ids)
}

// Values returns the scores in insertion order.
func (s *Scores) Values() []float64 {
	out := make([]float64, len(s.ids))
	for i, id := range s.ids {
		out[i] = s.values[id]
	}
	return out
}
