package metrics

import (
	"errors"
	"fmt"
)

const (
	// FMeasureWindow is the tolerance, in seconds, within which an estimated
	// beat counts as a hit for a reference beat.
	FMeasureWindow = 0.07

	// MaxBeatTime bounds beat times. Larger values almost always mean the
	// annotations are in samples or milliseconds instead of seconds.
	MaxBeatTime = 30000.0
)

// ErrInvalidBeats is returned for beat sequences that are not in seconds or not sorted.
var ErrInvalidBeats = errors.New("invalid beat times")

// Evaluation is the beat comparison for a single track
type Evaluation struct {
	FMeasure  float64 `json:"f_measure"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Matched   int     `json:"matched"`
	Reference int     `json:"reference"`
	Estimated int     `json:"estimated"`
}

// ValidateBeats checks that beat times are non-decreasing and below MaxBeatTime.
func ValidateBeats(beats []float64) error {
	for i, b := range beats {
		if b > MaxBeatTime {
			return fmt.Errorf("%w: beat at %.3f s exceeds %.0f s; beats should be in seconds", ErrInvalidBeats, b, MaxBeatTime)
		}
		if i > 0 && b < beats[i-1] {
			return fmt.Errorf("%w: beats must be non-decreasing (index %d)", ErrInvalidBeats, i)
		}
	}
	return nil
}

// MatchEvents returns a maximum one-to-one matching between reference and
// estimated events, as (reference index, estimated index) pairs, where each
// pair lies within window seconds. Both inputs must be sorted.
//
// With sorted inputs and a single window width every event's candidate set
// is a contiguous run, so pairing the earliest unmatched events greedily is
// already maximum.
func MatchEvents(reference, estimated []float64, window float64) [][2]int {
	var pairs [][2]int
	i, j := 0, 0
	for i < len(reference) && j < len(estimated) {
		diff := estimated[j] - reference[i]
		switch {
		case diff <= window && diff >= -window:
			pairs = append(pairs, [2]int{i, j})
			i++
			j++
		case diff < 0:
			j++
		default:
			i++
		}
	}
	return pairs
}

// CompareBeats scores estimated against reference beats with FMeasureWindow.
// An empty reference or estimate scores zero.
func CompareBeats(reference, estimated []float64) (*Evaluation, error) {
	if err := ValidateBeats(reference); err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	if err := ValidateBeats(estimated); err != nil {
		return nil, fmt.Errorf("estimated: %w", err)
	}

	eval := &Evaluation{
		Reference: len(reference),
		Estimated: len(estimated),
	}
	if len(reference) == 0 || len(estimated) == 0 {
		return eval, nil
	}

	eval.Matched = len(MatchEvents(reference, estimated, FMeasureWindow))
	eval.Precision = float64(eval.Matched) / float64(len(estimated))
	eval.Recall = float64(eval.Matched) / float64(len(reference))
	eval.FMeasure = harmonicMean(eval.Precision, eval.Recall)
	return eval, nil
}

// FMeasure is the beat F-measure of estimated against reference, in [0, 1].
func FMeasure(reference, estimated []float64) (float64, error) {
	eval, err := CompareBeats(reference, estimated)
	if err != nil {
		return 0, err
	}
	return eval.FMeasure, nil
}

func harmonicMean(precision, recall float64) float64 {
	if precision == 0 && recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
