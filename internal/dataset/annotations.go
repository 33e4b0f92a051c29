package dataset

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// LoadBeats reads a beat annotation file: one beat per line, the first
// whitespace separated column holding the time in seconds. Blank lines and
// lines starting with '#' are skipped.
func LoadBeats(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open beats file: %w", err)
	}
	defer file.Close()

	var beats []float64
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
		if len(fields) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse beat at %s:%d: %w", path, lineNum, err)
		}
		beats = append(beats, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading beats file: %w", err)
	}

	if !sort.Float64sAreSorted(beats) {
		sort.Float64s(beats)
	}
	return beats, nil
}

// LoadTempo reads a tempo annotation file and returns its first number in BPM.
func LoadTempo(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open tempo file: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty tempo file: %s", path)
	}
	bpm, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse tempo in %s: %w", path, err)
	}
	return bpm, nil
}

// annotationStem maps "blues.00000" to "gtzan_blues_00000".
func annotationStem(trackID string) string {
	return "gtzan_" + strings.ReplaceAll(trackID, ".", "_")
}
