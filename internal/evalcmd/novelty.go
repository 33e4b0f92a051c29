package evalcmd

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/beatbench/internal/beat"
)

// executeNovelty writes a novelty curve and its time axis as CSV. With an
// activation file the curve is read from it at a fixed frame rate; otherwise
// the track's spectral-flux novelty and pulse curves are computed.
func executeNovelty(w io.Writer, flags datasetFlags, analysis analysisFlags, trackID, activationPath string, rate float64) error {
	if activationPath != "" {
		activation, err := readActivation(activationPath)
		if err != nil {
			return err
		}
		times := beat.FixedRateTimeAxis(len(activation), rate)
		return writeCurves(w, times, []string{"activation"}, activation)
	}

	ds, err := flags.open()
	if err != nil {
		return err
	}
	track, err := ds.Lookup(trackID)
	if err != nil {
		return err
	}

	res, err := analysis.estimator().Estimate(track.AudioPath)
	if err != nil {
		return err
	}
	slog.Info("Novelty computed", "track", trackID, "frames", len(res.Novelty), "beats", len(res.Beats))

	times := beat.SpectralFluxTimeAxis(len(res.Novelty), res.HopLength, res.SampleRate)
	return writeCurves(w, times, []string{"novelty", "pulse"}, res.Novelty, res.Pulse)
}

func writeCurves(w io.Writer, times []float64, names []string, curves ...[]float64) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(append([]string{"time"}, names...)); err != nil {
		return err
	}
	for i, t := range times {
		row := []string{strconv.FormatFloat(t, 'f', 6, 64)}
		for _, c := range curves {
			v := 0.0
			if i < len(c) {
				v = c[i]
			}
			row = append(row, strconv.FormatFloat(v, 'g', 8, 64))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// readActivation reads one activation value per line, as written by frame-wise
// beat activation models. The last field of each line is used.
func readActivation(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open activation file: %w", err)
	}
	defer file.Close()

	var values []float64
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(strings.ReplaceAll(scanner.Text(), ",", " "))
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse activation at line %d: %w", lineNum, err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading activation file: %w", err)
	}
	return values, nil
}
