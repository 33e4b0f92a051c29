package evalcmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/beatbench/internal/eval/results"
	"github.com/lehigh-university-libraries/beatbench/internal/sonify"
)

// executeSonify writes click previews for one track. Estimated beats come
// from estimatesPath when given and are computed on the fly otherwise.
func executeSonify(flags datasetFlags, analysis analysisFlags, trackID, estimatesPath, outputDir string) (*sonify.Previews, error) {
	ds, err := flags.open()
	if err != nil {
		return nil, err
	}
	track, err := ds.Lookup(trackID)
	if err != nil {
		return nil, err
	}

	var estimated map[string][]float64
	if estimatesPath != "" {
		estimated, err = results.LoadEstimates(estimatesPath)
		if err != nil {
			return nil, err
		}
	} else {
		slog.Info("Estimating beats", "track", trackID)
		res, err := analysis.estimator().Estimate(track.AudioPath)
		if err != nil {
			return nil, err
		}
		estimated = map[string][]float64{trackID: res.Beats}
	}

	sonifier := &sonify.Sonifier{
		Decoder: analysis.decoder(),
		OutDir:  outputDir,
	}
	previews, err := sonifier.SonifyTrack(trackID, estimated, ds)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Estimated beats preview: %s\n", previews.Estimated)
	fmt.Printf("Reference beats preview: %s\n", previews.Reference)
	return previews, nil
}
