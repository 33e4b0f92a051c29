package evalcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

func executeInspect(ctx context.Context, w io.Writer, in io.Reader, flags datasetFlags, interactive, showBeats bool) error {
	ds, err := flags.open()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Loaded %d tracks from %s\n", ds.Len(), flags.DataHome)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	reader := bufio.NewReader(in)

	for i, track := range ds.Tracks() {
		// Check for context cancellation (e.g., Ctrl+C) at the start of each iteration
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\nInspection interrupted.")
			return nil
		default:
		}

		fmt.Fprintf(w, "TRACK %d/%d\n", i+1, ds.Len())
		fmt.Fprintln(w, strings.Repeat("-", 80))
		fmt.Fprintf(w, "ID:             %s\n", track.ID)
		fmt.Fprintf(w, "Genre:          %s\n", track.Genre)
		fmt.Fprintf(w, "Tempo:          %.2f BPM\n", track.Tempo)
		fmt.Fprintf(w, "Audio:          %s\n", track.AudioPath)
		if track.BeatsPath != "" {
			fmt.Fprintf(w, "Beats file:     %s\n", track.BeatsPath)
		}
		fmt.Fprintf(w, "Beat count:     %d\n", len(track.Beats))
		if n := len(track.Beats); n > 1 && track.Beats[n-1] > track.Beats[0] {
			span := track.Beats[n-1] - track.Beats[0]
			fmt.Fprintf(w, "Beat span:      %.2f - %.2f s (%.1f BPM implied)\n",
				track.Beats[0], track.Beats[n-1], 60*float64(n-1)/span)
		}

		if showBeats && len(track.Beats) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "REFERENCE BEATS:")
			fmt.Fprintln(w, strings.Repeat("-", 80))
			fmt.Fprintln(w, formatBeats(track.Beats, 32))
			fmt.Fprintln(w, strings.Repeat("-", 80))
		}

		fmt.Fprintln(w)

		if interactive {
			fmt.Fprint(w, "Press Enter to continue to next track (or Ctrl+C to quit)...")

			// Channel to signal user input
			inputCh := make(chan struct{})
			go func() {
				_, _ = reader.ReadString('\n')
				close(inputCh)
			}()

			// Wait for either user input (Enter) or context cancellation (Ctrl+C)
			select {
			case <-ctx.Done():
				fmt.Fprintln(w, "\nInspection interrupted.")
				return nil
			case <-inputCh:
				fmt.Fprintln(w)
			}
		}
	}

	return nil
}
