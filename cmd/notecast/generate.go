package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/notecast/notecast/internal/podcast"
)

// watchInterval is how often the command re-reads the collection while
// waiting for pending records to settle.
const watchInterval = 500 * time.Millisecond

var generateVoice string

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Submit a PDF or TXT document and wait for the podcast.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		voice := generateVoice
		if voice == "" {
			voice = a.cfg.Speech.DefaultVoice
		}

		err = a.coord.Generate(cmd.Context(), args[0], voice)
		if err != nil {
			return err
		}

		waitForSettled(cmd, a.collection)
		printLibrary(a.collection.List())

		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateVoice, "voice", "", "voice to narrate with")
}

// waitForSettled blocks until no record in the collection is pending, or the
// command context ends. Progress is observed purely through the collection.
func waitForSettled(cmd *cobra.Command, collection *podcast.Collection) {
	for {
		if !anyPending(collection.List()) {
			return
		}

		select {
		case <-cmd.Context().Done():
			return
		case <-time.After(watchInterval):
		}
	}
}

func anyPending(records []podcast.Record) bool {
	for _, record := range records {
		if record.Status == podcast.StatusPending {
			return true
		}
	}

	return false
}

func printLibrary(records []podcast.Record) {
	for _, record := range records {
		audio := "no audio"
		if record.HasAudio() {
			audio = "audio ready"
		}

		fmt.Printf("[%s] %s (%s, %s)\n", record.Status, record.Title, record.Date, audio)

		if record.Summary != "" {
			fmt.Printf("    %s\n", record.Summary)
		}
	}
}
