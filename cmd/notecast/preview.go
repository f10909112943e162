package main

import (
	"github.com/spf13/cobra"

	"github.com/notecast/notecast/internal/speech"
	"github.com/notecast/notecast/internal/speech/text"
)

const defaultPreviewText = "This is a short voice preview."

var (
	previewText  string
	previewVoice string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Play a short sample of a voice.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		voice := previewVoice
		if voice == "" {
			voice = a.cfg.Speech.DefaultVoice
		}

		sample := text.TruncateForPreview(previewText, a.cfg.Speech.PreviewCharLimit)

		done, err := a.engine.Speak(cmd.Context(), sample, voice, speech.SpeakOptions{Rate: 1})
		if err != nil {
			return err
		}

		return <-done
	},
}

func init() {
	previewCmd.Flags().StringVar(&previewText, "text", defaultPreviewText, "text to speak")
	previewCmd.Flags().StringVar(&previewVoice, "voice", "", "voice to sample")
}
