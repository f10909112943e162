package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices available for narration.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		voices, err := a.engine.Voices(cmd.Context())
		if err != nil {
			return err
		}

		if len(voices) == 0 {
			fmt.Println("No voices reported; the catalog may still be loading.")

			return nil
		}

		for _, voice := range voices {
			fmt.Printf("%-30s %-20s %-8s %s\n",
				voice.ID, voice.Name, voice.LanguageCode, voice.Gender)
		}

		return nil
	},
}
