package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func NewLanguageCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "language [code]",
		Aliases: []string{"lang"},
		Short:   "Show or set the app language",
		GroupID: gBasic,
		Long: `Show or set the app language.

Without an argument the supported languages are listed and the current one is
marked. Regional tags such as hi-IN are accepted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				msg, err := apiClient.SetLanguage(args[0])
				if err != nil {
					return fmt.Errorf("failed to set language: %w", err)
				}
				cmd.Println(msg)
				return nil
			}

			current, err := apiClient.GetLanguage()
			if err != nil {
				return fmt.Errorf("failed to get language: %w", err)
			}
			langs, err := apiClient.GetLanguages()
			if err != nil {
				return fmt.Errorf("failed to get languages: %w", err)
			}
			for _, l := range langs {
				if l.Code == current {
					cmd.Printf("%s %s %s\n", color.New(color.FgGreen).Sprint("*"), bold("%-3s", l.Code), l.Name)
					continue
				}
				cmd.Printf("  %-3s %s\n", l.Code, l.Name)
			}
			return nil
		},
	}
}
