package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/opcheck/pkg/config"
)

// themeCmd implements: opcheck theme [dark|light]
var themeCmd = &cobra.Command{
	Use:       "theme [dark|light]",
	Short:     "Switch between the dark and light theme",
	Long:      "Sets the theme used by the terminal and web views. Without an argument the current theme is toggled.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{config.ThemeDark, config.ThemeLight},
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		theme := config.ToggleTheme(config.Theme(v))
		if len(args) == 1 {
			theme = args[0]
		}
		if err := config.SaveTheme(v, theme); err != nil {
			return err
		}
		fmt.Printf("Theme set to %s\n", config.Theme(v))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
}
