package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/opcheck/internal/utils"
	"github.com/sw33tLie/opcheck/pkg/batch"
	"github.com/sw33tLie/opcheck/pkg/config"
	"github.com/sw33tLie/opcheck/pkg/operator"
	"github.com/sw33tLie/opcheck/pkg/phone"
	"github.com/sw33tLie/opcheck/pkg/render"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const unexpectedErrorMessage = "An unexpected error occurred. Please try again."

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "opcheck",
	Short: "Look up the network operator of Swedish phone numbers in bulk.",
	Long: `opcheck validates and normalizes batches of Swedish phone numbers, resolves
their network operator through the operator-lookup API, and prints, filters and
exports the results. Run "opcheck serve" for the browser interface.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			utils.Log.Errorf("Unhandled panic: %v", r)
			fmt.Fprint(os.Stderr, render.Error(unexpectedErrorMessage, currentTheme()))
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		if !expectedError(err) {
			utils.Log.Errorf("Command failed: %v", err)
		}
		fmt.Fprint(os.Stderr, render.Error(err.Error(), currentTheme()))
		os.Exit(1)
	}
}

// expectedError reports whether err is one of the failures a lookup is
// expected to run into. Their message is all the user needs.
func expectedError(err error) bool {
	var validationErr *batch.ValidationError
	var apiErr *operator.APIError
	return errors.Is(err, phone.ErrEmptyInput) ||
		errors.Is(err, phone.ErrNotSeparated) ||
		errors.Is(err, operator.ErrRateLimited) ||
		errors.Is(err, operator.ErrTimeout) ||
		errors.As(err, &validationErr) ||
		errors.As(err, &apiErr)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.opcheck.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".opcheck")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("opcheck")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.opcheck.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			} else {
				viper.SetConfigFile(configPath)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

func currentTheme() render.Theme {
	return render.ThemeFor(config.Theme(viper.GetViper()))
}

// loadConfig applies command-line overrides on top of the config file and
// returns the validated result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	overrides := map[string]string{
		"backend":    config.KeyBackend,
		"chunk-size": config.KeyChunkSize,
		"dbpath":     config.KeyDBPath,
		"timeout":    config.KeyAPITimeout,
	}
	for flag, key := range overrides {
		f := cmd.Flags().Lookup(flag)
		if f != nil && f.Changed {
			viper.Set(key, f.Value.String())
		}
	}
	return config.Load(viper.GetViper())
}
