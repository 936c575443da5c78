// Package config turns viper settings into a validated Config and persists
// the theme preference.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sw33tLie/opcheck/pkg/operator"
)

// Setting keys.
const (
	KeyAPIURL     = "api.url"
	KeyAPITimeout = "api.timeout"
	KeyChunkSize  = "lookup.chunksize"
	KeyBackend    = "lookup.backend"
	KeyTheme      = "theme"
	KeyDBPath     = "db.path"
)

const (
	BackendRemote  = "remote"
	BackendOffline = "offline"

	ThemeDark  = "dark"
	ThemeLight = "light"

	DefaultDBPath = "opcheck.sqlite"
)

type Config struct {
	APIURL     string        `validate:"required,url"`
	APITimeout time.Duration `validate:"gt=0"`
	ChunkSize  int           `validate:"min=1,max=2000"`
	Backend    string        `validate:"oneof=remote offline"`
	Theme      string        `validate:"oneof=dark light"`
	DBPath     string        `validate:"required"`
}

// SetDefaults registers default values for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, operator.DefaultURL)
	v.SetDefault(KeyAPITimeout, operator.DefaultTimeout)
	v.SetDefault(KeyChunkSize, operator.MaxNumbersPerRequest)
	v.SetDefault(KeyBackend, BackendRemote)
	v.SetDefault(KeyTheme, ThemeDark)
	v.SetDefault(KeyDBPath, DefaultDBPath)
}

var validate = validator.New()

// Load reads and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		APIURL:     v.GetString(KeyAPIURL),
		APITimeout: v.GetDuration(KeyAPITimeout),
		ChunkSize:  v.GetInt(KeyChunkSize),
		Backend:    strings.ToLower(v.GetString(KeyBackend)),
		Theme:      strings.ToLower(v.GetString(KeyTheme)),
		DBPath:     v.GetString(KeyDBPath),
	}

	if err := validate.Struct(cfg); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			msgs := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return cfg, err
	}
	return cfg, nil
}

// NewFetcher builds the operator backend selected by cfg.
func (c Config) NewFetcher(proxy string) (operator.Fetcher, error) {
	if c.Backend == BackendOffline {
		return operator.Offline{}, nil
	}
	return operator.NewClient(operator.ClientOptions{
		URL:     c.APIURL,
		Timeout: c.APITimeout,
		Proxy:   proxy,
	})
}
