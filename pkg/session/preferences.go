package session

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const riskModeKey = "risk_mode"

// Preferences is the persisted preference record. A missing file or field
// means risk mode is disabled.
type Preferences struct {
	RiskMode bool
}

// DefaultPreferencesPath returns the per-user preference file location.
func DefaultPreferencesPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve user config dir")
	}
	return filepath.Join(dir, "coco", "preferences.json"), nil
}

// LoadPreferences reads the preference record. Absence of the file is not an
// error.
func LoadPreferences(path string) (*Preferences, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault(riskModeKey, false)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			log.Debug().Str("path", path).Msg("session: no preference record, using defaults")
			return &Preferences{}, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return &Preferences{}, nil
		}
		return nil, errors.Wrap(err, "read preferences")
	}

	return &Preferences{RiskMode: v.GetBool(riskModeKey)}, nil
}

// Save rewrites the preference record.
func (p *Preferences) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create preferences dir")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.Set(riskModeKey, p.RiskMode)

	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrap(err, "write preferences")
	}
	log.Debug().Str("path", path).Bool("risk_mode", p.RiskMode).Msg("session: saved preferences")
	return nil
}
