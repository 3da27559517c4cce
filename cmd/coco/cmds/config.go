package cmds

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/corbat-tech/coco/pkg/session"
)

func NewConfigCmd() *cobra.Command {
	config := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change persisted preferences",
	}

	config.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a preference (keys: risk-mode)",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			path, err := session.DefaultPreferencesPath()
			if err != nil {
				return err
			}
			return setPreference(path, args[0], args[1])
		},
	})
	config.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the persisted preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := session.DefaultPreferencesPath()
			if err != nil {
				return err
			}
			prefs, err := session.LoadPreferences(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "risk-mode: %t\n", prefs.RiskMode)
			return nil
		},
	})

	return config
}

// setPreference rewrites the preference record with the given key changed.
func setPreference(path, key, value string) error {
	prefs, err := session.LoadPreferences(path)
	if err != nil {
		return err
	}

	switch key {
	case "risk-mode":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Errorf("risk-mode takes true or false, got %q", value)
		}
		prefs.RiskMode = enabled
	default:
		return errors.Errorf("unknown preference %q", key)
	}

	return prefs.Save(path)
}
