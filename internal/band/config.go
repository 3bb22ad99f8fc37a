package band

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// ConfigKey is the configuration key holding extra band tables.
const ConfigKey = "band-tables"

type tableConfig struct {
	MaxQuestions int         `mapstructure:"max-questions"`
	Thresholds   []Threshold `mapstructure:"thresholds"`
}

// LoadConfig registers every table found under ConfigKey, replacing built-in
// tables with the same component. A missing key is not an error.
//
//	band-tables:
//	  listening-short:
//	    max-questions: 20
//	    thresholds:
//	      - {min: 19, band: 9.0}
//	      - {min: 17, band: 8.0}
func LoadConfig(v *viper.Viper, r *Registry) error {
	if !v.IsSet(ConfigKey) {
		return nil
	}
	var raw map[string]tableConfig
	if err := v.UnmarshalKey(ConfigKey, &raw); err != nil {
		return fmt.Errorf("decode %s: %w", ConfigKey, err)
	}
	for component, tc := range raw {
		err := r.Register(Table{
			Component:    component,
			MaxQuestions: tc.MaxQuestions,
			Thresholds:   tc.Thresholds,
		})
		if err != nil {
			return fmt.Errorf("register band table %q: %w", component, err)
		}
		slog.Info("registered band table", "component", component, "thresholds", len(tc.Thresholds))
	}
	return nil
}
