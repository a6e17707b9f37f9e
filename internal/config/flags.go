package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags to the config keys they override.
var flagKeys = map[string]string{
	"log-level":    "logLevel",
	"rule":         "ferry.rule",
	"admission":    "ferry.admission",
	"seed":         "fleet.seed",
	"initial-side": "fleet.initialSide",
	"storage":      "storage.type",
}

// NewFlagSet returns the command line flags. Flags left unset do not override
// the config file.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", ".", "directory containing "+FileName)
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("rule", "direction", "boarding rule (direction, roundtrip)")
	fs.String("admission", "ordered", "admission mode (ordered, open)")
	fs.Int64("seed", 0, "random seed, 0 picks one from the clock")
	fs.String("initial-side", "random", "starting shore of every vehicle (random, 0, 1)")
	fs.String("storage", "memory", "storage backend (memory, sqlite, postgres, none)")
	return fs
}

// BindFlags makes the flags of fs override their config keys.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}
