package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// v is the CLI-level settings singleton. Hook handlers never touch it;
// they go through Load, which cannot fail. Commands use it to merge
// config-file and environment values into flags the user did not set.
var v *viper.Viper

// Initialize binds the settings singleton to the workspace config file
// and FLOWGATE_* environment variables (github.owner reads from
// FLOWGATE_GITHUB_OWNER, and so on). A missing config file is fine;
// a malformed one is reported so the caller can warn.
func Initialize(flowgateDir string) error {
	nv := viper.New()
	nv.SetConfigFile(filepath.Join(flowgateDir, ConfigFileName))
	nv.SetConfigType("yaml")
	nv.SetEnvPrefix("FLOWGATE")
	nv.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	nv.AutomaticEnv()

	err := nv.ReadInConfig()
	v = nv
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GetString returns the string value for key, or "" before Initialize.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool returns the bool value for key.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt returns the int value for key.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}
