package am

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/restock/errors"
)

const (
	envPrefix      = "RESTOCK"
	configFileName = "am.toml"
	systemConfig   = "/etc/restock/am.toml"
)

var (
	loadMu        sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper
	// keySources records which file supplied each key during the last merge
	keySources map[string]string
	mergedFrom []string
)

// Load reads the restock configuration using Viper.
// Precedence (lowest to highest): defaults < system < user < project < env vars.
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	cfg, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}
	globalConfig = cfg
	return globalConfig, nil
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads defaults plus one specific file, with env overrides.
func LoadFromFile(configPath string) (*Config, error) {
	v := newViper()

	file := viper.New()
	file.SetConfigFile(configPath)
	file.SetConfigType("toml")
	if err := file.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	if err := v.MergeConfigMap(file.AllSettings()); err != nil {
		return nil, errors.Wrapf(err, "merge %s", configPath)
	}

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", configPath)
	}
	return cfg, nil
}

// Reset clears the cached configuration (used by the watcher and tests)
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	globalConfig = nil
	viperInstance = nil
	keySources = nil
	mergedFrom = nil
}

// MergedFiles lists the config files that contributed to the last Load, lowest precedence first.
func MergedFiles() []string {
	loadMu.Lock()
	defer loadMu.Unlock()
	return append([]string(nil), mergedFrom...)
}

// KeySource reports which file set key, "env" for environment overrides,
// or "default".
func KeySource(key string) string {
	loadMu.Lock()
	defer loadMu.Unlock()
	if env := envName(key); os.Getenv(env) != "" {
		return "env:" + env
	}
	if src, ok := keySources[key]; ok {
		return src
	}
	return "default"
}

// ActiveConfigFile is the highest-precedence file merged by Load, or "".
func ActiveConfigFile() string {
	files := MergedFiles()
	if len(files) == 0 {
		return ""
	}
	return files[len(files)-1]
}

// SettingKeys lists every known setting in dotted form, sorted. Load must
// have been called.
func SettingKeys() []string {
	loadMu.Lock()
	defer loadMu.Unlock()
	if viperInstance == nil {
		return nil
	}
	keys := viperInstance.AllKeys()
	sort.Strings(keys)
	return keys
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)
	SetDefaults(v)
	return v
}

// initViper must be called with loadMu held.
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}
	v := newViper()
	mergeConfigFiles(v)
	viperInstance = v
	return v
}

// findProjectConfig walks up from the working directory looking for am.toml
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, configFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// configSearchPaths returns candidate files, lowest precedence first.
func configSearchPaths() []string {
	paths := []string{systemConfig}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".restock", configFileName))
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, project)
	}
	return paths
}

// mergeConfigFiles deep-merges each existing file into the config layer, so
// a later file overrides individual settings rather than whole sections and
// env vars still win over every file.
func mergeConfigFiles(v *viper.Viper) {
	keySources = make(map[string]string)
	mergedFrom = nil

	for _, path := range configSearchPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		file := viper.New()
		file.SetConfigFile(path)
		file.SetConfigType("toml")
		if err := file.ReadInConfig(); err != nil {
			continue
		}
		if err := v.MergeConfigMap(file.AllSettings()); err != nil {
			continue
		}
		for _, key := range file.AllKeys() {
			keySources[key] = path
		}
		mergedFrom = append(mergedFrom, path)
	}
}
