package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// envPrefix is the prefix of every environment override:
// PATENTDOC_<SECTION>_<FIELD>, e.g. PATENTDOC_DATABASE_POSTGRES_HOST.
const envPrefix = "PATENTDOC"

// configName is the file name searched for when no path is given.
const configName = "patentdoc"

// SearchPaths are the directories searched for patentdoc.yaml, in order.
var SearchPaths = []string{".", "./configs", "/etc/patentdoc"}

// newViper returns a viper instance that knows every key of Config.  Viper
// only consults the environment for keys it has seen, so the defaults are
// registered key by key.
func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var defaults map[string]any
	if err := mapstructure.Decode(Default(), &defaults); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "registering configuration defaults")
	}
	setDefaults(v, "", defaults)
	return v, nil
}

func setDefaults(v *viper.Viper, prefix string, values map[string]any) {
	for k, val := range values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			setDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Load reads the YAML file at path, applies PATENTDOC_* environment overrides
// and validates the result.  An empty path searches SearchPaths for
// patentdoc.yaml and falls back to the environment when none exists.
func Load(path string) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		for _, p := range SearchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "reading configuration file").
				WithDetailf("path=%s", path)
		}
	}
	return decode(v)
}

// LoadFromEnv builds a Config from the defaults and PATENTDOC_* variables
// only.
func LoadFromEnv() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "decoding configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Locate returns the file Load reads for path: path itself, or the first
// patentdoc.yaml (or .yml) in SearchPaths.  It returns "" when Load would run
// on defaults and the environment alone.
func Locate(path string) string {
	if path != "" {
		return path
	}
	for _, dir := range SearchPaths {
		for _, ext := range []string{".yaml", ".yml"} {
			candidate := filepath.Join(dir, configName+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

// Watcher reloads a configuration file when it changes on disk.  Editors
// often produce several events for one save; concurrent reloads are
// collapsed into one.
type Watcher struct {
	path     string
	log      logging.Logger
	onChange func(*Config)
	group    singleflight.Group

	mu      sync.RWMutex
	current *Config
}

// Watch loads path and starts watching it.  onChange is called with every
// configuration that loads and validates; invalid edits are logged and
// ignored, leaving Current unchanged.  Only settings that are read at use
// time (such as the log level) can take effect without a restart.
func Watch(path string, log logging.Logger, onChange func(*Config)) (*Watcher, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, log: log, onChange: onChange, current: cfg}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "reading configuration file").WithDetailf("path=%s", path)
	}
	v.OnConfigChange(w.handle)
	v.WatchConfig()
	return w, nil
}

// Current returns the last configuration that loaded successfully.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) handle(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	_, _, _ = w.group.Do(w.path, func() (any, error) {
		return nil, w.reload()
	})
}

func (w *Watcher) reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("ignoring invalid configuration change", logging.String("path", w.path), logging.Err(err))
		return err
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	w.log.Info("configuration reloaded", logging.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
	return nil
}

//Personal.AI order the ending
