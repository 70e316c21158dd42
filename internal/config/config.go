package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/goldyfruit/kube-inventory/internal/inventory"
)

const (
	section   = "kubernetes"
	envPrefix = "KUBE_INVENTORY"
	appName   = "kube-inventory"
	baseName  = "kube"
)

const (
	SourceAPI     = "api"
	SourceKubectl = "kubectl"
)

// Settings are the resolved inventory settings.
type Settings struct {
	CachePath      string
	CacheMaxAge    time.Duration
	UsePublicIP    bool
	UsePrivateIP   bool
	FallbackToName bool
	Source         string
	Kubectl        string
	Selector       string

	// File is the settings file that was read, empty when none was found.
	File string
}

// Policy returns the identifier policy derived from the settings.
func (s Settings) Policy() inventory.Policy {
	return inventory.Policy{
		UsePublicIP:    s.UsePublicIP,
		UsePrivateIP:   s.UsePrivateIP,
		FallbackToName: s.FallbackToName,
	}
}

// Load reads settings from path, or from the first kube.{ini,yaml,json}
// found in the search directories when path is empty. A missing file in
// the search directories is not an error.
func Load(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(strings.ToUpper(section)+".", "", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid settings path %q: %w", path, err)
		}
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read settings %s: %w", expanded, err)
		}
	} else {
		v.SetConfigName(baseName)
		for _, dir := range searchDirs() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("failed to read settings: %w", err)
			}
		}
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(key("cache_path"), defaultCachePath())
	v.SetDefault(key("cache_max_age"), 300)
	v.SetDefault(key("use_public_ip"), false)
	v.SetDefault(key("use_private_ip"), false)
	v.SetDefault(key("fallback_to_name"), true)
	v.SetDefault(key("source"), SourceAPI)
	v.SetDefault(key("kubectl"), "kubectl")
	v.SetDefault(key("selector"), "")
}

func decode(v *viper.Viper) (Settings, error) {
	maxAge := v.GetInt(key("cache_max_age"))
	if maxAge < 0 {
		return Settings{}, fmt.Errorf("cache_max_age must not be negative: %d", maxAge)
	}
	cachePath, err := homedir.Expand(strings.TrimSpace(v.GetString(key("cache_path"))))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid cache_path: %w", err)
	}
	if cachePath == "" {
		return Settings{}, fmt.Errorf("cache_path must not be empty")
	}

	s := Settings{
		CachePath:      cachePath,
		CacheMaxAge:    time.Duration(maxAge) * time.Second,
		UsePublicIP:    v.GetBool(key("use_public_ip")),
		UsePrivateIP:   v.GetBool(key("use_private_ip")),
		FallbackToName: v.GetBool(key("fallback_to_name")),
		Source:         v.GetString(key("source")),
		Kubectl:        v.GetString(key("kubectl")),
		Selector:       v.GetString(key("selector")),
		File:           v.ConfigFileUsed(),
	}
	if s.Source, err = ParseSource(s.Source); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ParseSource normalizes a node source name, ignoring case and
// surrounding space, and rejects unknown sources.
func ParseSource(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case SourceAPI, SourceKubectl:
		return name, nil
	default:
		return "", fmt.Errorf("invalid source %q (expected %s or %s)", raw, SourceAPI, SourceKubectl)
	}
}

func key(name string) string {
	return section + "." + name
}

// searchDirs lists where kube.ini is looked up: next to the executable,
// then the XDG config directory, then ~/.kube-inventory.
func searchDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, appName))
	}
	if home, err := homedir.Dir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "."+appName))
	}
	return dirs
}

func defaultCachePath() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, appName)
}
