// Package conf loads and hot-reloads the scheduler's tuning knobs (wait
// strategy thresholds, ring capacities, thread counts) from a TOML file,
// the same viper+fsnotify combination the rest of the ambient stack uses
// for application configuration.
package conf

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/go-strand/strand/pkg/duration"
	"github.com/go-strand/strand/pkg/log"
	"github.com/go-strand/strand/pkg/trace"
)

func init() {
	viper.AutomaticEnv()
}

// durationHook extends mapstructure's usual string-to-time.Duration
// decoding: time.ParseDuration is tried first, so plain Go durations
// like "10ms" decode as usual, and anything it rejects falls back to
// pkg/duration's calendar units ("3d", "1w", "1M", "1y").
func durationHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		s := data.(string)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		return duration.Parse(s)
	}
}

// LoadConfigFile reads config.toml from confDir into cfg and keeps cfg
// updated on every subsequent change to the file.
func LoadConfigFile(confDir string, cfg interface{}) (interface{}, error) {
	vCfg := viper.New()
	vCfg.AddConfigPath(confDir)
	vCfg.SetConfigName("config")
	vCfg.SetConfigType("toml")

	if err := vCfg.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	decodeHook := viper.DecodeHook(durationHook())

	vCfg.WatchConfig()
	vCfg.OnConfigChange(func(e fsnotify.Event) {
		log.GetLogger().Infof("configuration changed, reloading: %s", e.Name)
		if err := vCfg.Unmarshal(&cfg, decodeHook); err != nil {
			log.GetLogger().Errorf("failed to unmarshal configuration file: %v", err)
		}
	})
	if err := vCfg.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration file: %v", err)
	}

	cfgValue := reflect.ValueOf(cfg)
	if cfgValue.Kind() != reflect.Ptr || cfgValue.IsNil() {
		return nil, errors.New("cfg must be a pointer")
	}

	log.GetLogger().Infof("configuration file path: %s", confDir)

	return cfgValue.Interface(), nil
}

// Runtime holds the scheduler's tunable parameters: wait-strategy
// thresholds, ring buffer capacities, and how many OS threads to host
// strands on. Field names match the top-level TOML keys LoadRuntime
// expects in config.toml.
type Runtime struct {
	SpinTries   int               `mapstructure:"spin_tries"`
	YieldTries  int               `mapstructure:"yield_tries"`
	SleepFor    time.Duration     `mapstructure:"sleep_for"`
	StrandRing  int64             `mapstructure:"strand_ring"`
	UnblockRing int64             `mapstructure:"unblock_ring"`
	ThreadCount int               `mapstructure:"thread_count"`
	Trace       trace.TraceConfig `mapstructure:"trace"`
}

// DefaultRuntime returns the tuning defaults used when no config file is
// present, matching the tiered wait strategy's own hardcoded defaults.
func DefaultRuntime() *Runtime {
	return &Runtime{
		SpinTries:   1000,
		YieldTries:  1000,
		SleepFor:    10 * time.Millisecond,
		StrandRing:  128,
		UnblockRing: 1024,
		ThreadCount: 1,
		Trace:       trace.TraceConfig{ServiceName: "strandctl"},
	}
}

// LoadRuntime loads a Runtime from confDir/config.toml, falling back to
// DefaultRuntime's values for any key the file doesn't set. The returned
// Runtime keeps itself updated as the file changes.
func LoadRuntime(confDir string) (*Runtime, error) {
	rt := DefaultRuntime()
	if _, err := LoadConfigFile(confDir, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func GetString(key string) string {
	return viper.GetString(key)
}

func GetInt(key string) int {
	return viper.GetInt(key)
}

func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

func GetBool(key string) bool {
	return viper.GetBool(key)
}

func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

func GetUint(key string) uint {
	return viper.GetUint(key)
}

func GetUint64(key string) uint64 {
	return viper.GetUint64(key)
}

func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

func GetStringMap(key string) map[string]interface{} {
	return viper.GetStringMap(key)
}

func GetStringMapString(key string) map[string]string {
	return viper.GetStringMapString(key)
}

func GetStringMapStringSlice(key string) map[string][]string {
	return viper.GetStringMapStringSlice(key)
}

func GetTime(key string) time.Time {
	return viper.GetTime(key)
}

func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
