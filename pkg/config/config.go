package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/limaJavier/coursetabling/pkg/milp"
	"github.com/limaJavier/coursetabling/pkg/model"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Prefix of every environment override, e.g. COURSETABLING_SOLVER_NAME
	EnvPrefix = "COURSETABLING"
	FileName  = "config.json"
)

type Config struct {
	Env    string       `mapstructure:"env" validate:"oneof=development production"`
	Log    LogConfig    `mapstructure:"log"`
	Solver SolverConfig `mapstructure:"solver"`
	Model  ModelConfig  `mapstructure:"model"`
	Output OutputConfig `mapstructure:"output"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type SolverConfig struct {
	Name    string        `mapstructure:"name" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// Executable of each external solver, keyed by solver name
	Paths map[string]string `mapstructure:"paths"`
}

type ModelConfig struct {
	MorningSlots       int  `mapstructure:"morningSlots" validate:"gte=0"`
	EveningSlots       int  `mapstructure:"eveningSlots" validate:"gte=0"`
	SplitAtDayBoundary bool `mapstructure:"splitAtDayBoundary"`
	Presolve           bool `mapstructure:"presolve"`
}

// OutputConfig lists the optional side outputs; empty paths are skipped
type OutputConfig struct {
	SessionsFile string `mapstructure:"sessionsFile"`
	MetricsFile  string `mapstructure:"metricsFile"`
}

// DefaultPath is config.json next to the running executable
func DefaultPath() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("cannot determine executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(executable), FileName), nil
}

// Load reads the JSON file at path when it exists, then applies COURSETABLING_* environment
// overrides (a .env file in the working directory is loaded first) on top of the defaults
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("cannot read %v: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("cannot read %v: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !slices.Contains(milp.SolverNames, cfg.Solver.Name) {
		return fmt.Errorf("invalid configuration: unknown solver %q (expected one of %v)", cfg.Solver.Name, milp.SolverNames)
	}
	return nil
}

// ModelOptions maps the model and solver sections onto the scheduler options
func (cfg *Config) ModelOptions() model.Options {
	return model.Options{
		MorningSlots:       cfg.Model.MorningSlots,
		EveningSlots:       cfg.Model.EveningSlots,
		SplitAtDayBoundary: cfg.Model.SplitAtDayBoundary,
		Presolve:           cfg.Model.Presolve,
		SolveTimeout:       cfg.Solver.Timeout,
	}
}

func setDefaults(v *viper.Viper) {
	defaults := model.DefaultOptions()

	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("solver.name", milp.NativeSolverName)
	v.SetDefault("solver.timeout", defaults.SolveTimeout)
	// Registered one by one so that COURSETABLING_SOLVER_PATHS_<NAME> can override them
	for _, name := range milp.SolverNames {
		if name != milp.NativeSolverName {
			v.SetDefault("solver.paths."+name, name)
		}
	}

	v.SetDefault("model.morningSlots", defaults.MorningSlots)
	v.SetDefault("model.eveningSlots", defaults.EveningSlots)
	v.SetDefault("model.splitAtDayBoundary", defaults.SplitAtDayBoundary)
	v.SetDefault("model.presolve", defaults.Presolve)

	v.SetDefault("output.sessionsFile", "")
	v.SetDefault("output.metricsFile", "")
}
