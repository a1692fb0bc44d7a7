package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/flexmmu/mem/vm"
	"github.com/sarchlab/flexmmu/mem/vm/residency"
)

// envPrefix starts the name of every environment variable that overrides the
// configuration.
const envPrefix = "FLEXMMU_"

// Config is the configuration of a flexmmu run.
type Config struct {
	Frames        uint64        `toml:"frames"`
	FrameBase     uint64        `toml:"frame_base"`
	Log2PageSize  uint          `toml:"log2_page_size"`
	PendingLimit  int           `toml:"pending_limit"`
	PollInterval  time.Duration `toml:"poll_interval"`
	HostMemory    uint64        `toml:"host_memory"`
	AccelCapacity int           `toml:"accel_capacity"`
	Record        string        `toml:"record"`
	MonitorPort   int           `toml:"monitor_port"`
	LogLevel      string        `toml:"log_level"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Frames:        64,
		Log2PageSize:  vm.Log2PageSize,
		PendingLimit:  residency.DefaultPendingLimit,
		PollInterval:  time.Millisecond,
		HostMemory:    1 << 30,
		AccelCapacity: 64,
		LogLevel:      "info",
	}
}

// LoadConfig reads the configuration file, if any, and applies the
// environment. Variables in a .env file of the working directory count as
// environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("reading .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

type lookupFunc func(name string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	uints := map[string]*uint64{
		"FRAMES":      &c.Frames,
		"FRAME_BASE":  &c.FrameBase,
		"HOST_MEMORY": &c.HostMemory,
	}
	for name, dst := range uints {
		if s, ok := lookup(envPrefix + name); ok {
			v, err := strconv.ParseUint(s, 0, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}

			*dst = v
		}
	}

	ints := map[string]*int{
		"PENDING_LIMIT":  &c.PendingLimit,
		"ACCEL_CAPACITY": &c.AccelCapacity,
		"MONITOR_PORT":   &c.MonitorPort,
	}
	for name, dst := range ints {
		if s, ok := lookup(envPrefix + name); ok {
			v, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}

			*dst = v
		}
	}

	if s, ok := lookup(envPrefix + "POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%sPOLL_INTERVAL: %w", envPrefix, err)
		}

		c.PollInterval = d
	}

	if s, ok := lookup(envPrefix + "RECORD"); ok {
		c.Record = s
	}

	if s, ok := lookup(envPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = s
	}

	return nil
}

// Validate checks that the configuration can build an MMU.
func (c Config) Validate() error {
	if c.Frames == 0 {
		return errors.New("frames must be positive")
	}

	if c.Log2PageSize < vm.Log2PageSize {
		return fmt.Errorf("log2_page_size must be at least %d", vm.Log2PageSize)
	}

	if c.FrameBase&(1<<c.Log2PageSize-1) != 0 {
		return fmt.Errorf("frame_base 0x%x is not page aligned", c.FrameBase)
	}

	if c.AccelCapacity <= 0 {
		return errors.New("accel_capacity must be positive")
	}

	if c.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// Logger creates the logger of the configured level.
func (c Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(c.LogLevel)
	if err == nil {
		logger.SetLevel(level)
	}

	return logger
}

// StateBuilder returns the builder of the residency state.
func (c Config) StateBuilder() residency.Builder {
	return residency.MakeBuilder().
		WithFrames(c.Frames).
		WithFrameBase(c.FrameBase).
		WithLog2PageSize(c.Log2PageSize).
		WithPendingLimit(c.PendingLimit)
}
