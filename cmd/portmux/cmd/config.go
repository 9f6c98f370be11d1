package cmd

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config holds the settings of a simulation run.
type Config struct {
	Agents      int
	Packets     int
	PacketSize  int
	Latency     float64
	Record      bool
	RecordPath  string
	Monitor     bool
	MonitorPort int
	OpenBrowser bool
	SendTrace   bool
	LogEvents   bool
}

// DefaultConfig returns the settings used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		Agents:     2,
		Packets:    10,
		PacketSize: 1500,
		Latency:    1e-6,
	}
}

type setting struct {
	flag    string
	env     string
	intVal  *int
	f64Val  *float64
	boolVal *bool
	strVal  *string
}

func (c *Config) settings() []setting {
	return []setting{
		{flag: "agents", env: "PORTMUX_AGENTS", intVal: &c.Agents},
		{flag: "packets", env: "PORTMUX_PACKETS", intVal: &c.Packets},
		{flag: "packet-size", env: "PORTMUX_PACKET_SIZE", intVal: &c.PacketSize},
		{flag: "latency", env: "PORTMUX_LATENCY", f64Val: &c.Latency},
		{flag: "record", env: "PORTMUX_RECORD", boolVal: &c.Record},
		{flag: "record-path", env: "PORTMUX_RECORD_PATH", strVal: &c.RecordPath},
		{flag: "monitor", env: "PORTMUX_MONITOR", boolVal: &c.Monitor},
		{flag: "monitor-port", env: "PORTMUX_MONITOR_PORT", intVal: &c.MonitorPort},
		{flag: "open-browser", env: "PORTMUX_OPEN_BROWSER", boolVal: &c.OpenBrowser},
		{flag: "send-trace", env: "PORTMUX_SEND_TRACE", boolVal: &c.SendTrace},
		{flag: "log-events", env: "PORTMUX_LOG_EVENTS", boolVal: &c.LogEvents},
	}
}

func registerConfigFlags(flags *pflag.FlagSet) {
	d := DefaultConfig()

	flags.Int("agents", d.Agents, "Number of agent pairs")
	flags.Int("packets", d.Packets, "Number of packets each agent sends")
	flags.Int("packet-size", d.PacketSize, "Packet length in bytes")
	flags.Float64("latency", d.Latency, "Network latency in seconds")
	flags.Bool("record", d.Record, "Record traffic into a SQLite database")
	flags.String("record-path", d.RecordPath,
		"Database path without the .sqlite3 suffix")
	flags.Bool("monitor", d.Monitor, "Start the monitoring server")
	flags.Int("monitor-port", d.MonitorPort,
		"Port of the monitoring server, 0 for a random port")
	flags.Bool("open-browser", d.OpenBrowser,
		"Open the monitoring server in a browser")
	flags.Bool("send-trace", d.SendTrace, "Log every packet sent by a mux")
	flags.Bool("log-events", d.LogEvents, "Log every simulation event")
}

// LoadConfig builds the configuration from the defaults, the env file,
// the environment and the flags that were set, in increasing priority.
// Variables already in the environment win over the env file. A missing env
// file is not an error.
func LoadConfig(envFile string, flags *pflag.FlagSet) (Config, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "load %s", envFile)
		}
	}

	c := DefaultConfig()

	for _, s := range c.settings() {
		if v, found := os.LookupEnv(s.env); found {
			if err := s.parse(v); err != nil {
				return Config{}, errors.Wrapf(err, "environment %s", s.env)
			}
		}

		if flags == nil {
			continue
		}

		f := flags.Lookup(s.flag)
		if f != nil && f.Changed {
			if err := s.parse(f.Value.String()); err != nil {
				return Config{}, errors.Wrapf(err, "flag --%s", s.flag)
			}
		}
	}

	return c, c.validate()
}

func (s setting) parse(v string) error {
	var err error

	switch {
	case s.intVal != nil:
		*s.intVal, err = strconv.Atoi(v)
	case s.f64Val != nil:
		*s.f64Val, err = strconv.ParseFloat(v, 64)
	case s.boolVal != nil:
		*s.boolVal, err = strconv.ParseBool(v)
	case s.strVal != nil:
		*s.strVal = v
	}

	return err
}

func (c Config) validate() error {
	switch {
	case c.Agents <= 0:
		return errors.Errorf("agents must be positive, got %d", c.Agents)
	case c.Packets < 0:
		return errors.Errorf("packets must not be negative, got %d", c.Packets)
	case c.PacketSize <= 0:
		return errors.Errorf("packet size must be positive, got %d",
			c.PacketSize)
	case c.Latency < 0:
		return errors.Errorf("latency must not be negative, got %g", c.Latency)
	}

	return nil
}
