// Package config loads the engine's environment-variable settings (spec
// §6's DB_* variables, plus this implementation's own scheduler/metrics
// knobs) and an optional YAML file bootstrapping extra ACL users at
// startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/UnSetSoft/ToriDB/internal/session"
)

// Config holds every setting the process needs at startup.
type Config struct {
	Password string // DB_PASSWORD, default password for the "default" user
	Host     string // DB_HOST
	Port     int    // DB_PORT
	DataDir  string // DB_DATA_DIR
	Workers  int    // DB_WORKERS, worker pool size
	DBName   string // DB_NAME, default database

	FsyncEveryN        int
	SweepInterval      time.Duration
	CheckpointInterval time.Duration

	ACLFile     string // DB_ACL_FILE, optional YAML bootstrap
	MetricsAddr string // DB_METRICS_ADDR, empty disables the /metrics listener
}

// Default returns the settings a bare process starts with before
// environment overrides: port 8569 and database "data", plus this
// implementation's scheduler/metrics defaults.
func Default() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8569,
		DataDir:            "./data",
		Workers:            50,
		DBName:             "data",
		FsyncEveryN:        1,
		SweepInterval:      5 * time.Second,
		CheckpointInterval: 5 * time.Minute,
	}
}

// FromEnv starts from Default and overrides each field whose environment
// variable is set, using plain os.Getenv/strconv rather than a flag or
// third-party config library.
func FromEnv() (Config, error) {
	c := Default()

	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid DB_PORT %q: %w", v, err)
		}
		c.Port = n
	}
	if v := os.Getenv("DB_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("DB_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid DB_WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.DBName = v
	}
	if v := os.Getenv("DB_ACL_FILE"); v != "" {
		c.ACLFile = v
	}
	if v := os.Getenv("DB_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}

	return c, nil
}

// Addr renders Host/Port as a net.Listen-ready address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// aclFile is the YAML shape of an optional ACL bootstrap file: extra
// users beyond the "default" principal DB_PASSWORD already seeds.
type aclFile struct {
	Users []struct {
		Name     string   `yaml:"name"`
		Password string   `yaml:"password"`
		Rules    []string `yaml:"rules"`
	} `yaml:"users"`
}

// LoadACLFile reads path (a no-op if path is empty) and registers every
// user it lists into acl.
func LoadACLFile(path string, acl *session.ACL) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read ACL file %q: %w", path, err)
	}
	var f aclFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("config: parse ACL file %q: %w", path, err)
	}
	for _, u := range f.Users {
		rules := make([]session.Rule, 0, len(u.Rules))
		for _, tok := range u.Rules {
			r, err := session.ParseRule(tok)
			if err != nil {
				return fmt.Errorf("config: ACL file %q user %q: %w", path, u.Name, err)
			}
			rules = append(rules, r)
		}
		acl.SetUser(u.Name, u.Password, rules)
	}
	return nil
}
