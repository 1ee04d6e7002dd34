// Package config loads pass options from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hwverif/ctrd"
	"gopkg.in/yaml.v3"
)

// Solver backend names.
const (
	SolverZ3  = "z3"
	SolverSAT = "sat"
)

// Config holds the options of one pass run.
type Config struct {
	Signal    string        `yaml:"signal" validate:"required"`
	Offset    int           `yaml:"offset" validate:"gte=0"`
	Length    int           `yaml:"length" validate:"gte=0"`
	Forbidden uint64        `yaml:"forbidden"`
	Solver    string        `yaml:"solver" validate:"oneof=z3 sat"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	Verbose   bool          `yaml:"verbose"`
}

// Default returns the default options.
func Default() Config {
	return Config{
		Signal:    ctrd.DefaultSignal,
		Offset:    ctrd.DefaultOffset,
		Length:    ctrd.DefaultLength,
		Forbidden: ctrd.DefaultForbidden,
		Solver:    SolverSAT,
		Timeout:   10 * time.Second,
	}
}

var validate = validator.New()

// Validate returns an error describing every invalid field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			var buf bytes.Buffer
			for i, e := range verrs {
				if i > 0 {
					buf.WriteString("; ")
				}
				fmt.Fprintf(&buf, "%s: failed %q", e.Field(), e.Tag())
				if e.Param() != "" {
					fmt.Fprintf(&buf, " (%s)", e.Param())
				}
			}
			return fmt.Errorf("invalid config: %s", buf.String())
		}
		return err
	}

	if c.Length > 0 && c.Length < 64 && c.Forbidden >= 1<<uint(c.Length) {
		return fmt.Errorf("invalid config: forbidden value %d does not fit in %d bits", c.Forbidden, c.Length)
	}
	return nil
}

// Decode reads options from r over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("failed to parse the config: %w", err)
	}
	return c, c.Validate()
}

// Load reads options from the YAML file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Marshal returns the YAML encoding of c.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
