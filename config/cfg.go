package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"rcss/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	SpecificationConfig struct {
		ReserveProperties int      `yaml:"reserve_properties" validate:"gte=0,lte=65535"`
		ReserveShorthands int      `yaml:"reserve_shorthands" validate:"gte=0,lte=65535"`
		Definitions       []string `yaml:"definitions" validate:"dive,required,filepath"`
		SplitCommas       []string `yaml:"split_commas" validate:"dive,required"`
		Defaults          bool     `yaml:"defaults"`
	}

	OutputConfig struct {
		Format  common.OutputFmt `yaml:"format" validate:"gte=0"`
		Sort    bool             `yaml:"sort"`
		Charset string           `yaml:"charset"`
	}

	Config struct {
		Version       int                 `yaml:"version" validate:"eq=1"`
		Specification SpecificationConfig `yaml:"specification"`
		Output        OutputConfig        `yaml:"output"`
		Logging       LoggingConfig       `yaml:"logging"`
		Reporting     ReporterConfig      `yaml:"reporting"`
	}
)

var requiredOptions = []func(*gencfg.ProcessingOptions){}

// checkConfig performs validation which cannot be expressed with tags.
func checkConfig(sl validator.StructLevel) {
	var cfg Config
	switch v := sl.Current().Interface().(type) {
	case Config:
		cfg = v
	case *Config:
		cfg = *v
	default:
		return
	}
	seen := make(map[string]struct{}, len(cfg.Specification.SplitCommas))
	for _, name := range cfg.Specification.SplitCommas {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, ok := seen[key]; ok {
			sl.ReportError(cfg.Specification.SplitCommas, "split_commas", "SplitCommas", "unique", name)
			return
		}
		seen[key] = struct{}{}
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkConfig)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
