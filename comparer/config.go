package comparer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linshokaku/pytorch-pfn-extras/trigger"
)

// fileConfig is the YAML shape accepted by OptionsFromYAML:
//
//	trigger:
//	  period: 1
//	  unit: iteration        # or epoch
//	  time: 30s              # alternatively, a wall-clock period
//	rtol: 1e-6
//	atol: 0
//	equal_nan: true
//	msg: ""
//	concurrency: 2
//	outputs: [loss]          # omitted selects all, [] selects none
//	params: ["fc\\..*"]      # omitted selects none
type fileConfig struct {
	Trigger *struct {
		Period int    `yaml:"period"`
		Unit   string `yaml:"unit"`
		Time   string `yaml:"time"`
	} `yaml:"trigger"`
	RTol        *float64  `yaml:"rtol"`
	ATol        *float64  `yaml:"atol"`
	EqualNaN    *bool     `yaml:"equal_nan"`
	Msg         string    `yaml:"msg"`
	Concurrency int       `yaml:"concurrency"`
	Outputs     *[]string `yaml:"outputs"`
	Params      *[]string `yaml:"params"`
}

// OptionsFromYAML parses comparison options from YAML into option
// functions for New. Unknown fields are rejected. Omitted fields keep the
// library defaults.
func OptionsFromYAML(r io.Reader) ([]func(o *Options), error) {
	var cfg fileConfig

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("comparer: parsing options: %w", err)
	}

	var optFns []func(o *Options)

	if cfg.Trigger != nil {
		var trig trigger.Trigger
		switch {
		case cfg.Trigger.Time != "":
			period, err := time.ParseDuration(cfg.Trigger.Time)
			if err != nil {
				return nil, fmt.Errorf("comparer: invalid trigger time: %w", err)
			}
			trig = trigger.NewTimeTrigger(period)
		default:
			unit, err := trigger.ParseUnit(cfg.Trigger.Unit)
			if err != nil {
				return nil, err
			}
			trig, err = trigger.NewInterval(cfg.Trigger.Period, unit)
			if err != nil {
				return nil, err
			}
		}
		optFns = append(optFns, func(o *Options) { o.Trigger = trig })
	}

	if cfg.RTol != nil || cfg.ATol != nil || cfg.EqualNaN != nil || cfg.Msg != "" {
		cmpCfg := DefaultCompareConfig()
		if cfg.RTol != nil {
			cmpCfg.RTol = *cfg.RTol
		}
		if cfg.ATol != nil {
			cmpCfg.ATol = *cfg.ATol
		}
		if cfg.EqualNaN != nil {
			cmpCfg.EqualNaN = *cfg.EqualNaN
		}
		cmpCfg.Msg = cfg.Msg
		optFns = append(optFns, func(o *Options) { o.CompareFn = NewCompareFn(cmpCfg) })
	}

	if cfg.Concurrency > 0 {
		conc := cfg.Concurrency
		optFns = append(optFns, func(o *Options) { o.Concurrency = conc })
	}

	if cfg.Outputs != nil {
		sel := SelectKeys(*cfg.Outputs...)
		optFns = append(optFns, func(o *Options) { o.Outputs = sel })
	}

	if cfg.Params != nil {
		sel := SelectKeys(*cfg.Params...)
		optFns = append(optFns, func(o *Options) { o.Params = sel })
	}

	return optFns, nil
}

// LoadOptionsFile reads comparison options from a YAML file.
func LoadOptionsFile(path string) ([]func(o *Options), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("comparer: opening options file: %w", err)
	}
	defer f.Close()

	return OptionsFromYAML(f)
}
