// Package config loads factorreplay's run configuration from a file and
// the environment, in that order of increasing precedence (cmd/factorreplay
// then layers its flags on top of what Load returns), using viper the way the rest of the module's ambient stack leans on the
// examples pack's config/CLI libraries rather than hand-rolled flag
// parsing.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Options is a replay run's full configuration.
type Options struct {
	// Exprs lists the factor expressions to parse and evaluate, one
	// output column per expression, in the order given.
	Exprs []string `mapstructure:"exprs"`
	// Sources lists the input file paths to replay the factors over.
	Sources []string `mapstructure:"sources"`
	// BatchSize is the number of rows each source reads per chunk.
	BatchSize int `mapstructure:"batch_size"`
	// NDataJobs bounds how many sources replay concurrently.
	NDataJobs int `mapstructure:"n_data_jobs"`
	// NFactorJobs bounds how many factors replay concurrently per
	// source.
	NFactorJobs int `mapstructure:"n_factor_jobs"`
	// Trim, if set, drops the leading rows every factor is still warming
	// up on from every output column, per source, after replay finishes
	// reading it.
	Trim bool `mapstructure:"trim"`
	// IndexColumn, if set, is passed through unmodified alongside the
	// factor output rather than fed to any factor.
	IndexColumn string `mapstructure:"index_column"`
	// Verbose logs the canonical text of any factor whose root
	// evaluator failed, per source.
	Verbose bool `mapstructure:"verbose"`
	// Framed selects replay.OutputFramed (index column included in the
	// result) over the default replay.OutputColumnar.
	Framed bool `mapstructure:"framed"`
}

// defaults fills in Options fields a config file or flags left zero.
func defaults() Options {
	return Options{
		BatchSize:   40960,
		NDataJobs:   1,
		NFactorJobs: 1,
	}
}

// Load reads a factorreplay config file, if one exists at path, layering
// FACTORREPLAY_-prefixed environment variables on top, and returns the
// merged Options. path may be empty, in which case only the environment
// and viper's defaults apply.
func Load(path string) (Options, error) {
	v := viper.New()
	v.SetEnvPrefix("factorreplay")
	v.AutomaticEnv()

	opts := defaults()
	v.SetDefault("batch_size", opts.BatchSize)
	v.SetDefault("n_data_jobs", opts.NDataJobs)
	v.SetDefault("n_factor_jobs", opts.NFactorJobs)
	v.SetDefault("trim", opts.Trim)
	v.SetDefault("index_column", opts.IndexColumn)
	v.SetDefault("verbose", opts.Verbose)
	v.SetDefault("framed", opts.Framed)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, errors.Wrapf(err, "config: reading %s", path)
		}
	}

	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, errors.Wrap(err, "config: decoding")
	}
	return opts, nil
}
