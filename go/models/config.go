package models

import (
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type Config struct {
	Color   bool
	Verbose bool
	Strsize int

	Output io.Writer
	Logger log.Logger
}

// NewConfig fills in the stderr logfmt logger; debug lines only pass with Verbose.
func NewConfig(verbose, color bool) *Config {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	return &Config{
		Color:   color,
		Verbose: verbose,
		Strsize: 30,
		Output:  os.Stdout,
		Logger:  logger,
	}
}

func (c *Config) Init() *Config {
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.Logger == nil {
		c.Logger = log.NewNopLogger()
	}
	return c
}
