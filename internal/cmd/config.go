package cmd

import (
	"runtime"

	"github.com/atikulmunna/logrank/internal/aggregator"
	"github.com/atikulmunna/logrank/internal/output"
	"github.com/spf13/viper"
)

// Config is the resolved configuration shared by all commands.
type Config struct {
	LogLevel string

	Input   string
	Format  string
	Pattern string
	Workers int

	ErrorThreshold int
	Top            int

	OutDir      string
	StatusFile  string
	ErrorIPFile string
	Output      string
	NoCSV       bool

	Port string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("input", "-")
	v.SetDefault("parser.format", "clf")
	v.SetDefault("parser.pattern", "")
	v.SetDefault("pipeline.workers", runtime.NumCPU())
	v.SetDefault("report.error_threshold", aggregator.DefaultErrorThreshold)
	v.SetDefault("report.top", 10)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.status_file", output.DefaultStatusFile)
	v.SetDefault("output.error_ip_file", output.DefaultErrorIPFile)
	v.SetDefault("output.format", "text")
	v.SetDefault("output.no_csv", false)
	v.SetDefault("server.port", "8080")
}

func loadConfig(v *viper.Viper) Config {
	return Config{
		LogLevel:       v.GetString("log.level"),
		Input:          v.GetString("input"),
		Format:         v.GetString("parser.format"),
		Pattern:        v.GetString("parser.pattern"),
		Workers:        v.GetInt("pipeline.workers"),
		ErrorThreshold: v.GetInt("report.error_threshold"),
		Top:            v.GetInt("report.top"),
		OutDir:         v.GetString("output.dir"),
		StatusFile:     v.GetString("output.status_file"),
		ErrorIPFile:    v.GetString("output.error_ip_file"),
		Output:         v.GetString("output.format"),
		NoCSV:          v.GetBool("output.no_csv"),
		Port:           v.GetString("server.port"),
	}
}
