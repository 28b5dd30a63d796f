package cmd

import (
	"os"

	"github.com/atikulmunna/logrank/internal/logs"
	"github.com/atikulmunna/logrank/internal/parser"
	"github.com/atikulmunna/logrank/internal/pipeline"
	"github.com/atikulmunna/logrank/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis pipeline over HTTP",
	Long: `Start an HTTP server that analyzes access logs posted to /api/analyze,
serves the latest reports under /api/reports and pushes new results to
websocket clients on /ws.

Examples:
  logrank serve --port 9090
  curl --data-binary @access.log localhost:9090/api/analyze`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "8080", "listen port")
	serveCmd.Flags().StringP("format", "f", "clf", "log format: clf, json, auto, regex")
	cobra.CheckErr(viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(viper.GetViper())
	if f := cmd.Flags().Lookup("format"); f.Changed {
		cfg.Format = f.Value.String()
	}

	logger, err := logs.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, err := parser.New(cfg.Format, cfg.Pattern)
	if err != nil {
		return err
	}

	pl := pipeline.New(p,
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithErrorThreshold(cfg.ErrorThreshold),
		pipeline.WithLogger(logger),
	)
	return server.New(pl, cfg.Port, logger).Start()
}
