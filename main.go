package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"exam-bridge/internal/config"
	"exam-bridge/internal/handler"
	"exam-bridge/internal/logger"
	"exam-bridge/internal/metrics"
	"exam-bridge/internal/session"
	"exam-bridge/internal/upstream"
)

var version = "1.0.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "exam-bridge",
	Short: "exam-bridge - session adapter for the WebUntis exam API",
	Long: `exam-bridge logs users into WebUntis on their behalf and hands out
opaque session ids in place of the upstream cookies. Exams are then fetched
with those ids.

Configuration:
  An optional YAML file (--config), a .env file in the working directory
  and EXAM_BRIDGE_* environment variables.
  Example: EXAM_BRIDGE_SERVER_ADDR=:9090`,
	SilenceUsage: true,
	RunE:         serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  serve,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "exam-bridge", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	cli := upstream.New(cfg.Upstream.Timeout, cfg.Upstream.InsecureSkipVerify, m)
	defer cli.CloseIdleConnections()

	h := handler.NewHandler(cli, session.NewMemoryStore(), m, handler.Config{
		DirectoryURL: cfg.Upstream.DirectoryURL,
		Scheme:       cfg.Upstream.Scheme,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewApp(h, cfg, reg).Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
