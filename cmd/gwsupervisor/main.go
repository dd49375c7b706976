package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/gwauto/gwsupervisor/internal/gateway"
	"github.com/gwauto/gwsupervisor/internal/log"
	"github.com/gwauto/gwsupervisor/internal/model"
	"github.com/gwauto/gwsupervisor/internal/service"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

const (
	envConfig   = "GWSUPERVISORCONFIG"
	envPassword = "GWSUPERVISOR_PASSWORD"
	configName  = "gwsupervisor.yaml"
)

var (
	userConfigPath string // /default/config/path/gwsupervisor on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config
	closeLog       = func() error { return nil }

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "gwsupervisor")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is "+configName+" in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initSupervisor
	rootCmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		return closeLog()
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("gwsupervisor failed", "err", err)
		_ = closeLog()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "gwsupervisor",
	Short:        "Supervisor of the trading gateway process",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run starts the gateway and keeps it running until interrupted",
	RunE:  doRun,
}

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "diag starts the gateway and waits for its exit, streaming its output",
	RunE:  doDiag,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of a gwsupervisor",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("gwsupervisor: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config:       %s\n", configPath)
		}
		fmt.Printf("gwsupervisor: %s\n", info.Main.Version)
		fmt.Printf("go:           %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:       %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:         %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:        %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("gwsupervisor",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	cfg, err := gatewayConfig(config)
	if err != nil {
		return err
	}
	supervisor := gateway.NewSupervisor(cfg, gateway.NewLogObserver(slog.Default()))

	svc, err := service.New(ctx, supervisor, config.Service.Restart)
	if err != nil {
		return err
	}

	// SIGHUP restarts the gateway
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				slog.InfoContext(ctx, "SIGHUP received")
				svc.RequestRestart()
			}
		}
	}()

	return svc.Do(ctx)
}

func doDiag(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("gwsupervisor",
		slog.String("cmd", "diag"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	cfg, err := gatewayConfig(config)
	if err != nil {
		return err
	}
	supervisor := gateway.NewSupervisor(cfg, gateway.NewLogObserver(slog.Default()))
	defer supervisor.Stop(context.WithoutCancel(ctx))

	result := supervisor.Start(ctx, true)
	slog.InfoContext(ctx, "gateway finished", "result", result.String())
	return result.Err()
}

func initSupervisor(cmd *cobra.Command, _ []string) error {
	if env, ok := os.LookupEnv(envConfig); ok {
		configPath = env
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, configName)
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, configName)
		if err := storeConfig(configPath, config); err != nil {
			return err
		}
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error("invalid configuration", d.Attr("detail"))
			}
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	if password, ok := os.LookupEnv(envPassword); ok {
		config.Gateway.Password = password
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.Service.Verbose = true
	}

	// initialize logging
	dest := log.Stderr
	if config.Service.Log != nil {
		dest = *config.Service.Log
	}
	w, closer, err := log.Output(dest)
	if err != nil {
		return err
	}
	closeLog = closer
	slog.SetDefault(log.New(w, config.Service.Verbose))

	slog.Debug("gwsupervisor run", "configPath", configPath)
	slog.Debug("gwsupervisor run", "gateway", gatewayParams(config.Gateway))
	return nil
}

func storeConfig(path string, cfg model.Config) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	// contains the password
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	return enc.Close()
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
