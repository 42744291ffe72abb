package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SepehrImanian/vrrpown/internal/adapters/netio"
	"github.com/SepehrImanian/vrrpown/internal/adapters/repo"
	"github.com/SepehrImanian/vrrpown/internal/app"
	"github.com/SepehrImanian/vrrpown/internal/config"
)

// Version is set at build time.
var Version = "dev"

// errUsage marks flag errors, which print usage and exit cleanly.
var errUsage = errors.New("usage")

var opts struct {
	configPath string
	iface      string
	source     string
	timeout    int
	verbose    bool
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vrrpown",
		Short:         "Take over every VRRP virtual router seen on the local segment",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a yaml config file")
	cmd.Flags().StringVarP(&opts.iface, "interface", "i", config.DefaultInterface, "Interface to capture and inject on")
	cmd.Flags().StringVarP(&opts.source, "source", "s", config.DefaultSourceIP, "Source IP of forged advertisements")
	cmd.Flags().IntVarP(&opts.timeout, "timeout", "t", config.DefaultCaptureTimeout, "Seconds to capture VRRP frames for")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vrrpown %s\n", Version)
		},
	})
	return cmd
}

// loadConfig reads the optional config file and lets explicitly set flags
// override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if opts.configPath != "" {
		c, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	f := cmd.Flags()
	if opts.configPath == "" || f.Changed("interface") {
		cfg.Interface = opts.iface
	}
	if opts.configPath == "" || f.Changed("source") {
		cfg.SourceIP = opts.source
	}
	if opts.configPath == "" || f.Changed("timeout") {
		cfg.CaptureTimeoutSec = opts.timeout
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	log.SetLevel(level)

	pc := netio.NewPcap(cfg)
	defer pc.Close()
	info, err := netio.NewLocalInfo(cfg)
	if err != nil {
		return err
	}

	d := &app.Daemon{
		SourceIP:       cfg.Source(),
		CaptureTimeout: cfg.CaptureTimeout(),
		AdvertInterval: cfg.AdvertInterval(),
		Priority:       uint8(cfg.Priority),
		Capture:        pc,
		Sender:         pc,
		Info:           info,
		Repo:           repo.NewMemory(),
		Logger:         log.WithField("iface", cfg.Interface),
	}
	return d.Run(ctx)
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Warn("Caught interrupt, exiting...")
		cancel()
	}()

	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		_ = cmd.Usage()
	case errors.Is(err, app.ErrNoAdvertisements):
		log.Warn("No VRRP frame captured, exiting")
	default:
		var se *netio.SetupError
		if errors.As(err, &se) {
			log.WithError(err).Error("problem sniffing frames (are you root?)")
		} else {
			log.WithError(err).Error("vrrpown failed")
		}
		os.Exit(1)
	}
}
