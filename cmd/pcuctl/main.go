// Command pcuctl exposes the §6 configuration surface of the RLC/MAC
// core as CLI flags, in the spirit of part5's cmd/iecat flag-bound
// session parameters but built on the cobra/pflag tree
// caddyserver/caddy itself uses for its command surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/osmo-go/pcu-rlcmac/bts"
	"github.com/osmo-go/pcu-rlcmac/sched"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// algorithmFlag binds --alloc-algorithm as a pflag.Value so an
// invalid value is rejected at parse time rather than inside RunE.
type algorithmFlag struct{ alg *bts.AllocAlgorithm }

func (f algorithmFlag) String() string {
	if *f.alg == bts.AlgorithmB {
		return "B"
	}
	return "A"
}

func (f algorithmFlag) Set(s string) error {
	switch s {
	case "A":
		*f.alg = bts.AlgorithmA
	case "B":
		*f.alg = bts.AlgorithmB
	default:
		return fmt.Errorf("unknown alloc-algorithm %q, want A or B", s)
	}
	return nil
}

func (f algorithmFlag) Type() string { return "string" }

var _ pflag.Value = algorithmFlag{}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pcuctl",
		Short: "Run and inspect the GPRS/EGPRS RLC/MAC control core",
		Long: `pcuctl runs the in-process RLC/MAC control core for a BTS: it owns
the MS registry, the TRX/PDCH topology, and the §6 configuration
surface (coding schemes, allocator, T3169/T3191/T3193/T3195 timers
and N3101/N3103/N3105 counters).`,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cfg := bts.DefaultConfig()
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a PCU instance with the given configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var logger *zap.Logger
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return fmt.Errorf("pcuctl: building logger: %w", err)
			}
			defer logger.Sync()

			instance, err := bts.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("pcuctl: %w", err)
			}
			defer instance.Close()

			logger.Info("PCU core configured",
				zap.Uint8("initial_cs_dl", cfg.InitialCSDL),
				zap.Uint8("initial_cs_ul", cfg.InitialCSUL),
				zap.Bool("egprs_enabled", cfg.EGPRSEnabled),
				zap.String("alloc_algorithm", algorithmFlag{&cfg.AllocAlgorithm}.String()),
			)

			metrics := sched.NewMetrics(prometheus.NewRegistry())
			ind := make(chan bts.PHDataInd)
			rts := make(chan bts.PHRTSInd)
			req := make(chan bts.PHDataReq)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go instance.Run(ctx, ind, rts, req, metrics, nil)

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

			for {
				select {
				case sig := <-signals:
					logger.Info("shutting down", zap.String("signal", sig.String()))
					cancel()
					return nil
				case out := <-req:
					logger.Debug("PH-DATA.req", zap.Int("trx", out.TRX), zap.Int("ts", out.TS), zap.Uint32("fn", out.FN), zap.Int("len", len(out.Raw)))
				}
			}
		},
	}

	flags := cmd.Flags()
	flags.Uint8Var(&cfg.InitialCSDL, "initial-cs-dl", cfg.InitialCSDL, "Initial GPRS coding scheme for the downlink (1..4).")
	flags.Uint8Var(&cfg.InitialCSUL, "initial-cs-ul", cfg.InitialCSUL, "Initial GPRS coding scheme for the uplink (1..4).")
	flags.BoolVar(&cfg.CS1, "cs1", cfg.CS1, "Permit CS-1.")
	flags.BoolVar(&cfg.CS2, "cs2", cfg.CS2, "Permit CS-2.")
	flags.BoolVar(&cfg.CS3, "cs3", cfg.CS3, "Permit CS-3.")
	flags.BoolVar(&cfg.CS4, "cs4", cfg.CS4, "Permit CS-4.")
	flags.BoolVar(&cfg.EGPRSEnabled, "egprs", cfg.EGPRSEnabled, "Enable EGPRS coding schemes (MCS-1..MCS-9).")
	flags.Var(algorithmFlag{&cfg.AllocAlgorithm}, "alloc-algorithm", "PDCH allocation strategy, A (single-slot) or B (multislot-aware).")
	flags.Uint32Var(&cfg.T3142, "t3142", cfg.T3142, "T3142 deadline, in frame numbers.")
	flags.Uint32Var(&cfg.T3169, "t3169", cfg.T3169, "T3169 deadline, in frame numbers.")
	flags.Uint32Var(&cfg.T3191, "t3191", cfg.T3191, "T3191 deadline, in frame numbers.")
	flags.Uint32Var(&cfg.T3195, "t3195", cfg.T3195, "T3195 deadline, in frame numbers.")
	flags.Uint32Var(&cfg.T3193Msec, "t3193-msec", cfg.T3193Msec, "T3193 deadline, in milliseconds.")
	flags.Uint32Var(&cfg.N3101Max, "n3101", cfg.N3101Max, "N3101_MAX poll-timeout count before an ASSIGN uplink TBF releases.")
	flags.Uint32Var(&cfg.N3103Max, "n3103", cfg.N3103Max, "N3103_MAX resend count before a FLOW uplink TBF releases.")
	flags.Uint32Var(&cfg.N3105Max, "n3105", cfg.N3105Max, "N3105_MAX poll-timeout count before an ASSIGN downlink TBF releases.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Use a development (human-readable, debug-level) logger.")

	return cmd
}
