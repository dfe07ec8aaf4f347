package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/vbridge/internal/config"
	"firestige.xyz/vbridge/internal/core"
	"firestige.xyz/vbridge/internal/egress"
	"firestige.xyz/vbridge/internal/ingress"
	"firestige.xyz/vbridge/internal/log"
	"firestige.xyz/vbridge/internal/metrics"
	"firestige.xyz/vbridge/internal/switcher"
	"firestige.xyz/vbridge/internal/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the switch in the foreground",
	Long: `Run the switch until it is interrupted or its transport ends.

The switch will:
  1. Load configuration and initialize logging
  2. Start the metrics server (if enabled)
  3. Open one port per configured switch port
  4. Forward frames until SIGINT/SIGTERM, a fatal port error, or the end of
     the capture inputs (pcap transport)

Examples:
  vbridge run -c /etc/vbridge/vbridge.yml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runSwitch(ctx, cfg)
	},
}

// runSwitch wires the switch from cfg and blocks until it stops. An orderly
// end of the transport is not an error.
func runSwitch(ctx context.Context, cfg *config.GlobalConfig) error {
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("init log: %w", err)
	}
	logger := log.GetLogger()

	swCfg, err := cfg.Switch.Build()
	if err != nil {
		return err
	}

	opts := []switcher.Option{switcher.WithFDBCapacity(cfg.Switch.FDBCapacity)}
	var observers []switcher.Observer
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				logger.WithError(err).Warn("failed to stop metrics server")
			}
		}()
		rec := metrics.NewRecorder()
		observers = append(observers, rec)
		opts = append(opts, switcher.WithEvictCallback(rec.AddressEvicted))
	}
	if logger.IsTraceEnabled() {
		observers = append(observers, &traceObserver{logger: logger})
	}
	if len(observers) > 0 {
		opts = append(opts, switcher.WithObserver(switcher.MultiObserver(observers...)))
	}

	tr, err := transport.Open(ctx, cfg.Transport, swCfg.NumPorts())
	if err != nil {
		return err
	}
	sw, err := switcher.New(swCfg, tr, opts...)
	if err != nil {
		tr.Close()
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received, closing ports")
			if err := tr.Close(); err != nil {
				logger.WithError(err).Warn("failed to close transport")
			}
		case <-done:
		}
	}()

	logger.WithFields(map[string]interface{}{
		"ports":     swCfg.NumPorts(),
		"vlans":     len(swCfg.VlanIDs()),
		"transport": cfg.Transport.Type,
	}).Info("switch started")

	err = sw.Run()
	if cerr := tr.Close(); cerr != nil {
		logger.WithError(cerr).Warn("failed to close transport")
	}
	if errors.Is(err, transport.ErrClosed) || errors.Is(err, io.EOF) {
		logger.WithField("learned", sw.FDB().Len()).Info("switch stopped")
		return nil
	}
	return fmt.Errorf("switch stopped: %w", err)
}

// traceObserver logs every frame event at trace level.
type traceObserver struct {
	logger log.Logger
}

func (o *traceObserver) FrameReceived(port core.PortNumber, size int) {
	o.logger.WithField("port", port).WithField("size", size).Trace("frame received")
}

func (o *traceObserver) FrameDropped(port core.PortNumber, reason ingress.Verdict) {
	o.logger.WithField("port", port).WithField("reason", reason.String()).Trace("frame dropped")
}

func (o *traceObserver) AddressLearned(vlan core.VlanID, mac core.HwAddr, port core.PortNumber) {
	o.logger.WithFields(map[string]interface{}{
		"vlan": vlan.String(),
		"mac":  mac.String(),
		"port": port,
	}).Trace("address learned")
}

func (o *traceObserver) FrameDispatched(frame *ingress.ScopedFrame, dec egress.Decision) {
	o.logger.WithFields(map[string]interface{}{
		"vlan":    frame.Vlan.String(),
		"dst":     frame.Frame.Dst.String(),
		"mode":    dec.Mode.String(),
		"targets": len(dec.Targets),
	}).Trace("frame dispatched")
}
