package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"modesrx/internal/dsp"
	"modesrx/internal/logging"
	"modesrx/internal/modes"
	"modesrx/internal/source"
)

// Application wires the receiver together: one producer (hardware or file),
// one processing worker, a single-slot mailbox between them, and the output
// streams. Decoded lines go to stdout; everything diagnostic goes through
// the logger on stderr.
type Application struct {
	config   Config
	logger   *logrus.Logger
	out      io.Writer
	registry *modes.Registry
	pipeline *dsp.Pipeline
	mailbox  *source.Mailbox
	rotator  *logging.Rotator
	wg       sync.WaitGroup
}

// NewApplication creates an application instance.
func NewApplication(config Config) *Application {
	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return &Application{
		config: config,
		logger: logger,
		out:    os.Stdout,
	}
}

// Run starts the mode selected by the configuration and blocks until
// shutdown: live decoding, raw capture to a dump file, or offline decoding
// from a dump file.
func (a *Application) Run() error {
	a.logger.WithFields(logrus.Fields{
		"version":     Version,
		"frequency":   a.config.Frequency,
		"sample_rate": a.config.SampleRate,
		"block_size":  a.config.BlockSize,
	}).Info("starting Mode S receiver")

	switch {
	case a.config.DumpPath != "":
		return a.runDump()
	case a.config.InputPath != "":
		return a.runFile()
	default:
		return a.runLive()
	}
}

// Emit implements dsp.Emitter: format one decoded message and write it,
// line-atomically, to stdout and the optional rotating log. Only the worker
// calls this, so writes never interleave.
func (a *Application) Emit(blockIndex uint64, sampleStart, filterNo int, res modes.Result, bits *[modes.MessageBitsMax]int) {
	ts := blockIndex*uint64(a.config.BlockSize) + uint64(sampleStart)
	line := modes.FormatLine(ts, 100*filterNo/a.config.NFilters, res.ICAO, bits, res.Bits)
	fmt.Fprintln(a.out, line)
	if a.rotator != nil {
		w, err := a.rotator.Writer()
		if err != nil {
			a.logger.WithError(err).Error("output log unavailable")
			return
		}
		fmt.Fprintln(w, line)
	}
}

// buildPipeline constructs the decode chain shared by the live and offline
// modes.
func (a *Application) buildPipeline() error {
	a.registry = modes.NewRegistry(a.config.RegistrySize)
	dec := modes.NewDecoder(a.registry, modes.Policy{
		FixXoredCRCs: a.config.FixXoredCRCs,
		FixTwoBit:    a.config.FixTwoBit,
	}, a.logger)
	a.pipeline = dsp.NewPipeline(dsp.Params{
		NFilters:     a.config.NFilters,
		FilterLen:    a.config.FilterLen,
		BlockSize:    a.config.BlockSize,
		DetectThresh: a.config.DetectThresh,
	}, dec, a, a.logger)
	a.mailbox = source.NewMailbox(source.NewBlock(a.config.BlockSize, a.config.FilterLen), a.logger)

	if a.config.LogDir != "" {
		rot, err := logging.NewRotator(a.config.LogDir, a.config.UseUTC, a.logger)
		if err != nil {
			return fmt.Errorf("initializing output log: %w", err)
		}
		a.rotator = rot
	}
	return nil
}

// startWorker runs the processing thread: wait for a published block,
// process it end to end, release the slot.
func (a *Application) startWorker() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			blk, ok := a.mailbox.Acquire()
			if !ok {
				return
			}
			a.pipeline.Process(blk)
			a.mailbox.Release()
		}
	}()
}

// reportStats logs pipeline counters every 30 seconds until stopped.
func (a *Application) reportStats(stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s := a.pipeline.Stats()
			a.logger.WithFields(logrus.Fields{
				"blocks":      s.Blocks,
				"candidates":  s.Candidates,
				"decoded":     s.Decoded,
				"emitted":     s.Emitted,
				"cross_block": s.CrossBlock,
				"overflows":   a.mailbox.Overflows(),
			}).Info("receiver statistics")
		}
	}
}

// runFile decodes a previously captured raw dump.
func (a *Application) runFile() error {
	if err := a.buildPipeline(); err != nil {
		return err
	}
	defer a.closeRotator()

	src, err := source.NewFileSource(a.config.InputPath, a.config.BlockSize, a.logger)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		a.mailbox.Shutdown()
	}()

	stopStats := make(chan struct{})
	go a.reportStats(stopStats)

	a.startWorker()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		src.Run(a.mailbox)
	}()

	a.wg.Wait()
	close(stopStats)
	return nil
}

// runLive decodes from the dongle until a shutdown signal arrives.
func (a *Application) runLive() error {
	if err := a.buildPipeline(); err != nil {
		return err
	}
	defer a.closeRotator()

	radio, err := a.openRadio()
	if err != nil {
		return err
	}
	defer radio.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopStats := make(chan struct{})
	go a.reportStats(stopStats)

	a.startWorker()
	readerDone := make(chan error, 1)
	go func() {
		readerDone <- radio.Run(a.mailbox, a.config.BlockSize)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
		a.mailbox.Shutdown()
		radio.Cancel()
		if err := <-readerDone; err != nil {
			a.logger.WithError(err).Error("hardware read loop")
		}
	case err := <-readerDone:
		runErr = err
		a.mailbox.Shutdown()
	}

	a.wg.Wait()
	close(stopStats)
	return runErr
}

// runDump captures raw samples to a file without decoding.
func (a *Application) runDump() error {
	radio, err := a.openRadio()
	if err != nil {
		return err
	}
	defer radio.Close()

	f, err := os.Create(a.config.DumpPath)
	if err != nil {
		return fmt.Errorf("creating dump file: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.WithField("path", a.config.DumpPath).Info("capturing raw samples")
	done := make(chan error, 1)
	go func() {
		done <- radio.RunDump(f, a.config.BlockSize)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
		radio.Cancel()
		return <-done
	case err := <-done:
		return err
	}
}

func (a *Application) openRadio() (*source.Radio, error) {
	radio, err := source.OpenRadio(a.config.DeviceIndex, a.logger)
	if err != nil {
		return nil, err
	}
	if err := radio.Configure(a.config.Frequency, a.config.SampleRate, a.config.GainTenths); err != nil {
		radio.Close()
		return nil, err
	}
	return radio, nil
}

func (a *Application) closeRotator() {
	if a.rotator != nil {
		if err := a.rotator.Close(); err != nil {
			a.logger.WithError(err).Error("closing output log")
		}
	}
}
