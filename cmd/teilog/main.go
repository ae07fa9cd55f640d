// Copyright (c) 2020–2024 The tei developers. All rights reserved.
// Project site: https://github.com/gotmc/tei
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Command teilog logs Thermo Environmental analyzers attached to serial
// ports into rotating tab-delimited files.
//
// Touch the new-file path (default ~/new_file) to close the current file;
// the next sample starts a new one.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/gotmc/tei"
	"github.com/gotmc/tei/lib/acquire"
	"github.com/gotmc/tei/lib/cmdlog"
	"github.com/gotmc/tei/lib/config"
	"github.com/gotmc/tei/lib/connutil"
	"github.com/gotmc/tei/lib/find"
	"github.com/gotmc/tei/lib/monitor"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code, so deferred cleanup runs before
// main exits.
func run() int {
	var (
		cfgPath  string
		outDir   string
		newFile  string
		interval time.Duration
		metrics  string
		debug    bool
	)
	flag.StringVar(&cfgPath, "config", "/etc/teilog.yaml", "configuration file")
	flag.StringVar(&outDir, "out", "", "output directory (overrides logger.output_dir)")
	flag.StringVar(&newFile, "newfile", "", "new-file request path (overrides logger.newfile_path)")
	flag.DurationVar(&interval, "interval", 0, "write interval (overrides logger.write_interval)")
	flag.StringVar(&metrics, "metrics", "", "serve metrics on this address (overrides monitor)")
	flag.BoolVar(&debug, "debug", false, "log serial traffic")
	flag.Parse()

	cfg, found, err := config.Load(cfgPath)
	if err != nil {
		logrus.Errorf("config load failed: %v", err)
		return 1
	}
	if outDir != "" {
		cfg.Logger.OutputDir = outDir
	}
	if newFile != "" {
		cfg.Logger.NewFilePath = newFile
	}
	if interval > 0 {
		cfg.Logger.WriteInterval = interval
	}
	if metrics != "" {
		cfg.Monitor.Enabled = true
		cfg.Monitor.Addr = metrics
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		logrus.Errorf("config validation failed: %v", err)
		return 1
	}

	log := setupLogger(cfg.Log)
	if !found {
		log.Warnf("config file %s not found, using defaults", cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := monitor.New()
	if cfg.Monitor.Enabled {
		m.Serve(ctx, cfg.Monitor.Addr, log)
	}

	ports, err := serialPorts(cfg.Serial, log)
	if err != nil {
		log.Errorf("cannot list serial ports: %v", err)
		return 1
	}
	conn := connutil.Conn{BaudRate: cfg.Serial.BaudRate, ReadTimeout: cfg.Serial.ReadTimeout}
	instruments, err := connect(cfg, ports, conn.Open, log, m, debug)
	if err != nil {
		log.Errorf("cannot open serial port connections to instruments: %v", err)
		return 1
	}
	defer func() {
		if err := closeAll(instruments, nil); err != nil {
			log.Errorf("error closing serial ports: %v", err)
		}
	}()

	sources := make([]acquire.Source, 0, len(instruments))
	for i, in := range instruments {
		sources = append(sources, acquire.Source{Label: cfg.Instruments[i].Label, Instrument: in})
	}

	loopCfg, err := loopConfig(cfg.Logger)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	loop, err := acquire.NewLoop(loopCfg, sources, acquire.WithLogger(log), acquire.WithMetrics(m))
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}

	log.Infof("logging every %s to %s", loopCfg.WriteInterval, loopCfg.OutputDir)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("logger stopped: %v", err)
	}
	log.Info("shut down")
	return 0
}

// serialPorts returns the configured ports, or every port the system
// reports when none are configured.
func serialPorts(sc config.SerialConfig, log logrus.FieldLogger) ([]string, error) {
	if len(sc.Ports) > 0 {
		return sc.Ports, nil
	}
	var filter find.FilterFn
	if sc.USBOnly {
		filter = find.USBFilter
	}
	return find.Candidates(log, filter)
}

// connect finds every configured instrument among ports. Ports claimed by
// an earlier instrument are not probed again. An instrument that is not
// found is fatal only in strict mode.
func connect(cfg *config.Config, ports []string, open tei.Opener, log logrus.FieldLogger, m *monitor.Metrics, debug bool) ([]*tei.Instrument, error) {
	if len(ports) == 0 {
		return nil, errors.New("no serial ports found")
	}

	opts := []tei.LinkOption{
		tei.WithCommandDelay(cfg.Serial.CommandDelay),
		tei.WithReadTimeout(cfg.Serial.ReadTimeout),
		tei.WithLogger(log),
	}
	if debug {
		opts = append(opts, tei.WithDebug())
	}

	var (
		instruments []*tei.Instrument
		taken       []string
		errs        error
	)
	for _, ic := range cfg.Instruments {
		id, err := tei.NewIdentity(ic.Address)
		if err != nil {
			return nil, closeAll(instruments, err)
		}
		ilog := log.WithFields(logrus.Fields{"instrument": ic.Label, "address": id.String()})
		candidates := find.Exclude(ports, taken...)
		link, err := tei.Discover(candidates, id, open, cmdlog.ProbeObserver(log, ic.Label), opts...)
		if err != nil {
			ilog.Warnf("instrument not found; its columns will be NaN: %v", err)
			errs = multierr.Append(errs, err)
			m.InstrumentBound.WithLabelValues(ic.Label).Set(0)
		} else {
			ilog.WithField("port", link.Port()).Info("instrument found")
			taken = append(taken, link.Port())
			m.InstrumentBound.WithLabelValues(ic.Label).Set(1)
		}
		instruments = append(instruments, tei.NewInstrument(id, link))
	}
	if cfg.Strict && errs != nil {
		return nil, closeAll(instruments, errs)
	}
	return instruments, nil
}

// closeAll closes every instrument and appends any close errors to err.
func closeAll(instruments []*tei.Instrument, err error) error {
	for _, in := range instruments {
		err = multierr.Append(err, in.Close())
	}
	return err
}

func loopConfig(lc config.LoggerConfig) (acquire.Config, error) {
	out, err := config.ExpandHome(lc.OutputDir)
	if err != nil {
		return acquire.Config{}, err
	}
	req, err := config.ExpandHome(lc.NewFilePath)
	if err != nil {
		return acquire.Config{}, err
	}
	return acquire.Config{
		WriteInterval: lc.WriteInterval,
		TimeException: lc.TimeException,
		FlushInterval: lc.FlushInterval,
		OutputDir:     out,
		NewFilePath:   req,
		FilePrefix:    lc.FilePrefix,
	}, nil
}

func setupLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			log.SetOutput(file)
		} else {
			log.Warnf("cannot open log file %s, using stderr: %v", cfg.File, err)
		}
	}
	return log
}
