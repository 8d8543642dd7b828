// ABOUTME: Entry point for the squeezeplay audio player
// ABOUTME: Parses CLI flags, sets up logging and runs the player application
package main

import (
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cris-/squeezeos-squeezeplay/internal/app"
	"github.com/cris-/squeezeos-squeezeplay/internal/version"
	"github.com/cris-/squeezeos-squeezeplay/pkg/audio/output"
	"github.com/sirupsen/logrus"
)

var (
	backend    = flag.String("backend", "malgo", "Audio backend: malgo, portaudio, oto")
	filePath   = flag.String("file", "", "Local audio file to play")
	serverAddr = flag.String("server", "", "Stream server address (skip mDNS discovery)")
	volume     = flag.Int("volume", 100, "Initial volume (0-100)")
	effectsDir = flag.String("effects", "", "Directory of WAV sound effect clips")
	bufferMs   = flag.Int("buffer-ms", 500, "Startup buffering threshold in milliseconds")
	logFile    = flag.String("log-file", "squeezeplay.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		logrus.WithError(err).Fatal("error opening log file")
	}
	defer func() { _ = f.Close() }()

	if *noTUI {
		logrus.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		// TUI owns the terminal; log only to the file.
		logrus.SetOutput(f)
	}

	logrus.WithFields(logrus.Fields{
		"product": version.Product,
		"version": version.Version,
	}).Info("starting player")

	player, err := app.New(app.Config{
		Backend:    *backend,
		Path:       *filePath,
		ServerAddr: *serverAddr,
		Volume:     *volume,
		EffectsDir: *effectsDir,
		BufferMs:   *bufferMs,
		NoTUI:      *noTUI,
	})
	if err != nil {
		if errors.Is(err, output.ErrUnavailable) {
			logrus.WithError(err).Fatal("no usable audio device")
		}
		logrus.WithError(err).Fatal("failed to create player")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("shutdown signal received")
		player.Stop()
	}()

	if err := player.Run(); err != nil {
		logrus.WithError(err).Fatal("player exited with error")
	}
	logrus.Info("player stopped")
}
