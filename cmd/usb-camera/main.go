// usb-camera shows a live camera feed.
//
// How to run:
//
//	go run ./cmd/usb-camera [-backend v4l2|gstreamer] [-h264] [-d /dev/video0]
//
// Press Escape or q to quit.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/osmundi/jetson-face-detect/internal/app"
	"github.com/osmundi/jetson-face-detect/internal/capture"
	"github.com/osmundi/jetson-face-detect/internal/config"
	"github.com/osmundi/jetson-face-detect/internal/logger"
)

func main() {
	envFile := flag.String("env", config.DefaultEnvFile, "Environment variables file")
	selectedBackend := flag.String("backend", "", "Capture backend (v4l2/gstreamer), defaults to CAPTURE_BACKEND")
	h264 := flag.Bool("h264", false, "Use the H.264 GStreamer pipeline")
	device := flag.String("d", "", "Camera device, defaults to CAMERA_DEVICE")
	flag.Parse()

	os.Exit(run(*envFile, *selectedBackend, *device, *h264))
}

func run(envFile, selectedBackend, device string, h264 bool) int {
	cfg, err := config.Load(envFile)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 1
	}
	if device != "" {
		cfg.CameraDevice = device
	}
	if selectedBackend == "" {
		selectedBackend = cfg.CaptureBackend
	}
	if h264 {
		selectedBackend = capture.BackendGStreamer.String()
	}

	log, err := logger.New(cfg.LogFile, cfg.Debug)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 1
	}
	defer log.Close()

	backend, err := capture.ParseBackend(selectedBackend)
	if err != nil {
		log.Error("%v", err)
		return 1
	}

	a := app.New(cfg, log, os.Stdout)

	fields := cfg.Fields()
	fields["run"] = a.RunID()
	fields["backend"] = backend.String()
	log.Fields(fields)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.RunCamera(ctx, app.CameraOptions{Backend: backend, H264: h264}); err != nil {
		return 1
	}
	return 0
}
