// face-detect-gpu finds faces and eyes in a camera feed with the OpenCV CUDA
// cascades. Build with -tags cuda against an OpenCV compiled with CUDA.
//
// How to run:
//
//	go run -tags cuda ./cmd/face-detect-gpu [-d /dev/video0]
//
// Keys: Escape or q quits, e toggles eye detection. SIGUSR1 toggles eye
// detection as well.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/osmundi/jetson-face-detect/internal/app"
	"github.com/osmundi/jetson-face-detect/internal/config"
	"github.com/osmundi/jetson-face-detect/internal/detect"
	"github.com/osmundi/jetson-face-detect/internal/logger"
)

func main() {
	envFile := flag.String("env", config.DefaultEnvFile, "Environment variables file")
	device := flag.String("d", "", "Camera device, defaults to CAMERA_DEVICE")
	flag.Parse()

	os.Exit(run(*envFile, *device))
}

func run(envFile, device string) int {
	cfg, err := config.Load(envFile)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 1
	}
	if device != "" {
		cfg.CameraDevice = device
	}

	log, err := logger.New(cfg.LogFile, cfg.Debug)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 1
	}
	defer log.Close()

	a := app.New(cfg, log, os.Stdout)

	fields := cfg.Fields()
	fields["run"] = a.RunID()
	fields["engine"] = detect.EngineCUDA.String()
	fields["face cascade"] = cfg.CUDAFaceCascade
	fields["eye cascade"] = cfg.CUDAEyeCascade
	log.Fields(fields)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	toggle := make(chan os.Signal, 1)
	signal.Notify(toggle, syscall.SIGUSR1)
	defer signal.Stop(toggle)

	if err := a.RunFaceDetect(ctx, app.FaceOptions{Engine: detect.EngineCUDA, Toggle: toggle}); err != nil {
		return 1
	}
	return 0
}
