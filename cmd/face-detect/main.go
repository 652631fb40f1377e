// face-detect finds faces and eyes in a camera feed on the CPU and overlays
// the detection timings.
//
// How to run:
//
//	go run ./cmd/face-detect [-engine haar|pigo] [-d /dev/video0]
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
	selectedEngine := flag.String("engine", "haar", "Face detection engine (haar/pigo)")
	device := flag.String("d", "", "Camera device, defaults to CAMERA_DEVICE")
	flag.Parse()

	os.Exit(run(*envFile, *selectedEngine, *device))
}

func run(envFile, selectedEngine, device string) int {
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

	engine, err := detect.ParseEngine(selectedEngine)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	if engine == detect.EngineCUDA {
		log.Error("use face-detect-gpu for the %s engine", engine)
		return 1
	}

	a := app.New(cfg, log, os.Stdout)

	fields := cfg.Fields()
	fields["run"] = a.RunID()
	fields["engine"] = engine.String()
	if engine == detect.EnginePigo {
		fields["pigo cascade"] = cfg.PigoCascade
	}
	log.Fields(fields)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	toggle := make(chan os.Signal, 1)
	signal.Notify(toggle, syscall.SIGUSR1)
	defer signal.Stop(toggle)

	if err := a.RunFaceDetect(ctx, app.FaceOptions{Engine: engine, Toggle: toggle}); err != nil {
		return 1
	}
	return 0
}
