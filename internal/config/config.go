// Package config reads camera, cascade and logging settings from the
// environment, optionally seeded from a dotenv file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read by Load when present.
const DefaultEnvFile = ".env"

type Config struct {
	CameraDevice   string
	FrameWidth     int
	FrameHeight    int
	FrameRate      int
	CaptureBackend string
	GstPipeline    string // overrides the generated pipeline when set

	FaceCascade     string
	EyeCascade      string
	CUDAFaceCascade string
	CUDAEyeCascade  string
	PigoCascade     string

	WindowTitle string // empty means the program's own title
	LogFile     string
	Debug       bool
}

// Load reads envFile (a missing file is fine) and builds a Config from the
// environment. Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	return &Config{
		CameraDevice:   getEnv("CAMERA_DEVICE", "/dev/video0"),
		FrameWidth:     getEnvAsInt("FRAME_WIDTH", 640),
		FrameHeight:    getEnvAsInt("FRAME_HEIGHT", 480),
		FrameRate:      getEnvAsInt("FRAME_RATE", 30),
		CaptureBackend: getEnv("CAPTURE_BACKEND", "v4l2"),
		GstPipeline:    getEnv("GST_PIPELINE", ""),

		FaceCascade:     getEnv("FACE_CASCADE", "/usr/share/opencv4/haarcascades/haarcascade_frontalface_default.xml"),
		EyeCascade:      getEnv("EYE_CASCADE", "/usr/share/opencv4/haarcascades/haarcascade_eye.xml"),
		CUDAFaceCascade: getEnv("CUDA_FACE_CASCADE", "./data/cuda/haarcascade_frontalface_default.xml"),
		CUDAEyeCascade:  getEnv("CUDA_EYE_CASCADE", "./data/cuda/haarcascade_eye.xml"),
		PigoCascade:     getEnv("PIGO_CASCADE", "./data/pigo/facefinder"),

		WindowTitle: getEnv("WINDOW_TITLE", ""),
		LogFile:     getEnv("LOG_FILE", ""),
		Debug:       getEnvAsBool("DEBUG", false),
	}, nil
}

// Title returns the configured window title or fallback.
func (c *Config) Title(fallback string) string {
	if c.WindowTitle != "" {
		return c.WindowTitle
	}
	return fallback
}

// Fields flattens the settings for startup logging.
func (c *Config) Fields() map[string]string {
	return map[string]string{
		"device":       c.CameraDevice,
		"geometry":     fmt.Sprintf("%dx%d@%d", c.FrameWidth, c.FrameHeight, c.FrameRate),
		"backend":      c.CaptureBackend,
		"face cascade": c.FaceCascade,
		"eye cascade":  c.EyeCascade,
		"debug":        strconv.FormatBool(c.Debug),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
