//go:build !cuda

package detect

import "gocv.io/x/gocv"

// CUDADeviceCount is always 0 in builds without the cuda tag.
func CUDADeviceCount() int { return 0 }

// CUDADetector is unavailable in builds without the cuda tag.
type CUDADetector struct{}

// NewCUDA checks the cascade files like the CUDA build does, then fails
// with ErrCUDAUnavailable; rebuild with -tags cuda.
func NewCUDA(cfg CUDAConfig) (*CUDADetector, error) {
	if err := statCascades(cfg.FaceCascade, cfg.EyeCascade); err != nil {
		return nil, err
	}
	return nil, ErrCUDAUnavailable
}

func (*CUDADetector) Detect(gocv.Mat, bool) (Result, error) {
	return Result{}, ErrCUDAUnavailable
}

func (*CUDADetector) Close() error { return nil }
