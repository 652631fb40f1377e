package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{in: "", want: BackendV4L2},
		{in: "v4l2", want: BackendV4L2},
		{in: " V4L2 ", want: BackendV4L2},
		{in: "gst", want: BackendGStreamer},
		{in: "GStreamer", want: BackendGStreamer},
		{in: "ffmpeg", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBackend(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBackendString(t *testing.T) {
	assert.Equal(t, "V4L2", BackendV4L2.String())
	assert.Equal(t, "GStreamer", BackendGStreamer.String())
	assert.Equal(t, "Backend(7)", Backend(7).String())
}

func TestPipeline(t *testing.T) {
	want := "v4l2src device=/dev/video0 ! " +
		"video/x-raw, width=640, height=480, framerate=30/1 ! " +
		"videoconvert ! " +
		"video/x-raw, format=(string)BGR ! " +
		"appsink"
	assert.Equal(t, want, Pipeline("/dev/video0", 640, 480, 30))
}

func TestH264Pipeline(t *testing.T) {
	want := "v4l2src device=/dev/video1 ! " +
		"video/x-h264, width=1280, height=720, framerate=30/1, format=H264 ! " +
		"avdec_h264 ! " +
		"videoconvert ! " +
		"video/x-raw, format=(string)BGR ! " +
		"appsink sync=false"
	assert.Equal(t, want, H264Pipeline("/dev/video1", 1280, 720, 30))
}

func TestSettingsDescribe(t *testing.T) {
	base := Settings{Device: "/dev/video0", Width: 640, Height: 480, FPS: 30}

	v4l2 := base
	assert.Equal(t, "/dev/video0", v4l2.Describe())

	gst := base
	gst.Backend = BackendGStreamer
	assert.Equal(t, Pipeline("/dev/video0", 640, 480, 30), gst.Describe())

	h264 := gst
	h264.H264 = true
	assert.Equal(t, H264Pipeline("/dev/video0", 640, 480, 30), h264.Describe())

	custom := h264
	custom.Pipeline = "videotestsrc ! appsink"
	assert.Equal(t, "videotestsrc ! appsink", custom.Describe())
}
