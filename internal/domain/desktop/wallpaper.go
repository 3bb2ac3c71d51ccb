package desktop

import (
	"os"

	"go.uber.org/zap"
)

// WallpaperLoader loads wallpaper files without blocking the control
// loop. The read happens on a worker goroutine; the completion callback
// is posted back to the loop so it runs in a normal turn.
type WallpaperLoader struct {
	post   func(func())
	logger *zap.Logger
}

// NewWallpaperLoader creates a loader. post must schedule a task onto
// the control loop.
func NewWallpaperLoader(post func(func()), logger *zap.Logger) *WallpaperLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WallpaperLoader{post: post, logger: logger}
}

// Load reads the wallpaper at path off-loop and invokes done(success)
// on the control loop once finished. The file contents are only
// validated for readability here; decoding is the compositor's job.
func (l *WallpaperLoader) Load(path string, done func(success bool)) {
	go func() {
		_, err := os.Stat(path)
		if err == nil {
			var f *os.File
			f, err = os.Open(path)
			if err == nil {
				f.Close()
			}
		}
		success := err == nil
		if !success {
			l.logger.Warn("wallpaper load failed", zap.String("path", path), zap.Error(err))
		}
		l.post(func() { done(success) })
	}()
}
