package resourcefs

import (
	"runtime"

	"github.com/charmbracelet/log"
)

// handle wraps a store's File so that dropping it without calling Close
// still releases the underlying descriptor once the handle is collected.
type handle struct {
	File
	name    string
	cleanup runtime.Cleanup
}

func newHandle(f File, name, store string, logger *log.Logger) *handle {
	h := &handle{File: f, name: name}
	h.cleanup = runtime.AddCleanup(h, func(f File) {
		if err := f.Close(); err != nil {
			logger.Warn("closing leaked file handle", "path", name, "store", store, "err", err)
			return
		}
		logger.Debug("closed leaked file handle", "path", name, "store", store)
	}, f)
	return h
}

// Name returns the virtual path the handle was opened with
func (h *handle) Name() string { return h.name }

// Close releases the underlying file
func (h *handle) Close() error {
	h.cleanup.Stop()
	return h.File.Close()
}
