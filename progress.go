package ustar

import "github.com/meigma/ustar/internal/tartype"

// Re-export progress types.
type (
	// ProgressEvent represents a progress update during archive or extract operations.
	ProgressEvent = tartype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = tartype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	// It is called synchronously from the goroutine running the operation.
	ProgressFunc = tartype.ProgressFunc
)

// Re-export progress stage constants.
const (
	// StageScanning indicates the archive is being traversed without extraction.
	StageScanning = tartype.StageScanning

	// StageArchiving indicates entries are being written to the archive.
	StageArchiving = tartype.StageArchiving

	// StageExtracting indicates entries are being extracted.
	StageExtracting = tartype.StageExtracting
)

func (e *Engine) report(stage ProgressStage, path string, bytesDone uint64, filesDone int) {
	if e.cfg.progress == nil {
		return
	}
	e.cfg.progress(ProgressEvent{
		Stage:     stage,
		Path:      path,
		BytesDone: bytesDone,
		FilesDone: filesDone,
	})
}
