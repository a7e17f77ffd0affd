package dockerfacade

import (
	"io"

	"github.com/Mahdi-A98/shellmux/fileutil"
)

// newProgressReader wraps an image-pull response body so callers can
// observe byte counts as the pull streams, rather than the teacher's
// file-transfer case this type was originally written for.
func newProgressReader(r io.Reader, onProgress func(int64)) *fileutil.ProgressReader {
	fn := func(current, _ int64) {
		if onProgress != nil {
			onProgress(current)
		}
	}

	return &fileutil.ProgressReader{Reader: r, Fn: fn}
}
