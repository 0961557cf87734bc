package downloader

import (
	"errors"
	"fmt"
	"io"

	"github.com/xeptore/zpotify/must"
	"github.com/xeptore/zpotify/progress"
	"github.com/xeptore/zpotify/spotify/auth"
	"github.com/xeptore/zpotify/unit"
)

const (
	chunkSize = 50 * unit.Kilobyte
	// maxEmptyReads bounds how many consecutive zero-byte reads a stream
	// may yield before the transfer is declared stalled.
	maxEmptyReads = 30
)

// ErrPartialStream marks a transfer that ended before delivering the
// advertised number of bytes. The entity is abandoned, nothing durable
// is written for it, and batch pipelines move on to their next item.
var ErrPartialStream = errors.New("stream stalled before delivering all bytes")

// drainStream reads the stream to completion in fixed-size chunks,
// reporting progress after every read. The final chunk shrinks to the
// exact number of remaining bytes so the buffer never over-reads.
func drainStream(stream auth.Stream, id string, obs progress.Observer) ([]byte, error) {
	total := stream.TotalSize()
	must.Be(total >= 0, "stream advertises a negative total size")

	buf := make([]byte, 0, total)
	chunk := make([]byte, chunkSize)

	obs.Update(progress.Snapshot{ID: id, Total: total, Downloaded: 0})
	defer obs.Done(id)

	emptyReads := 0
	for downloaded := 0; downloaded < total; {
		want := min(chunkSize, total-downloaded)
		n, err := stream.Read(chunk[:want])
		if n > 0 {
			emptyReads = 0
			downloaded += n
			buf = append(buf, chunk[:n]...)
			obs.Update(progress.Snapshot{ID: id, Total: total, Downloaded: downloaded})
		} else {
			emptyReads++
			if emptyReads > maxEmptyReads {
				return nil, ErrPartialStream
			}
		}

		if nil != err {
			if errors.Is(err, io.EOF) {
				if downloaded < total {
					return nil, ErrPartialStream
				}

				break
			}

			return nil, fmt.Errorf("failed to read stream chunk: %v", err)
		}
	}

	return buf, nil
}
