package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// Tags are embedded into the encoded file. Zero values are skipped.
type Tags struct {
	Title       string
	Artists     string
	Album       string
	AlbumArtist string
	ReleaseYear string
	DiscNumber  int
	TrackNumber int
	TrackID     string
}

type Params struct {
	Format  string
	Bitrate string
	// Cover holds raw cover art bytes to embed, when the container
	// format supports attached pictures. Empty skips embedding.
	Cover []byte
	Tags  Tags
}

// coverFormats are the output formats whose containers carry an
// attached picture stream.
var coverFormats = map[string]struct{}{
	"mp3":  {},
	"flac": {},
	"m4a":  {},
}

// Encoder turns the raw bytes drained from a content stream into the
// target output format at the requested bitrate.
type Encoder interface {
	Encode(ctx context.Context, logger zerolog.Logger, raw []byte, outputPath string, params Params) error
}

// FFmpeg shells out to the ffmpeg binary, feeding the raw stream over
// stdin and letting the muxer be selected by the target format.
type FFmpeg struct {
	deadline time.Duration
}

func NewFFmpeg(deadline time.Duration) *FFmpeg {
	return &FFmpeg{deadline: deadline}
}

func (f *FFmpeg) Encode(
	ctx context.Context,
	logger zerolog.Logger,
	raw []byte,
	outputPath string,
	params Params,
) error {
	inputType := mimetype.Detect(raw)
	logger.
		Debug().
		Str("input_mime_type", inputType.String()).
		Str("output_format", params.Format).
		Str("bitrate", params.Bitrate).
		Msg("Encoding raw stream")

	metaTags := []string{
		"title=" + params.Tags.Title,
		"artist=" + params.Tags.Artists,
		"album=" + params.Tags.Album,
		"album_artist=" + params.Tags.AlbumArtist,
	}

	if params.Tags.ReleaseYear != "" {
		metaTags = append(metaTags, "date="+params.Tags.ReleaseYear)
	}
	if params.Tags.TrackNumber > 0 {
		metaTags = append(metaTags, "track="+strconv.Itoa(params.Tags.TrackNumber))
	}
	if params.Tags.DiscNumber > 0 {
		metaTags = append(metaTags, "disc="+strconv.Itoa(params.Tags.DiscNumber))
	}
	if params.Tags.TrackID != "" {
		metaTags = append(metaTags, "comment="+params.Tags.TrackID)
	}

	metaArgs := make([]string, 0, len(metaTags)*2)
	for _, tag := range metaTags {
		metaArgs = append(metaArgs, "-metadata", tag)
	}

	tmpPath := outputPath + ".tmp." + params.Format

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
	}

	_, embedCover := coverFormats[params.Format]
	embedCover = embedCover && len(params.Cover) > 0

	var coverPath string
	if embedCover {
		coverFile, err := os.CreateTemp("", "cover-*.jpg")
		if nil != err {
			return fmt.Errorf("failed to create temporary cover file: %v", err)
		}
		coverPath = coverFile.Name()
		defer os.Remove(coverPath)

		if _, err := coverFile.Write(params.Cover); nil != err {
			return errors.Join(
				fmt.Errorf("failed to write temporary cover file: %v", err),
				coverFile.Close(),
			)
		}
		if err := coverFile.Close(); nil != err {
			return fmt.Errorf("failed to close temporary cover file: %v", err)
		}

		args = append(
			args,
			"-i", coverPath,
			"-map", "0:a",
			"-map", "1:v",
			"-c:v", "copy",
			"-disposition:v", "attached_pic",
		)
	}

	args = append(args, "-b:a", params.Bitrate, "-f", params.Format)
	args = append(args, metaArgs...)
	args = append(args, "-y", tmpPath)

	encodeCtx := ctx
	if f.deadline > 0 {
		var cancel context.CancelFunc
		encodeCtx, cancel = context.WithTimeout(ctx, f.deadline)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(encodeCtx, "ffmpeg", args...)
	cmd.Stdin = bytes.NewReader(raw)
	cmd.Stderr = &stderr

	if err := cmd.Run(); nil != err {
		if removeErr := os.Remove(tmpPath); nil != removeErr && !errors.Is(removeErr, os.ErrNotExist) {
			err = errors.Join(err, fmt.Errorf("failed to remove incomplete encode output: %v", removeErr))
		}

		return fmt.Errorf("failed to encode stream: %v: %s", err, stderr.String())
	}

	if err := os.Rename(tmpPath, outputPath); nil != err {
		return fmt.Errorf("failed to move encoded file into place: %v", err)
	}

	return nil
}
