package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CredentialsFile is the configured location of the persisted
// credentials blob. The wire layer writes its artifact into the working
// directory, so a successful login moves that artifact into place here.
type CredentialsFile struct {
	path string
}

func CredentialsFileFrom(path string) CredentialsFile {
	return CredentialsFile{path: path}
}

func (f CredentialsFile) Path() string {
	return f.path
}

func (f CredentialsFile) EnsureParentDir() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); nil != err {
		return fmt.Errorf("failed to create credentials directory: %v", err)
	}

	return nil
}

func (f CredentialsFile) Exists() (bool, error) {
	if _, err := os.Stat(f.path); nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to stat credentials file: %v", err)
	}

	return true, nil
}

func (f CredentialsFile) Remove() error {
	if err := os.Remove(f.path); nil != err && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials file: %v", err)
	}

	return nil
}

// InstallArtifact moves the freshly written credentials artifact into
// the configured location, creating parent directories as needed.
func (f CredentialsFile) InstallArtifact(artifactPath string) error {
	if err := f.EnsureParentDir(); nil != err {
		return err
	}

	if err := os.Rename(artifactPath, f.path); nil != err {
		return fmt.Errorf("failed to move credentials artifact into place: %v", err)
	}

	return nil
}

// RemoveStrayArtifact deletes a leftover credentials artifact from the
// working directory. A session rebuild reads the configured file, so a
// stray artifact is only stale noise.
func (f CredentialsFile) RemoveStrayArtifact(artifactPath string) error {
	if artifactPath == f.path {
		return nil
	}

	if err := os.Remove(artifactPath); nil != err && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stray credentials artifact: %v", err)
	}

	return nil
}

// Caller tells the filename generator which pipeline requested the
// download, as each one labels files differently.
type Caller string

const (
	CallerAlbum    Caller = "album"
	CallerPlaylist Caller = "playlist"
	CallerShow     Caller = "show"
	CallerEpisode  Caller = "episode"
	CallerNone     Caller = ""
)

const maxFilenameLength = 75

var sanitizeReplacer = strings.NewReplacer(
	`\`, "",
	"/", "",
	":", "",
	"*", "",
	"?", "",
	"'", "",
	"<", "",
	">", "",
	`"`, "",
	"|", "-",
)

// Sanitize strips characters that are unsafe in file and directory
// names. The pipe character becomes a dash, everything else is dropped.
func Sanitize(value string) string {
	return sanitizeReplacer.Replace(value)
}

// Zfill left-pads a number with zeros to two digits.
func Zfill(value int) string {
	s := strconv.Itoa(value)
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}

	return s
}

func shortenFilename(filename, artistName, audioName string) string {
	if len(filename) > maxFilenameLength && len(artistName) > maxFilenameLength/2 {
		return strings.ReplaceAll(filename, artistName, "Various Artists")
	}

	if len(audioName) > maxFilenameLength {
		return strings.ReplaceAll(filename, audioName, audioName[:maxFilenameLength])
	}

	return filename
}

// TrackFilename builds the output filename stem for one track or
// episode. The extension is appended by the caller.
func TrackFilename(
	caller Caller,
	audioName string,
	audioNumber int,
	artistName string,
	albumName string,
	albumInFilename bool,
) string {
	var filename string
	switch caller {
	case CallerAlbum:
		filename = fmt.Sprintf("%d. %s", audioNumber, audioName)
		if albumInFilename {
			filename = albumName + " " + filename
		}
	case CallerPlaylist:
		filename = audioName
		if albumInFilename {
			filename = albumName + " - " + filename
		}
		filename = artistName + " - " + filename
	case CallerShow:
		filename = fmt.Sprintf("%d. %s", audioNumber, audioName)
	case CallerEpisode:
		filename = fmt.Sprintf("%s - %d. %s", artistName, audioNumber, audioName)
	case CallerNone:
		filename = artistName + " - " + audioName
	default:
		filename = artistName + " - " + audioName
	}

	filename = shortenFilename(filename, artistName, audioName)

	return Sanitize(filename)
}

// AlbumDirName labels an album directory with its release date so
// albums sort chronologically on disk.
func AlbumDirName(releaseDate, albumName string) string {
	return Sanitize(releaseDate + " - " + albumName)
}
