package archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"
)

// Kind distinguishes the three ledger record families.
type Kind string

const (
	KindTrack  Kind = "track"
	KindAlbum  Kind = "album"
	KindArtist Kind = "artist"
)

var (
	tracksBucketName  = []byte("tracks")
	albumsBucketName  = []byte("albums")
	artistsBucketName = []byte("artists")

	ErrUnknownKind = errors.New("unknown ledger entry kind")
)

func (k Kind) bucketName() ([]byte, error) {
	switch k {
	case KindTrack:
		return tracksBucketName, nil
	case KindAlbum:
		return albumsBucketName, nil
	case KindArtist:
		return artistsBucketName, nil
	default:
		return nil, ErrUnknownKind
	}
}

type entry struct {
	OutputPath string `json:"output_path,omitempty"`
	Completed  bool   `json:"completed"`
}

// Archive is the persistent download ledger. An entity whose entry is
// completed is never fetched again. Every mutation runs in its own
// bbolt write transaction, so each entity commit is serialized and
// durable on its own.
type Archive struct {
	db *bbolt.DB
}

func Open(path string) (*Archive, error) {
	opts := &bbolt.Options{ //nolint:exhaustruct
		NoFreelistSync: true,
		ReadOnly:       false,
		Timeout:        1 * time.Second,
		NoGrowSync:     false,
		FreelistType:   bbolt.FreelistArrayType,
	}
	db, err := bbolt.Open(path, 0o600, opts)
	if nil != err {
		return nil, fmt.Errorf("failed to open ledger database: %v", err)
	}

	if err := createBuckets(db); nil != err {
		return nil, fmt.Errorf("failed to create ledger buckets: %v", err)
	}

	return &Archive{db: db}, nil
}

func createBuckets(db *bbolt.DB) error {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{tracksBucketName, albumsBucketName, artistsBucketName} {
			if _, err := tx.CreateBucketIfNotExists(name); nil != err {
				return fmt.Errorf("failed to create %s bucket: %v", string(name), err)
			}
		}

		return nil
	})
	if nil != err {
		return fmt.Errorf("failed to create buckets: %v", err)
	}

	return nil
}

func (a *Archive) Close() error {
	if err := a.db.Close(); nil != err {
		return fmt.Errorf("failed to close ledger database: %v", err)
	}

	return nil
}

// HasCompleted reports whether the full retrieval pipeline has already
// succeeded for the entity. A missing or incomplete entry returns false.
func (a *Archive) HasCompleted(id string, kind Kind) (bool, error) {
	bucketName, err := kind.bucketName()
	if nil != err {
		return false, err
	}

	var completed bool
	err = a.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(id))
		if v == nil {
			return nil
		}

		var e entry
		if err := json.Unmarshal(v, &e); nil != err {
			return fmt.Errorf("failed to decode %s ledger entry %s: %v", kind, id, err)
		}
		completed = e.Completed

		return nil
	})
	if nil != err {
		return false, fmt.Errorf("failed to read ledger entry: %v", err)
	}

	return completed, nil
}

// MarkCompleted records a successful retrieval. outputPath is only
// meaningful for track entries and may be empty for collections.
func (a *Archive) MarkCompleted(id string, kind Kind, outputPath string) error {
	bucketName, err := kind.bucketName()
	if nil != err {
		return err
	}

	v, err := json.Marshal(entry{OutputPath: outputPath, Completed: true})
	if nil != err {
		return fmt.Errorf("failed to encode %s ledger entry %s: %v", kind, id, err)
	}

	err = a.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketName).Put([]byte(id), v); nil != err {
			return fmt.Errorf("failed to store %s ledger entry %s: %v", kind, id, err)
		}

		return nil
	})
	if nil != err {
		return fmt.Errorf("failed to write ledger entry: %v", err)
	}

	return nil
}

// TrackPath returns the recorded output path of a completed track, or
// an empty string when the track is unknown to the ledger.
func (a *Archive) TrackPath(id string) (string, error) {
	var path string
	err := a.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(tracksBucketName).Get([]byte(id))
		if v == nil {
			return nil
		}

		var e entry
		if err := json.Unmarshal(v, &e); nil != err {
			return fmt.Errorf("failed to decode track ledger entry %s: %v", id, err)
		}
		path = e.OutputPath

		return nil
	})
	if nil != err {
		return "", fmt.Errorf("failed to read ledger entry: %v", err)
	}

	return path, nil
}
