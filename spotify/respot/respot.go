// Package respot adapts a librespot-compatible helper process to the
// session contracts. The helper owns the proprietary wire protocol;
// this side only does process plumbing. Requests and response headers
// are line-delimited JSON on stdio, and a stream response header is
// followed by exactly Size raw payload bytes.
package respot

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/goccy/go-json"

	"github.com/xeptore/zpotify/spotify/auth"
	"github.com/xeptore/zpotify/spotify/types"
)

// credentialsArtifact is where the helper writes the credentials blob
// of a fresh username/password login, mirroring librespot's cache
// behavior.
const credentialsArtifact = "credentials.json"

type Connector struct {
	binPath string
}

func NewConnector(binPath string) *Connector {
	return &Connector{binPath: binPath}
}

func (c *Connector) ArtifactPath() string {
	return credentialsArtifact
}

func (c *Connector) FromUserPass(ctx context.Context, username, password string) (auth.Session, error) {
	return c.start(ctx, request{ //nolint:exhaustruct
		Op:       "login",
		Username: username,
		Password: password,
	})
}

func (c *Connector) FromStoredCredentials(ctx context.Context, credentialsPath string) (auth.Session, error) {
	return c.start(ctx, request{ //nolint:exhaustruct
		Op:          "open",
		Credentials: credentialsPath,
	})
}

func (c *Connector) start(ctx context.Context, handshake request) (auth.Session, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}

	cmd := exec.Command(c.binPath)

	stdin, err := cmd.StdinPipe()
	if nil != err {
		return nil, fmt.Errorf("failed to open helper stdin pipe: %v", err)
	}

	stdout, err := cmd.StdoutPipe()
	if nil != err {
		return nil, fmt.Errorf("failed to open helper stdout pipe: %v", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); nil != err {
		return nil, fmt.Errorf("failed to start helper process %s: %v", c.binPath, err)
	}

	s := &session{
		mux:    sync.Mutex{},
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		stderr: &stderr,
	}

	if _, err := s.roundTrip(handshake); nil != err {
		killErr := cmd.Process.Kill()
		waitErr := cmd.Wait()
		if nil != killErr || nil != waitErr {
			return nil, errors.Join(err, killErr, waitErr)
		}

		return nil, err
	}

	return s, nil
}

type request struct {
	Op          string `json:"op"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	Credentials string `json:"credentials,omitempty"`
	Scope       string `json:"scope,omitempty"`
	Key         string `json:"key,omitempty"`
	ID          string `json:"id,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Quality     string `json:"quality,omitempty"`
}

type response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Token string `json:"token,omitempty"`
	Value string `json:"value,omitempty"`
	Size  int    `json:"size,omitempty"`
}

// session drives one helper process. Requests are serialized on the
// mutex; an open stream holds it until the stream is closed since the
// payload bytes share the helper's stdout.
type session struct {
	mux    sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *bytes.Buffer
}

func (s *session) roundTrip(req request) (response, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	return s.roundTripLocked(req)
}

func (s *session) roundTripLocked(req request) (response, error) {
	line, err := json.Marshal(req)
	if nil != err {
		return response{}, fmt.Errorf("failed to encode helper request: %v", err) //nolint:exhaustruct
	}

	if _, err := s.stdin.Write(append(line, '\n')); nil != err {
		return response{}, fmt.Errorf("failed to write helper request: %v", err) //nolint:exhaustruct
	}

	respLine, err := s.stdout.ReadBytes('\n')
	if nil != err {
		return response{}, fmt.Errorf( //nolint:exhaustruct
			"failed to read helper response: %v: %s",
			err,
			s.stderr.String(),
		)
	}

	var resp response
	if err := json.Unmarshal(respLine, &resp); nil != err {
		return response{}, fmt.Errorf("failed to decode helper response: %v", err) //nolint:exhaustruct
	}

	if !resp.OK {
		switch resp.Error {
		case "unauthorized":
			return response{}, auth.ErrUnauthenticated //nolint:exhaustruct
		case "wrong-kind":
			return response{}, auth.ErrWrongContentKind //nolint:exhaustruct
		default:
			return response{}, fmt.Errorf("helper rejected %s request: %s", req.Op, resp.Error) //nolint:exhaustruct
		}
	}

	return resp, nil
}

func (s *session) MintToken(ctx context.Context, scope string) (string, error) {
	if err := ctx.Err(); nil != err {
		return "", err
	}

	resp, err := s.roundTrip(request{Op: "token", Scope: scope}) //nolint:exhaustruct
	if nil != err {
		return "", err
	}

	return resp.Token, nil
}

func (s *session) UserAttribute(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); nil != err {
		return "", err
	}

	resp, err := s.roundTrip(request{Op: "attr", Key: key}) //nolint:exhaustruct
	if nil != err {
		return "", err
	}

	return resp.Value, nil
}

func (s *session) OpenTrackStream(ctx context.Context, id string, quality types.Quality) (auth.Stream, error) {
	return s.openStream(ctx, id, "track", quality)
}

func (s *session) OpenEpisodeStream(ctx context.Context, id string, quality types.Quality) (auth.Stream, error) {
	return s.openStream(ctx, id, "episode", quality)
}

func (s *session) openStream(ctx context.Context, id, kind string, quality types.Quality) (auth.Stream, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}

	s.mux.Lock()

	resp, err := s.roundTripLocked(request{ //nolint:exhaustruct
		Op:      "stream",
		ID:      id,
		Kind:    kind,
		Quality: quality.String(),
	})
	if nil != err {
		s.mux.Unlock()

		return nil, err
	}

	return &stream{
		total:     resp.Size,
		remaining: resp.Size,
		r:         s.stdout,
		release:   s.mux.Unlock,
	}, nil
}

func (s *session) Close() error {
	if _, err := s.roundTrip(request{Op: "close"}); nil != err { //nolint:exhaustruct
		return errors.Join(err, s.stdin.Close(), s.cmd.Wait())
	}

	if err := s.stdin.Close(); nil != err {
		return errors.Join(fmt.Errorf("failed to close helper stdin: %v", err), s.cmd.Wait())
	}

	if err := s.cmd.Wait(); nil != err {
		return fmt.Errorf("helper process exited with failure: %v: %s", err, s.stderr.String())
	}

	return nil
}

// stream reads the payload bytes that follow a stream response header.
// Closing drains any unread payload so the session stays usable.
type stream struct {
	total     int
	remaining int
	r         io.Reader
	release   func()
}

func (s *stream) TotalSize() int {
	return s.total
}

func (s *stream) Read(p []byte) (int, error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}

	if len(p) > s.remaining {
		p = p[:s.remaining]
	}

	n, err := s.r.Read(p)
	s.remaining -= n

	return n, err
}

func (s *stream) Close() error {
	defer s.release()

	if s.remaining > 0 {
		if _, err := io.CopyN(io.Discard, s.r, int64(s.remaining)); nil != err {
			return fmt.Errorf("failed to drain unread stream payload: %v", err)
		}
		s.remaining = 0
	}

	return nil
}
