// Package ambient plays an optional looping soundtrack alongside the particle
// field. It follows the same visibility lifecycle: paused while hidden.
package ambient

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/pkg/errors"
)

type decodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// decoderFor picks a decoder by file extension.
func decoderFor(path string) (decodeFunc, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(rc) }, nil
	case ".mp3":
		return func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(rc) }, nil
	case ".flac":
		return func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return flac.Decode(rc) }, nil
	default:
		return nil, errors.Errorf("unsupported soundtrack type %q", ext)
	}
}

var (
	speakerOnce sync.Once
	speakerErr  error
)

// Soundtrack is a decoded audio file looped through a pausable control.
type Soundtrack struct {
	path     string
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	log      *slog.Logger
}

// Open decodes path. Nothing plays until Play is called.
func Open(path string, logger *slog.Logger) (*Soundtrack, error) {
	decode, err := decoderFor(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open soundtrack %s", path)
	}

	streamer, format, err := decode(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "decode soundtrack %s", path)
	}

	return &Soundtrack{
		path:     path,
		file:     f,
		streamer: streamer,
		format:   format,
		log:      logger.With("component", "soundtrack"),
	}, nil
}

// Duration is the length of one loop.
func (s *Soundtrack) Duration() time.Duration {
	return s.format.SampleRate.D(s.streamer.Len())
}

// Play starts the loop. The speaker is initialized once per process with the
// first track's sample rate.
func (s *Soundtrack) Play() error {
	if s.ctrl != nil {
		return nil
	}

	speakerOnce.Do(func() {
		speakerErr = speaker.Init(s.format.SampleRate, s.format.SampleRate.N(time.Second/20))
	})
	if speakerErr != nil {
		return errors.Wrap(speakerErr, "init speaker")
	}

	s.ctrl = &beep.Ctrl{Streamer: beep.Loop(-1, s.streamer)}
	speaker.Play(s.ctrl)
	s.log.Info("soundtrack playing", "path", s.path, "loop", s.Duration())
	return nil
}

// SetPaused pauses or resumes playback. A track that is not playing ignores it.
func (s *Soundtrack) SetPaused(paused bool) {
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = paused
	speaker.Unlock()
}

// Paused reports whether playback is currently held.
func (s *Soundtrack) Paused() bool {
	if s.ctrl == nil {
		return false
	}
	speaker.Lock()
	defer speaker.Unlock()
	return s.ctrl.Paused
}

// Close stops playback and releases the file.
func (s *Soundtrack) Close() error {
	if s.ctrl != nil {
		speaker.Lock()
		speaker.Clear()
		speaker.Unlock()
		s.ctrl = nil
	}
	err := s.streamer.Close()
	if cerr := s.file.Close(); err == nil && cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}
