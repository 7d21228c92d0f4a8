package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"tabletrelay/pkg/config"
	"tabletrelay/pkg/log"
)

const maxFrameSize = 16 << 20

// X11Source grabs an X11 display with ffmpeg. The process is started on the
// first NextFrame call and keeps running until Close. Only the latest frame
// is kept, so slow readers skip frames instead of queueing them.
type X11Source struct {
	cfg      config.CaptureConfig
	logger   *log.Logger
	maxFrame int

	startOnce sync.Once
	startErr  error
	firstOnce sync.Once
	first     chan struct{}
	done      chan struct{}

	mu      sync.Mutex
	cmd     *exec.Cmd
	latest  []byte
	exitErr error
	closed  bool
}

// NewX11Source returns an idle source.
func NewX11Source(cfg config.CaptureConfig, logger *log.Logger) *X11Source {
	return &X11Source{
		cfg:      cfg,
		logger:   logger,
		maxFrame: maxFrameSize,
		first:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// X11Factory returns a Factory creating one X11Source per call.
func X11Factory(cfg config.CaptureConfig, logger *log.Logger) Factory {
	return func() (Source, error) {
		return NewX11Source(cfg, logger), nil
	}
}

func (s *X11Source) args() []string {
	return []string{
		"-loglevel", "error",
		"-f", "x11grab",
		"-video_size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"-framerate", strconv.Itoa(s.cfg.FPS),
		"-i", s.cfg.Display,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", strconv.Itoa(s.cfg.Quality),
		"-",
	}
}

// NextFrame starts the capture if necessary and waits for the first frame.
func (s *X11Source) NextFrame(ctx context.Context) ([]byte, error) {
	s.startOnce.Do(func() { s.startErr = s.start() })
	if s.startErr != nil {
		return nil, s.startErr
	}

	select {
	case <-s.first:
	case <-s.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	select {
	case <-s.done:
		return nil, fmt.Errorf("%s stopped: %w", s.cfg.FFmpeg, s.exitErr)
	default:
	}
	return s.latest, nil
}

func (s *X11Source) start() error {
	cmd := exec.Command(s.cfg.FFmpeg, s.args()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("cmd.StdoutPipe(): %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.cfg.FFmpeg, err)
	}
	s.cmd = cmd

	s.logger.VerboseMsg("capture started: %s (pid %d)", s.cfg.Display, cmd.Process.Pid)
	go s.read(stdout)
	return nil
}

func (s *X11Source) read(stdout io.Reader) {
	defer close(s.done)

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, min(1<<20, s.maxFrame)), s.maxFrame)
	sc.Split(scanJPEG)

	for sc.Scan() {
		frame := bytes.Clone(sc.Bytes())

		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()

		s.firstOnce.Do(func() { close(s.first) })
	}

	scanErr := sc.Err()
	if scanErr != nil {
		// nobody drains stdout anymore, so ffmpeg would block forever
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.VerboseMsg("killing %s: %s", s.cfg.FFmpeg, err)
		}
	}
	waitErr := s.cmd.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case scanErr != nil:
		s.exitErr = scanErr
	case waitErr != nil:
		s.exitErr = waitErr
	default:
		s.exitErr = io.EOF
	}
	s.logger.VerboseMsg("capture ended: %s", s.exitErr)
}

// Close stops the capture process and waits for it to exit.
func (s *X11Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cmd := s.cmd
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing %s: %w", s.cfg.FFmpeg, err)
	}
	<-s.done
	return nil
}
