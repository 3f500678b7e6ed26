package main

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// ffplaySpeaker plays little-endian PCM16 mono by piping it into an
// ffplay subprocess. This avoids linking an output-device backend into
// the client; ffplay handles buffering and the audio device.
type ffplaySpeaker struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func newFFplaySpeaker(sampleRateHz int) (*ffplaySpeaker, error) {
	cmd := exec.Command("ffplay",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRateHz),
		"-ch_layout", "mono",
		"-nodisp",
		"-loglevel", "quiet",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffplay stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffplay (is ffmpeg installed?): %w", err)
	}
	return &ffplaySpeaker{cmd: cmd, stdin: stdin}, nil
}

// Write implements io.Writer.
func (s *ffplaySpeaker) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Close stops playback and reaps the subprocess.
func (s *ffplaySpeaker) Close() error {
	_ = s.stdin.Close()
	return s.cmd.Wait()
}
