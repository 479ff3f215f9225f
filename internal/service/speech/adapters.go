package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrNotSupported means the host has no speech capability of the requested kind.
	ErrNotSupported = errors.New("speech: not supported")
	// ErrRecognition means recognition ran but produced no usable transcript.
	ErrRecognition = errors.New("speech: recognition failed")
)

// Synthesizer speaks text aloud.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Recognizer listens once and yields the transcript.
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, text string) error

func (f SynthesizerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context) (string, error)

func (f RecognizerFunc) Listen(ctx context.Context) (string, error) { return f(ctx) }

// Unsupported is the capability of a host without speech support.
type Unsupported struct{}

func (Unsupported) Speak(context.Context, string) error     { return ErrNotSupported }
func (Unsupported) Listen(context.Context) (string, error) { return "", ErrNotSupported }

var bulletReplacer = strings.NewReplacer("•", "", "-", "", "*", "")

// CleanForSpeech strips bullet markers so they are not read out.
func CleanForSpeech(text string) string {
	return bulletReplacer.Replace(text)
}

// CommandSynthesizer pipes text into an external TTS program such as
// `espeak` or `say`, passing it on stdin.
type CommandSynthesizer struct {
	Command string
	Args    []string
}

// NewCommandSynthesizer parses a whitespace separated command line.
// An empty command line yields Unsupported.
func NewCommandSynthesizer(commandLine string) Synthesizer {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return Unsupported{}
	}
	return &CommandSynthesizer{Command: fields[0], Args: fields[1:]}
}

func (c *CommandSynthesizer) Speak(ctx context.Context, text string) error {
	path, err := exec.LookPath(c.Command)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotSupported, c.Command)
	}
	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w (%s)", c.Command, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
