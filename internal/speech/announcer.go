package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// Announcer reads a sentence aloud.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

type NopAnnouncer struct{}

func (NopAnnouncer) Announce(context.Context, string) error { return nil }

// Runner executes one synthesizer invocation. It is swapped out in tests.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

type Config struct {
	Command string
	Voice   string
	Rate    int // words per minute
	Pitch   int // 0-99
	Repeat  int
	Pause   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Command: "espeak-ng",
		Voice:   "en-us",
		Rate:    150,
		Pitch:   55,
		Repeat:  2,
		Pause:   1500 * time.Millisecond,
	}
}

// CommandAnnouncer speaks through an espeak-compatible command line
// synthesizer, repeating each announcement after a short pause.
type CommandAnnouncer struct {
	cfg    Config
	run    Runner
	logger *slog.Logger
}

func NewCommandAnnouncer(cfg Config, logger *slog.Logger) *CommandAnnouncer {
	if cfg.Command == "" {
		cfg.Command = DefaultConfig().Command
	}
	if cfg.Repeat < 1 {
		cfg.Repeat = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandAnnouncer{cfg: cfg, run: execRunner, logger: logger}
}

// WithRunner replaces the process runner.
func (a *CommandAnnouncer) WithRunner(r Runner) *CommandAnnouncer {
	a.run = r
	return a
}

func (a *CommandAnnouncer) args(text string) []string {
	var args []string
	if a.cfg.Voice != "" {
		args = append(args, "-v", a.cfg.Voice)
	}
	if a.cfg.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(a.cfg.Rate))
	}
	if a.cfg.Pitch > 0 {
		args = append(args, "-p", strconv.Itoa(a.cfg.Pitch))
	}
	return append(args, text)
}

func (a *CommandAnnouncer) Announce(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	for i := 0; i < a.cfg.Repeat; i++ {
		if i > 0 && a.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.cfg.Pause):
			}
		}
		if err := a.run(ctx, a.cfg.Command, a.args(text)...); err != nil {
			return err
		}
		a.logger.Debug("speech.spoken", "text", text, "pass", i+1)
	}
	return nil
}
