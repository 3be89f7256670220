package cli

import (
	"fmt"
	"log/slog"

	"github.com/Brownie44l1/currency-api/internal/config"
	"github.com/Brownie44l1/currency-api/internal/model"
	"github.com/Brownie44l1/currency-api/internal/recognizer"
	"github.com/Brownie44l1/currency-api/internal/speech"
	"github.com/Brownie44l1/currency-api/internal/vision"
)

// openEngine is replaced in tests so no native runtime is needed.
var openEngine = model.Open

func buildRecognizer(cfg *config.Config, log *slog.Logger) (*recognizer.Recognizer, error) {
	labels, err := model.LoadLabels(cfg.Model.Labels)
	if err != nil {
		return nil, err
	}

	engine, err := openEngine(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}

	pre, err := preprocessorFor(cfg, engine)
	if err != nil {
		engine.Close()
		return nil, err
	}
	if err := model.CheckClasses(engine, labels); err != nil {
		engine.Close()
		return nil, err
	}

	opts := recognizer.Options{
		Preprocessor: pre,
		Threshold:    cfg.Model.Threshold,
		Cooldown:     cfg.Capture.Cooldown,
		Phraser:      speech.NewPhraser(cfg.Speech.Names),
		Logger:       log,
	}
	if cfg.Filter.Enabled {
		f := cfg.EdgeFilter()
		opts.Filter = &f
	}
	if cfg.Speech.Enabled {
		opts.Announcer = speech.NewCommandAnnouncer(speech.Config{
			Command: cfg.Speech.Command,
			Voice:   cfg.Speech.Voice,
			Rate:    cfg.Speech.Rate,
			Pitch:   cfg.Speech.Pitch,
			Repeat:  cfg.Speech.Repeat,
			Pause:   cfg.Speech.Pause,
		}, log)
	}

	r, err := recognizer.New(engine, labels, opts)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("build recognizer: %w", err)
	}

	log.Info("recognizer.ready",
		"model", cfg.Model.Path,
		"labels", len(labels),
		"image_size", pre.Size,
		"layout", pre.Layout,
		"threshold", cfg.Model.Threshold,
		"filter", cfg.Filter.Enabled,
		"speech", cfg.Speech.Enabled,
	)
	return r, nil
}

// preprocessorFor fills in the image size and layout the config leaves unset
// from what the engine reports about its input.
func preprocessorFor(cfg *config.Config, engine model.Engine) (vision.Preprocessor, error) {
	pre := cfg.Preprocessor()
	if cfg.Model.ImageSize > 0 && cfg.Model.Layout != "" {
		return pre, nil
	}

	g, err := model.GeometryOf(engine)
	if err != nil {
		return pre, fmt.Errorf("set model.image_size and model.layout: %w", err)
	}
	if cfg.Model.ImageSize == 0 {
		pre.Size = g.Size
	}
	if cfg.Model.Layout == "" {
		if pre.Layout, err = vision.ParseLayout(g.Layout); err != nil {
			return pre, fmt.Errorf("model metadata: %w", err)
		}
	}
	return pre, nil
}
