// Package recognizer runs one captured frame through the pre-filter, the
// classifier and the announcer.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Brownie44l1/currency-api/internal/model"
	"github.com/Brownie44l1/currency-api/internal/speech"
	"github.com/Brownie44l1/currency-api/internal/vision"
)

type Result struct {
	ID         string           `json:"id"`
	Prediction model.Prediction `json:"prediction"`
	Display    string           `json:"display"`
	Speech     string           `json:"speech"`
	Edges      int              `json:"edges"`
	Filtered   bool             `json:"filtered"`
	Duration   time.Duration    `json:"duration_ns"`
}

type Options struct {
	Preprocessor vision.Preprocessor
	// Filter is skipped when nil.
	Filter    *vision.EdgeFilter
	Threshold float32
	Cooldown  time.Duration
	Phraser   *speech.Phraser
	Announcer speech.Announcer
	Logger    *slog.Logger
}

type Recognizer struct {
	engine model.Engine
	labels model.Labels
	opts   Options

	busy     atomic.Bool
	announce sync.WaitGroup
	now      func() time.Time

	speakMu sync.Mutex
	hush    context.CancelFunc // interrupts the latest announcement
	spoken  chan struct{}      // closed once the latest announcement returns
}

func New(engine model.Engine, labels model.Labels, opts Options) (*Recognizer, error) {
	if engine == nil {
		return nil, fmt.Errorf("recognizer: nil engine")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("recognizer: no labels")
	}
	if want, got := engine.InputSize(), opts.Preprocessor.TensorSize(); want != got {
		return nil, &model.OpError{
			Op:   "recognizer.new",
			Kind: model.KindInvalidInput,
			Err:  fmt.Errorf("model expects %d input values but image size %d yields %d", want, opts.Preprocessor.Size, got),
		}
	}
	if out := engine.OutputSize(); out > len(labels) {
		return nil, &model.OpError{
			Op:   "recognizer.new",
			Kind: model.KindInvalidInput,
			Err:  fmt.Errorf("model has %d classes but only %d labels", out, len(labels)),
		}
	}
	if opts.Phraser == nil {
		opts.Phraser = speech.NewPhraser(nil)
	}
	if opts.Announcer == nil {
		opts.Announcer = speech.NopAnnouncer{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Recognizer{engine: engine, labels: labels, opts: opts, now: time.Now}, nil
}

func (r *Recognizer) Labels() model.Labels { return r.labels }
func (r *Recognizer) Threshold() float32   { return r.opts.Threshold }
func (r *Recognizer) InputSize() int       { return r.engine.InputSize() }
func (r *Recognizer) Busy() bool           { return r.busy.Load() }

// Recognize classifies one frame. Only one frame is processed at a time; a
// call made while another is running, or during the cooldown after a
// successful one, fails with model.ErrBusy.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image, rotation int) (*Result, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, &model.OpError{Op: "recognizer.recognize", Kind: model.KindBusy, Err: model.ErrBusy}
	}
	done := false
	defer func() { r.release(done) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := r.now()
	res := &Result{ID: uuid.NewString()}
	log := r.opts.Logger.With("capture_id", res.ID)

	img = vision.Rotate(img, rotation)

	if r.opts.Filter != nil {
		ok, edges := r.opts.Filter.Plausible(img)
		res.Edges = edges
		if !ok {
			log.Debug("recognizer.filtered", "edges", edges, "min_edges", r.opts.Filter.MinEdges)
			res.Filtered = true
			res.Prediction = model.NoCurrency()
			r.finish(ctx, log, res, start)
			done = true
			return res, nil
		}
	}

	input, err := r.opts.Preprocessor.Tensor(img)
	if err != nil {
		return nil, &model.OpError{Op: "recognizer.preprocess", Kind: model.KindInvalidInput, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pred, err := r.predict(input)
	if err != nil {
		log.Error("recognizer.inference_failed", "err", err)
		return nil, err
	}
	res.Prediction = pred
	r.finish(ctx, log, res, start)
	done = true
	return res, nil
}

// Predict classifies a tensor the caller already prepared. It bypasses the
// pre-filter and the busy guard.
func (r *Recognizer) Predict(ctx context.Context, input []float32) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := r.now()
	pred, err := r.predict(input)
	if err != nil {
		return nil, err
	}
	res := &Result{
		ID:         uuid.NewString(),
		Prediction: pred,
		Display:    r.opts.Phraser.Display(pred),
		Speech:     r.opts.Phraser.Speech(pred),
		Duration:   r.now().Sub(start),
	}
	return res, nil
}

func (r *Recognizer) predict(input []float32) (model.Prediction, error) {
	scores, err := r.engine.Infer(input)
	if err != nil {
		return model.Prediction{}, err
	}
	return model.Decode(scores, r.labels, r.opts.Threshold)
}

func (r *Recognizer) finish(ctx context.Context, log *slog.Logger, res *Result, start time.Time) {
	res.Display = r.opts.Phraser.Display(res.Prediction)
	res.Speech = r.opts.Phraser.Speech(res.Prediction)
	res.Duration = r.now().Sub(start)

	log.Info("recognizer.done",
		"label", res.Prediction.Label,
		"confidence", res.Prediction.Confidence,
		"recognized", res.Prediction.Recognized,
		"filtered", res.Filtered,
		"edges", res.Edges,
		"duration", res.Duration,
	)

	r.speak(ctx, log, res.Speech)
}

// speak reads text in the background. A newer result interrupts the one
// being read and waits for it to stop, so at most one announcement runs.
func (r *Recognizer) speak(ctx context.Context, log *slog.Logger, text string) {
	r.speakMu.Lock()
	defer r.speakMu.Unlock()

	if r.hush != nil {
		r.hush()
	}
	prev := r.spoken
	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	r.hush, r.spoken = cancel, done

	r.announce.Add(1)
	go func() {
		defer r.announce.Done()
		defer close(done)
		defer cancel()

		if prev != nil {
			<-prev
		}
		if actx.Err() != nil {
			log.Debug("recognizer.announce_skipped")
			return
		}
		err := r.opts.Announcer.Announce(actx, text)
		switch {
		case errors.Is(err, context.Canceled):
			log.Debug("recognizer.announce_interrupted")
		case err != nil:
			log.Warn("recognizer.announce_failed", "err", err)
		}
	}()
}

func (r *Recognizer) release(cool bool) {
	if !cool || r.opts.Cooldown <= 0 {
		r.busy.Store(false)
		return
	}
	time.AfterFunc(r.opts.Cooldown, func() { r.busy.Store(false) })
}

// Wait blocks until pending announcements have finished.
func (r *Recognizer) Wait() {
	r.announce.Wait()
}

func (r *Recognizer) Close() {
	r.Wait()
	r.engine.Close()
}
