package pipeline

import (
	"fmt"
	"time"

	"github.com/liamcoop/homeloan/application"
	"github.com/liamcoop/homeloan/internal/logger"
	"github.com/liamcoop/homeloan/internal/metrics"
)

// Verdict is the user-facing outcome of a prediction.
type Verdict string

const (
	Eligible    Verdict = "Eligible"
	NotEligible Verdict = "Not Eligible"
)

// Classifier produces a binary label for a feature row. *Pipeline implements it.
type Classifier interface {
	Classify(row application.Row) (int, error)
}

// Predictor maps validated applications to verdicts.
type Predictor struct {
	classifier Classifier
	cache      VerdictCache
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithCache memoises verdicts in c.
func WithCache(c VerdictCache) Option {
	return func(p *Predictor) { p.cache = c }
}

// NewPredictor wraps a classifier.
func NewPredictor(c Classifier, opts ...Option) *Predictor {
	p := &Predictor{classifier: c}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict classifies app. Label 1 is Eligible, anything else Not Eligible.
// Failures inside the classifier come back as *PredictionError.
func (p *Predictor) Predict(app *application.Application) (verdict Verdict, err error) {
	start := time.Now()
	defer func() {
		metrics.PredictionDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.PredictionErrors.Inc()
			return
		}
		metrics.Predictions.WithLabelValues(string(verdict)).Inc()
	}()

	if app == nil {
		return "", &PredictionError{Err: fmt.Errorf("%w: nil application", ErrRowShape)}
	}

	row := app.Row()
	key := row.Fingerprint()
	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			return v, nil
		}
	}

	label, err := p.classify(row)
	if err != nil {
		logger.Warn("prediction failed", "error", err)
		return "", &PredictionError{Err: err}
	}

	verdict = NotEligible
	if label == 1 {
		verdict = Eligible
	}

	if p.cache != nil {
		p.cache.Set(key, verdict)
	}
	logger.Debug("prediction", "verdict", verdict, "label", label)
	return verdict, nil
}

// classify converts a panic inside the classifier into an error.
func (p *Predictor) classify(row application.Row) (label int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return p.classifier.Classify(row)
}
