package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-trustshield/internal/aligner"
	"go-trustshield/internal/client"
	apperrors "go-trustshield/internal/errors"
	"go-trustshield/internal/intake"
	"go-trustshield/internal/logger"
	"go-trustshield/internal/normalize"
	"go-trustshield/internal/observer"
	"go-trustshield/internal/strategy"
	"go-trustshield/internal/timeline"
	"go-trustshield/pkg/models"
)

// Analyzer drives one scan workflow. It owns its collector, at most one
// in-flight session and the latest result; analyzers share no state.
type Analyzer struct {
	kind      models.Kind
	backend   client.Backend
	strategy  strategy.SubmissionStrategy
	collector *intake.Collector
	publisher observer.Subject
	aligner   *aligner.Aligner
	opts      Options
	log       *logrus.Entry

	mu         sync.Mutex
	session    Session
	result     *models.CanonicalResult
	generation uint64
	timeline   *timeline.Timeline
	inflight   chan struct{}

	// document view state
	view      aligner.View
	rendering *cachedRendering
}

// New creates an analyzer of kind. al is only used by the document analyzer
// and may be nil.
func New(kind models.Kind, backend client.Backend, collector *intake.Collector, publisher observer.Subject, al *aligner.Aligner, opts Options) *Analyzer {
	if publisher == nil {
		publisher = observer.NewEventPublisher()
	}
	submission, err := strategy.For(kind)
	if err != nil {
		logger.WithError(err).Error("Analyzer created without a submission strategy")
	}
	a := &Analyzer{
		kind:      kind,
		backend:   backend,
		strategy:  submission,
		collector: collector,
		publisher: publisher,
		aligner:   al,
		opts:      opts,
		log:       logger.ForAnalyzer(string(kind)),
		session:   Session{State: StateIdle},
		view:      aligner.ViewOriginal,
	}
	collector.OnReset(a.discard)
	return a
}

func (a *Analyzer) Kind() models.Kind {
	return a.kind
}

func (a *Analyzer) Collector() *intake.Collector {
	return a.collector
}

// Submit starts a session for the pending request and returns its ID. The
// outbound call runs in the background; Wait blocks until it has settled.
// An incomplete request returns ErrNotSubmittable and a submission while
// another is in flight returns ErrBusy; neither changes any state.
func (a *Analyzer) Submit(ctx context.Context) (string, error) {
	pending := a.collector.Pending()
	if !pending.Submittable(a.kind) {
		err := apperrors.NewNotSubmittableError(string(a.kind))
		a.reject(ctx, err)
		return "", err
	}

	a.mu.Lock()
	if a.session.State.InFlight() {
		a.mu.Unlock()
		err := apperrors.NewBusyError(string(a.kind))
		a.reject(ctx, err)
		return "", err
	}

	id := uuid.NewString()
	gen := a.generation
	tl := timeline.New(timeline.ForKind(a.kind, pending.URL), a.opts.StageInterval, a.onStage(ctx, id))
	done := make(chan struct{})

	a.session = Session{ID: id, State: StateSubmitting, StartedAt: time.Now()}
	a.result = nil
	a.rendering = nil
	a.timeline = tl
	a.inflight = done
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"session_id": id,
		"has_file":   pending.Attachment != nil,
		"strategy":   a.strategyName(),
	}).Debug("Submitting request")
	a.publisher.NotifyObservers(ctx, observer.SessionEvent{
		EventType: observer.SessionStarted,
		Analyzer:  a.kind,
		SessionID: id,
	})

	tl.Start()
	go a.run(context.WithoutCancel(ctx), gen, id, pending, tl, done)
	return id, nil
}

// run issues the single outbound call and publishes its outcome
func (a *Analyzer) run(ctx context.Context, gen uint64, id string, pending intake.PendingRequest, tl *timeline.Timeline, done chan struct{}) {
	defer close(done)

	in := normalize.Input{
		TargetURL: pending.URL,
		Query:     pending.Query,
	}
	if pending.Attachment != nil {
		in.OriginalRef = pending.Attachment.PreviewRef
	}

	raw, err := a.call(ctx, pending)
	var result *models.CanonicalResult
	if err == nil {
		result, err = normalize.Normalize(a.kind, raw, in)
	}
	stages := tl.Stop()

	if err != nil {
		if !a.markFailed(ctx, gen, id, err) {
			return
		}
		result, err = normalize.Fallback(a.kind, in, err.Error())
		if err != nil {
			// Only reachable for a kind without a fallback payload
			a.log.WithError(err).Error("Fallback normalization failed")
			return
		}
		if !a.opts.SurfaceFallback {
			result.Source = models.SourceBackend
			result.FailureReason = ""
		}
	}
	result.CompletedAt = time.Now()

	a.mu.Lock()
	if a.generation != gen || a.session.ID != id {
		a.mu.Unlock()
		a.log.WithField("session_id", id).Debug("Discarding result of abandoned session")
		return
	}
	if label := tl.DoneLabel(); label != "" {
		stages = append(stages, label)
	}
	a.session.State = StateCompleted
	if result.Source == models.SourceFallback {
		a.session.State = StateCompletedFallback
	}
	a.session.Stage = ""
	a.session.Log = stages
	a.session.FinishedAt = result.CompletedAt
	a.result = result
	a.timeline = nil
	a.rendering = nil
	duration := a.session.Duration()
	a.mu.Unlock()

	a.publisher.NotifyObservers(ctx, observer.SessionEvent{
		EventType:      observer.SessionCompleted,
		Analyzer:       a.kind,
		SessionID:      id,
		Verdict:        result.DisplayVerdict(),
		Source:         result.Source,
		ProcessingTime: duration,
	})
}

// markFailed records a failed call; it reports false when the session was abandoned
func (a *Analyzer) markFailed(ctx context.Context, gen uint64, id string, cause error) bool {
	a.mu.Lock()
	if a.generation != gen || a.session.ID != id {
		a.mu.Unlock()
		return false
	}
	a.session.State = StateFailed
	a.session.FailureReason = cause.Error()
	a.mu.Unlock()

	a.publisher.NotifyObservers(ctx, observer.SessionEvent{
		EventType:    observer.SessionFailed,
		Analyzer:     a.kind,
		SessionID:    id,
		ErrorMessage: cause.Error(),
	})
	return true
}

// call issues the outbound request through the analyzer's submission strategy
func (a *Analyzer) call(ctx context.Context, p intake.PendingRequest) ([]byte, error) {
	if a.strategy == nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("no endpoint for analyzer %q", a.kind), nil)
	}
	return a.strategy.Submit(ctx, a.backend, p)
}

func (a *Analyzer) strategyName() string {
	if a.strategy == nil {
		return ""
	}
	return a.strategy.GetStrategyName()
}

// onStage records revealed stages of session id
func (a *Analyzer) onStage(ctx context.Context, id string) func(timeline.Stage) {
	return func(s timeline.Stage) {
		a.mu.Lock()
		if a.session.ID != id || a.session.State != StateSubmitting {
			a.mu.Unlock()
			return
		}
		a.session.Stage = s.Label
		a.session.Log = append(a.session.Log, s.Label)
		a.mu.Unlock()

		a.publisher.NotifyObservers(ctx, observer.SessionEvent{
			EventType:  observer.StageAdvanced,
			Analyzer:   a.kind,
			SessionID:  id,
			Stage:      s.Label,
			StageIndex: s.Index,
		})
	}
}

func (a *Analyzer) reject(ctx context.Context, err error) {
	a.publisher.NotifyObservers(ctx, observer.SessionEvent{
		EventType:    observer.SubmissionRejected,
		Analyzer:     a.kind,
		ErrorMessage: err.Error(),
	})
}

// Wait blocks until the in-flight call, if any, has settled
func (a *Analyzer) Wait(ctx context.Context) error {
	a.mu.Lock()
	done := a.inflight
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return apperrors.NewTimeoutError("waiting for scan result", ctx.Err())
	}
}

// Reset clears the input and the result. An in-flight call keeps running but
// its result is discarded.
func (a *Analyzer) Reset() {
	a.collector.Clear()
}

// discard drops the result, the view selection and any in-flight session.
// It is the collector's reset hook.
func (a *Analyzer) discard() {
	a.mu.Lock()
	a.generation++
	tl := a.timeline
	abandoned := a.session.State.InFlight()
	id := a.session.ID
	a.session = Session{State: StateIdle}
	a.result = nil
	a.view = aligner.ViewOriginal
	a.rendering = nil
	a.timeline = nil
	a.mu.Unlock()

	if tl != nil {
		tl.Stop()
	}
	if abandoned {
		a.log.WithField("session_id", id).Debug("In-flight session abandoned")
	}
	a.publisher.NotifyObservers(context.Background(), observer.SessionEvent{
		EventType: observer.SessionReset,
		Analyzer:  a.kind,
		SessionID: id,
	})
}

// Result returns the latest result, or nil
func (a *Analyzer) Result() *models.CanonicalResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// Session returns a copy of the current session
func (a *Analyzer) Session() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copySessionLocked()
}

// Snapshot returns the analyzer's observable state
func (a *Analyzer) Snapshot() Snapshot {
	pending := a.collector.Pending()

	a.mu.Lock()
	defer a.mu.Unlock()
	s := Snapshot{
		Kind:        a.kind,
		Session:     a.copySessionLocked(),
		Pending:     pending,
		Submittable: pending.Submittable(a.kind) && !a.session.State.InFlight(),
		Result:      a.result,
	}
	if a.kind == models.KindDocument {
		s.View = a.view
	}
	return s
}

func (a *Analyzer) copySessionLocked() Session {
	s := a.session
	s.Log = append([]string(nil), a.session.Log...)
	return s
}
