package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-trustshield/pkg/models"
)

// SessionEvent represents one step of a scan session's lifecycle. Stage and
// StageIndex are set for stage_advanced events; Verdict and Source for
// session_completed.
type SessionEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Analyzer       models.Kind            `json:"analyzer"`
	SessionID      string                 `json:"session_id,omitempty"`
	Stage          string                 `json:"stage,omitempty"`
	StageIndex     int                    `json:"stage_index,omitempty"`
	Verdict        string                 `json:"verdict,omitempty"`
	Source         models.ResultSource    `json:"source,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of session event
type EventType string

const (
	// SessionStarted when a submission is accepted
	SessionStarted EventType = "session_started"
	// StageAdvanced when the progress timeline reveals a stage
	StageAdvanced EventType = "stage_advanced"
	// SessionCompleted when a result is published
	SessionCompleted EventType = "session_completed"
	// SessionFailed when the outbound call fails, before the fallback is published
	SessionFailed EventType = "session_failed"
	// SubmissionRejected when a submit is refused as busy or not submittable
	SubmissionRejected EventType = "submission_rejected"
	// SessionReset when an analyzer's input and result are cleared
	SessionReset EventType = "session_reset"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event SessionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event SessionEvent)
}

// LoggingObserver logs session events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles session events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event SessionEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"analyzer":   event.Analyzer,
		"session_id": event.SessionID,
	}
	if event.Stage != "" {
		fields["stage"] = event.Stage
		fields["stage_index"] = event.StageIndex
	}
	if event.Verdict != "" {
		fields["verdict"] = event.Verdict
		fields["source"] = event.Source
	}
	if event.ProcessingTime > 0 {
		fields["processing_time_ms"] = event.ProcessingTime.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case SessionStarted:
		entry.Info("Scan session started")
	case StageAdvanced:
		entry.Debug("Scan stage advanced")
	case SessionCompleted:
		if event.Source == models.SourceFallback {
			entry.Warn("Scan session completed with fallback result")
		} else {
			entry.Info("Scan session completed")
		}
	case SessionFailed:
		entry.Error("Scan request failed")
	case SubmissionRejected:
		entry.Warn("Submission rejected")
	case SessionReset:
		entry.Debug("Analyzer reset")
	default:
		entry.Info("Session event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from session events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalSessions       int64
	completedSessions   int64
	fallbackResults     int64
	failedRequests      int64
	rejectedSubmissions int64
	totalProcessingTime time.Duration
	perAnalyzer         map[models.Kind]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{perAnalyzer: make(map[models.Kind]int64)}
}

// OnEvent handles session events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event SessionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case SessionStarted:
		o.totalSessions++
		o.perAnalyzer[event.Analyzer]++
	case SessionCompleted:
		o.completedSessions++
		o.totalProcessingTime += event.ProcessingTime
		if event.Source == models.SourceFallback {
			o.fallbackResults++
		}
	case SessionFailed:
		o.failedRequests++
	case SubmissionRejected:
		o.rejectedSubmissions++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completedSessions > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completedSessions)
	}

	perAnalyzer := make(map[string]int64, len(o.perAnalyzer))
	for k, v := range o.perAnalyzer {
		perAnalyzer[string(k)] = v
	}

	return map[string]interface{}{
		"total_sessions":       o.totalSessions,
		"completed_sessions":   o.completedSessions,
		"fallback_results":     o.fallbackResults,
		"failed_requests":      o.failedRequests,
		"rejected_submissions": o.rejectedSubmissions,
		"avg_processing_ms":    avgProcessingTime.Milliseconds(),
		"sessions_by_analyzer": perAnalyzer,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer in subscription order.
// Delivery is synchronous so stage events reach observers in the order they
// were revealed.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event SessionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			// Log panic but don't crash the application
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
