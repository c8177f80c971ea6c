package timeline

import (
	"sync"
	"time"
)

// Stage is one revealed label
type Stage struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Timeline reveals stage labels on a fixed cadence while a submission is in
// flight. It is cosmetic and never gates the request it accompanies.
type Timeline struct {
	mu        sync.Mutex
	set       StageSet
	interval  time.Duration
	onAdvance func(Stage)

	shown    int
	running  bool
	stopping bool
	stop     chan struct{}
	done     chan struct{}
}

// New creates a stopped timeline. onAdvance, if set, is called for every
// revealed stage, including the initial ones.
func New(set StageSet, interval time.Duration, onAdvance func(Stage)) *Timeline {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timeline{set: set, interval: interval, onAdvance: onAdvance}
}

// Start reveals the initial stages and starts advancing. Starting a running
// timeline is a no-op.
func (t *Timeline) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	initial := t.set.Initial
	if initial < 1 {
		initial = 1
	}
	if initial > len(t.set.Stages) {
		initial = len(t.set.Stages)
	}
	t.shown = initial
	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	revealed := t.stagesLocked(0, initial)
	stop, done := t.stop, t.done
	t.mu.Unlock()

	for _, s := range revealed {
		t.emit(s)
	}
	go t.run(stop, done)
}

func (t *Timeline) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s, ok := t.advance(stop)
			if ok {
				t.emit(s)
			}
		}
	}
}

// advance reveals the next stage; it holds at the last one
func (t *Timeline) advance(stop <-chan struct{}) (Stage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-stop:
		return Stage{}, false
	default:
	}
	if t.shown >= len(t.set.Stages) {
		return Stage{}, false
	}
	s := Stage{Index: t.shown, Label: t.set.Stages[t.shown]}
	t.shown++
	return s, true
}

// Stop halts the timeline, waits for the advancing goroutine to exit and
// resets it. It returns the labels revealed before stopping. No stage is
// revealed after Stop returns. When Stop races with itself only one caller
// receives the labels.
func (t *Timeline) Stop() []string {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	if !t.stopping {
		close(t.stop)
		t.stopping = true
	}
	done := t.done
	t.mu.Unlock()

	<-done

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return nil
	}
	log := t.labelsLocked()
	t.shown = 0
	t.running = false
	t.stopping = false
	return log
}

// Current returns the most recently revealed label
func (t *Timeline) Current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shown == 0 {
		return "", false
	}
	return t.set.Stages[t.shown-1], true
}

// Log returns every label revealed so far
func (t *Timeline) Log() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.labelsLocked()
}

// Running reports whether the timeline is advancing
func (t *Timeline) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// DoneLabel is the completion line of the stage set, if any
func (t *Timeline) DoneLabel() string {
	return t.set.Done
}

func (t *Timeline) labelsLocked() []string {
	out := make([]string, t.shown)
	copy(out, t.set.Stages[:t.shown])
	return out
}

func (t *Timeline) stagesLocked(from, to int) []Stage {
	out := make([]Stage, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, Stage{Index: i, Label: t.set.Stages[i]})
	}
	return out
}

func (t *Timeline) emit(s Stage) {
	if t.onAdvance != nil {
		t.onAdvance(s)
	}
}
