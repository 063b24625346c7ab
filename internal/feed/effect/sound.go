package effect

import "sync"

// Cue identifies an audio cue category.
type Cue string

const (
	CueNone         Cue = ""
	CueSignalOpened Cue = "signal_opened"
	CueSignalClosed Cue = "signal_closed"
	CueGenericAlert Cue = "generic_alert"
)

// CueEvent is one dispatched audio cue.
type CueEvent struct {
	Cue        Cue    `json:"cue"`
	Instrument string `json:"instrument,omitempty"`
}

// SoundDispatcher fans audio cues out to registered listeners. It is
// fire-and-forget: cues dispatched before Prime are dropped, and a listener
// that cannot keep up loses cues rather than blocking the dispatcher.
type SoundDispatcher struct {
	mu        sync.Mutex
	primed    bool
	nextID    int
	listeners map[int]chan CueEvent
}

// NewSoundDispatcher creates an unprimed dispatcher.
func NewSoundDispatcher() *SoundDispatcher {
	return &SoundDispatcher{listeners: make(map[int]chan CueEvent)}
}

// Prime enables cue dispatch. It must be called at least once from a real
// user gesture; repeated calls are no-ops.
func (d *SoundDispatcher) Prime() {
	d.mu.Lock()
	d.primed = true
	d.mu.Unlock()
}

// Primed reports whether the dispatcher has been primed.
func (d *SoundDispatcher) Primed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.primed
}

// AddListener registers a cue consumer and returns its channel with a remove
// func. The channel is closed on removal.
func (d *SoundDispatcher) AddListener(buffer int) (<-chan CueEvent, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	ch := make(chan CueEvent, buffer)
	d.listeners[id] = ch

	remove := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if ch, ok := d.listeners[id]; ok {
			delete(d.listeners, id)
			close(ch)
		}
	}
	return ch, remove
}

// PlayOpened dispatches the signal-opened cue for an instrument.
func (d *SoundDispatcher) PlayOpened(instrument string) {
	d.play(CueEvent{Cue: CueSignalOpened, Instrument: instrument})
}

// PlayClosed dispatches the signal-closed cue for an instrument.
func (d *SoundDispatcher) PlayClosed(instrument string) {
	d.play(CueEvent{Cue: CueSignalClosed, Instrument: instrument})
}

// PlayGenericAlert dispatches the generic alert cue.
func (d *SoundDispatcher) PlayGenericAlert() {
	d.play(CueEvent{Cue: CueGenericAlert})
}

func (d *SoundDispatcher) play(event CueEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.primed {
		return
	}
	for _, ch := range d.listeners {
		select {
		case ch <- event:
		default:
			// Slow listener, drop the cue.
		}
	}
}
