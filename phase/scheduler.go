package phase

import (
	"fmt"
	"time"
)

// SchedulerEngine answers "given the current world signal, what is the raw
// candidate phase?" It is pure with respect to external I/O beyond the
// signal it was built to read.
type SchedulerEngine interface {
	Resolve(now time.Time) Phase
}

// Window is one configured working-hours window, e.g. weekdays 08:00-18:00.
type Window struct {
	Weekdays  map[time.Weekday]bool
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

// Contains reports whether t falls inside the window, in the window's timezone.
func (w Window) Contains(t time.Time) bool {
	if len(w.Weekdays) > 0 && !w.Weekdays[t.Weekday()] {
		return false
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), w.StartHour, w.StartMinute, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), w.EndHour, w.EndMinute, 0, 0, t.Location())
	return !t.Before(start) && t.Before(end)
}

// SinglePhaseScheduler always reports "working"; useful for demos and tests.
type SinglePhaseScheduler struct{}

func (SinglePhaseScheduler) Resolve(time.Time) Phase {
	return Phase{Name: "working", IsWorkingHours: true}
}

// TimeBasedScheduler reports "working" inside any configured window, in a
// fixed timezone, and "non_working" otherwise.
type TimeBasedScheduler struct {
	Location *time.Location
	Windows  []Window
}

// NewTimeBasedScheduler builds a scheduler for the named windows, resolved
// against loc (UTC fallback is the caller's responsibility).
func NewTimeBasedScheduler(loc *time.Location, windows []Window) *TimeBasedScheduler {
	return &TimeBasedScheduler{Location: loc, Windows: windows}
}

func (s *TimeBasedScheduler) Resolve(now time.Time) Phase {
	local := now.In(s.Location)
	for _, w := range s.Windows {
		if w.Contains(local) {
			return Phase{Name: "working", IsWorkingHours: true}
		}
	}
	return Phase{Name: "non_working", IsWorkingHours: false}
}

// DoorSignal reports the latest known state of an external door sensor;
// true means "open" (site occupied / working). The sensor's own polling
// and wiring are an external collaborator's responsibility.
type DoorSignal func() bool

// IronGateScheduler derives the candidate phase from an external door-state
// signal rather than a time window.
type IronGateScheduler struct {
	Signal DoorSignal
}

func (s *IronGateScheduler) Resolve(time.Time) Phase {
	if s.Signal != nil && s.Signal() {
		return Phase{Name: "working", IsWorkingHours: true}
	}
	return Phase{Name: "non_working", IsWorkingHours: false}
}

// SchedulerFactory builds a SchedulerEngine from resolved configuration.
type SchedulerFactory func(loc *time.Location, windows []Window, signal DoorSignal) (SchedulerEngine, error)

var schedulerRegistry = map[string]SchedulerFactory{
	"single": func(*time.Location, []Window, DoorSignal) (SchedulerEngine, error) {
		return SinglePhaseScheduler{}, nil
	},
	"time_window": func(loc *time.Location, windows []Window, _ DoorSignal) (SchedulerEngine, error) {
		return NewTimeBasedScheduler(loc, windows), nil
	},
	"iron_gate": func(_ *time.Location, _ []Window, signal DoorSignal) (SchedulerEngine, error) {
		if signal == nil {
			return nil, fmt.Errorf("iron_gate scheduler requires a door signal")
		}
		return &IronGateScheduler{Signal: signal}, nil
	},
}

// RegisterScheduler adds or overrides a named scheduler factory. Intended
// for host applications plugging in a custom SCHEDULER_ENGINE_CLASS value.
func RegisterScheduler(name string, factory SchedulerFactory) {
	schedulerRegistry[name] = factory
}

// BuildScheduler resolves name (the SCHEDULER_ENGINE_CLASS value, defaulting
// to "time_window") against the compile-time registry.
func BuildScheduler(name string, loc *time.Location, windows []Window, signal DoorSignal) (SchedulerEngine, error) {
	if name == "" {
		name = "time_window"
	}
	factory, ok := schedulerRegistry[name]
	if !ok {
		return nil, fmt.Errorf("phase: unresolved scheduler class %q", name)
	}
	return factory(loc, windows, signal)
}
