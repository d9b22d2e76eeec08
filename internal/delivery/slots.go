package delivery

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of a delivery date.
const DateLayout = "2006-01-02"

// HorizonDays is how many calendar days, starting with today, can be booked.
const HorizonDays = 3

// Window names one of the fixed daily delivery windows.
type Window string

const (
	Morning   Window = "morning"
	Afternoon Window = "afternoon"
	Evening   Window = "evening"
)

// clock is a time of day in minutes after midnight.
type clock int

func at(hour, minute int) clock { return clock(hour*60 + minute) }

func (c clock) on(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, int(c), 0, 0, day.Location())
}

type windowSpec struct {
	window Window
	start  clock
	end    clock
	cutoff clock
	label  string
}

// windows is ordered by start time; slot output follows this order.
var windows = []windowSpec{
	{window: Morning, start: at(7, 0), end: at(10, 0), cutoff: at(5, 0), label: "7:00 AM - 10:00 AM"},
	{window: Afternoon, start: at(12, 0), end: at(15, 0), cutoff: at(10, 0), label: "12:00 PM - 3:00 PM"},
	{window: Evening, start: at(17, 0), end: at(20, 0), cutoff: at(15, 0), label: "5:00 PM - 8:00 PM"},
}

// SlotOption is one orderable (date, window) pair.
type SlotOption struct {
	Date      time.Time
	Window    Window
	Available bool
}

// DateString returns the slot date in DateLayout.
func (s SlotOption) DateString() string {
	return s.Date.Format(DateLayout)
}

// Start returns the moment the delivery window opens.
func (s SlotOption) Start() time.Time {
	return spec(s.Window).start.on(s.Date)
}

// End returns the moment the delivery window closes.
func (s SlotOption) End() time.Time {
	return spec(s.Window).end.on(s.Date)
}

// AvailableSlots lists every slot from ref's calendar date through the booking
// horizon. Windows on ref's date are available only while ref is before their
// cutoff; windows on later dates are always available. Dates are taken in ref's
// location.
func AvailableSlots(ref time.Time) []SlotOption {
	today := midnight(ref)
	slots := make([]SlotOption, 0, HorizonDays*len(windows))
	for d := 0; d < HorizonDays; d++ {
		day := today.AddDate(0, 0, d)
		for _, w := range windows {
			available := d > 0 || ref.Before(w.cutoff.on(day))
			slots = append(slots, SlotOption{Date: day, Window: w.window, Available: available})
		}
	}
	return slots
}

// Find returns the slot for the given date (DateLayout) and window.
func Find(slots []SlotOption, date string, w Window) (SlotOption, bool) {
	for _, s := range slots {
		if s.Window == w && s.DateString() == date {
			return s, true
		}
	}
	return SlotOption{}, false
}

// Label maps a window to its customer-facing time range.
func Label(w Window) string {
	for _, s := range windows {
		if s.window == w {
			return s.label
		}
	}
	return string(w)
}

// Windows returns the delivery windows in display order.
func Windows() []Window {
	out := make([]Window, len(windows))
	for i, s := range windows {
		out[i] = s.window
	}
	return out
}

// ParseWindow maps a wire name such as "morning" to its Window.
func ParseWindow(s string) (Window, error) {
	for _, w := range windows {
		if string(w.window) == s {
			return w.window, nil
		}
	}
	return "", fmt.Errorf("unknown delivery window %q", s)
}

func spec(w Window) windowSpec {
	for _, s := range windows {
		if s.window == w {
			return s
		}
	}
	return windowSpec{window: w}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
