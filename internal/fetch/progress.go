package fetch

import (
	"fmt"
	"io"
	"strings"
)

// BarWidth is the number of characters in a rendered progress bar.
const BarWidth = 40

// BarString renders a completion percentage as a fixed-width bar. Each "="
// stands for 2.5%; a ">" marks the head until the rate reaches 100.
func BarString(rate float64) string {
	if rate >= 100 {
		return strings.Repeat("=", BarWidth)
	}
	if rate < 0 {
		rate = 0
	}
	num := int(rate / (100.0 / BarWidth))
	if num > BarWidth-1 {
		num = BarWidth - 1
	}
	return strings.Repeat("=", num) + ">" + strings.Repeat(" ", BarWidth-num-1)
}

// Rate returns the completion percentage, capped at 100. It returns -1 when
// total is unknown.
func Rate(received, total int64) float64 {
	if total <= 0 {
		return -1
	}
	rate := 100.0 * float64(received) / float64(total)
	if rate > 100 {
		rate = 100
	}
	return rate
}

// Meter writes download progress to a terminal or a plain stream.
//
// On a terminal every update redraws the same line. Otherwise a line is
// printed each time another tenth of the download completes (or each MiB
// when the length is unknown), so logs stay readable.
type Meter struct {
	w     io.Writer
	tty   bool
	step  int64
	drawn bool // A "\r" line is open on the terminal
}

// NewMeter creates a Meter writing to w.
func NewMeter(w io.Writer, tty bool) *Meter {
	return &Meter{w: w, tty: tty, step: -1}
}

// Update is a domain.ProgressFunc.
func (m *Meter) Update(received, total int64) {
	rate := Rate(received, total)

	if !m.tty {
		var step int64
		if rate < 0 {
			step = received >> 20
		} else {
			step = int64(rate) / 10
		}
		if step == m.step {
			return
		}
		m.step = step
	}

	end := "\r"
	if !m.tty {
		end = "\n"
	}
	m.drawn = m.tty

	if rate < 0 {
		fmt.Fprintf(m.w, "[ %d bytes ]%s", received, end)
		return
	}
	fmt.Fprintf(m.w, "[ %6.2f %% ] [ %s ]%s", rate, BarString(rate), end)
}

// Done terminates the progress line.
func (m *Meter) Done() {
	if m.tty {
		fmt.Fprintln(m.w)
	}
	m.drawn = false
	fmt.Fprintln(m.w, "Download finished!!")
}

// Abort closes an open progress line so later output starts on a fresh line.
func (m *Meter) Abort() {
	if m.drawn {
		fmt.Fprintln(m.w)
	}
	m.drawn = false
}
