// Package console binds a crop session to a terminal: the View prints what a
// mini app would render and the Runner turns typed commands into controller
// calls.
package console

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/session"
)

type View struct {
	out io.Writer

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewView(out io.Writer) *View {
	return &View{out: out, done: make(chan struct{})}
}

func (v *View) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format, args...)
}

func (v *View) ApplyTheme(theme map[string]string) {
	keys := make([]string, 0, len(theme))
	for k := range theme {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+theme[k])
	}
	v.printf("theme: %s\n", strings.Join(parts, " "))
}

func (v *View) ShowPhoto(s session.Snapshot) {
	nav := ""
	if s.CanPrev {
		nav += " [p]rev"
	}
	if s.CanNext {
		nav += " [n]ext"
	}
	v.printf("\n[%s] %s · %s\n", s.Counter(), s.Photo.Label, formatIndicator(s.Indicator))
	if nav != "" {
		v.printf("%s\n", strings.TrimSpace(nav))
	}
}

func (v *View) ShowLoading() {
	v.printf("loading...\n")
}

func (v *View) ShowEditor(r crop.Rect) {
	v.printf("crop %s\n", FormatRect(r))
}

func (v *View) ShowError(err error) {
	v.printf("error: %v\ntype \"retry\" to try again\n", err)
}

func (v *View) ShowSubmitting() {
	v.printf("saving...\n")
}

func (v *View) ShowSubmitSuccess(saved int) {
	v.printf("✓ Сохранено (%d)\n", saved)
}

func (v *View) ShowSubmitFailure(err error) {
	v.printf("✗ Ошибка сохранения: %v\n", err)
}

func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	fmt.Fprintln(v.out, "session closed")
	close(v.done)
}

// Done закрывается вместе с сессией.
func (v *View) Done() <-chan struct{} { return v.done }

func FormatRect(r crop.Rect) string {
	s := fmt.Sprintf("x=%g y=%g w=%g h=%g", r.X, r.Y, r.Width, r.Height)
	if r.Rotate != 0 {
		s += fmt.Sprintf(" rotate=%d", r.Rotate)
	}
	if r.ScaleX < 0 {
		s += " mirrored"
	}
	return s
}

func formatIndicator(ind crop.Indicator) string {
	mark := "●"
	switch ind.Severity {
	case crop.SeverityMedium:
		mark = "◐"
	case crop.SeverityLow:
		mark = "○"
	}
	return fmt.Sprintf("%s %s %d%%", mark, ind.Label, ind.Percent)
}
