package session_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-crop/api/internal/bridge"
	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/cropbox"
	"photo-crop/api/internal/session"
)

// ---------- fakes ----------

type fakeLoader struct {
	mu    sync.Mutex
	fail  map[string]error
	gates map[string]chan struct{}
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{fail: map[string]error{}, gates: map[string]chan struct{}{}}
}

func (l *fakeLoader) Load(_ context.Context, url string) (session.Image, error) {
	l.mu.Lock()
	gate := l.gates[url]
	err := l.fail[url]
	l.mu.Unlock()

	// как и браузерная загрузка картинки, отмену не слушаем:
	// поздний ответ должен отсекаться контроллером
	if gate != nil {
		<-gate
	}
	if err != nil {
		return session.Image{}, err
	}
	return session.Image{URL: url, Width: 1600, Height: 1600}, nil
}

func (l *fakeLoader) setFail(url string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.fail, url)
		return
	}
	l.fail[url] = err
}

func (l *fakeLoader) gate(url string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan struct{})
	l.gates[url] = ch
	return ch
}

type recView struct {
	theme     map[string]string
	snapshots []session.Snapshot
	editor    []crop.Rect
	errs      []error
	loading   int
	success   int
	failures  []error
	closed    bool
}

func (v *recView) ApplyTheme(t map[string]string) { v.theme = t }
func (v *recView) ShowPhoto(s session.Snapshot)   { v.snapshots = append(v.snapshots, s) }
func (v *recView) ShowLoading()                   { v.loading++ }
func (v *recView) ShowEditor(r crop.Rect)         { v.editor = append(v.editor, r) }
func (v *recView) ShowError(err error)            { v.errs = append(v.errs, err) }
func (v *recView) ShowSubmitting()                {}
func (v *recView) ShowSubmitSuccess(int)          { v.success++ }
func (v *recView) ShowSubmitFailure(err error)    { v.failures = append(v.failures, err) }
func (v *recView) Close()                         { v.closed = true }
func (v *recView) lastSnapshot() session.Snapshot { return v.snapshots[len(v.snapshots)-1] }

type fakeSource struct {
	mu       sync.Mutex
	order    session.Order
	fetchErr error
	saveErr  error
	saveGate chan struct{}
	saved    []session.Payload
}

func (s *fakeSource) FetchOrder(_ context.Context, orderID string) (session.Order, error) {
	if s.fetchErr != nil {
		return session.Order{}, s.fetchErr
	}
	return s.order, nil
}

func (s *fakeSource) SaveCrops(_ context.Context, p session.Payload) error {
	if s.saveGate != nil {
		<-s.saveGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, p)
	return s.saveErr
}

// ---------- harness ----------

type harness struct {
	ctrl   *session.Controller
	loop   *session.Loop
	view   *recView
	loader *fakeLoader
	clock  *clockwork.FakeClock
}

func newHarness(t *testing.T, mutate func(*session.Config)) *harness {
	t.Helper()
	h := &harness{
		loop:   session.NewLoop(),
		view:   &recView{},
		loader: newFakeLoader(),
		clock:  clockwork.NewFakeClock(),
	}
	cfg := session.Config{
		Loader:  h.loader,
		Widgets: cropbox.Factory{},
		View:    h.view,
		Loop:    h.loop,
		Clock:   h.clock,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.ctrl = session.New(cfg)
	return h
}

func (h *harness) step(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.loop.Step(ctx))
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.ctrl.Start(context.Background())
	h.step(t)
}

func (h *harness) navigate(t *testing.T, dir int) {
	t.Helper()
	before := len(h.view.snapshots)
	h.ctrl.Navigate(dir)
	if len(h.view.snapshots) > before {
		h.step(t)
	}
}

func rectPtr(r crop.Rect) *crop.Rect { return &r }

func launchPayload(t *testing.T, js string) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte(js))
}

// ---------- tests ----------

func TestStartWithoutOrderOrHostUsesDemo(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	assert.Equal(t, 3, h.ctrl.Len())
	assert.Equal(t, session.PhaseReady, h.ctrl.Phase())

	snap := h.view.lastSnapshot()
	assert.Equal(t, "1/3", snap.Counter())
	assert.False(t, snap.CanPrev)
	assert.True(t, snap.CanNext)

	cur, ok := h.ctrl.Current()
	require.True(t, ok)
	assert.Equal(t, crop.DemoPhotos()[0].Suggestion.Rect, cur)
	assert.Equal(t, crop.SeverityNormal, snap.Indicator.Severity)
}

func TestNavigateStaysInRange(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	h.navigate(t, -1)
	assert.Equal(t, 0, h.ctrl.Index())

	h.navigate(t, 1)
	h.navigate(t, 1)
	assert.Equal(t, 2, h.ctrl.Index())
	snap := h.view.lastSnapshot()
	assert.Equal(t, "3/3", snap.Counter())
	assert.True(t, snap.CanPrev)
	assert.False(t, snap.CanNext)

	shown := len(h.view.snapshots)
	h.ctrl.Navigate(1)
	h.ctrl.Navigate(5)
	assert.Equal(t, 2, h.ctrl.Index())
	assert.Len(t, h.view.snapshots, shown)
}

func TestGoToPhoto(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)

	shown := len(h.view.snapshots)
	h.ctrl.GoToPhoto(0)
	h.ctrl.GoToPhoto(7)
	assert.Len(t, h.view.snapshots, shown)

	h.ctrl.GoToPhoto(2)
	h.step(t)
	assert.Equal(t, 2, h.ctrl.Index())
	assert.Equal(t, session.PhaseReady, h.ctrl.Phase())
}

func TestOverrideSurvivesNavigationUntilReset(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	demo := crop.DemoPhotos()[0]

	edited := crop.Rect{X: 100, Y: 100, Width: 760, Height: 1000, ScaleX: 1, ScaleY: 1}
	h.ctrl.Edit(edited)

	h.navigate(t, 1)
	got, ok := h.ctrl.Override(demo.ID)
	require.True(t, ok)
	assert.Equal(t, edited, got)

	h.navigate(t, -1)
	cur, _ := h.ctrl.Current()
	assert.Equal(t, edited, cur)

	h.ctrl.Reset()
	_, ok = h.ctrl.Override(demo.ID)
	assert.False(t, ok)
	cur, _ = h.ctrl.Current()
	assert.Equal(t, demo.Suggestion.Rect, cur)
}

func TestAutoCropKeepsOverride(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	demo := crop.DemoPhotos()[0]

	h.ctrl.Edit(crop.Rect{X: 0, Y: 0, Width: 380, Height: 500, ScaleX: 1, ScaleY: 1})
	h.navigate(t, 1)
	h.navigate(t, -1)

	h.ctrl.AutoCrop()
	cur, _ := h.ctrl.Current()
	assert.Equal(t, demo.Suggestion.Rect, cur)
	_, ok := h.ctrl.Override(demo.ID)
	assert.True(t, ok)
}

func TestResetWithoutSuggestionUsesDefaultFraming(t *testing.T) {
	raw := launchPayload(t, `{"photos":[{"id":"a","url":"https://x/a.jpg","aspect_ratio":1}]}`)
	h := newHarness(t, func(c *session.Config) {
		c.Bridge = bridge.NewConsole(nil, raw, 0)
	})
	h.start(t)

	h.ctrl.Edit(crop.Rect{X: 0, Y: 0, Width: 200, Height: 200})
	h.ctrl.Reset()
	cur, _ := h.ctrl.Current()
	assert.Equal(t, crop.CenterFrame(1600, 1600, 1), cur)
}

func TestRotateAndFlipAreCyclic(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	orig, _ := h.ctrl.Current()

	for i := 0; i < 4; i++ {
		h.ctrl.Rotate()
	}
	cur, _ := h.ctrl.Current()
	assert.Equal(t, orig.Rotate, cur.Rotate)

	h.ctrl.Rotate()
	cur, _ = h.ctrl.Current()
	assert.Equal(t, 90, cur.Rotate)

	h.ctrl.Flip()
	cur, _ = h.ctrl.Current()
	assert.Equal(t, -orig.ScaleX, cur.ScaleX)
	h.ctrl.Flip()
	cur, _ = h.ctrl.Current()
	assert.Equal(t, orig.ScaleX, cur.ScaleX)
}

func TestActionsWithoutWidgetAreNoops(t *testing.T) {
	h := newHarness(t, nil)
	h.loader.gate("https://picsum.photos/id/64/1200/1600")
	h.ctrl.Start(context.Background())

	h.ctrl.Reset()
	h.ctrl.AutoCrop()
	h.ctrl.Rotate()
	h.ctrl.Flip()
	_, ok := h.ctrl.Current()
	assert.False(t, ok)
	assert.Empty(t, h.view.editor)
}

func TestSubmitPayloadThroughBridge(t *testing.T) {
	raw := launchPayload(t, `{"photos":[
		{"id":"p1","url":"https://x/1.jpg","auto_crop":{"x":10,"y":10,"width":500,"height":500,"confidence":0.9,"method":"center"}},
		{"id":"p2","url":"https://x/2.jpg","auto_crop":{"x":0,"y":0,"width":800,"height":800,"confidence":0.6,"method":"saliency"}},
		{"id":"p3","url":"https://x/3.jpg"}
	]}`)
	console := bridge.NewConsole(nil, raw, 77)
	h := newHarness(t, func(c *session.Config) { c.Bridge = console })
	h.start(t)
	assert.Equal(t, console.Theme(), h.view.theme)

	h.navigate(t, 1)
	edited := crop.Rect{X: 20, Y: 30, Width: 400, Height: 300, Rotate: 90, ScaleX: -1, ScaleY: 1}
	h.ctrl.Edit(edited)

	require.NoError(t, h.ctrl.Submit(context.Background()))

	sent := console.Sent()
	require.Len(t, sent, 1)
	var p session.Payload
	require.NoError(t, json.Unmarshal([]byte(sent[0]), &p))

	assert.Equal(t, int64(77), p.UserID)
	require.Len(t, p.Photos, 3)
	require.NotNil(t, p.Photos[0].Crop)
	assert.Equal(t, crop.Rect{X: 10, Y: 10, Width: 500, Height: 500, ScaleX: 1, ScaleY: 1}, *p.Photos[0].Crop)
	require.NotNil(t, p.Photos[1].Crop)
	assert.Equal(t, edited, *p.Photos[1].Crop)
	assert.Nil(t, p.Photos[2].Crop)

	assert.Equal(t, session.PhaseDone, h.ctrl.Phase())
	assert.True(t, console.Closed())
	assert.True(t, h.view.closed)
	assert.ErrorIs(t, h.ctrl.Submit(context.Background()), session.ErrClosed)
}

func TestSubmitWithoutSink(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	assert.ErrorIs(t, h.ctrl.Submit(context.Background()), session.ErrNoSink)
}

func remoteOrder() session.Order {
	return session.Order{
		ID:     "42",
		Number: "A-42",
		Photos: []crop.Photo{
			{ID: "1", URL: "http://api/photo-proxy/a", Suggestion: &crop.Suggestion{
				Rect: crop.Rect{X: 0, Y: 0, Width: 600, Height: 600, ScaleX: 1, ScaleY: 1}, Confidence: 0.5, Method: crop.MethodCenter}},
			{ID: "2", URL: "http://api/photo-proxy/b"},
		},
	}
}

func TestSubmitRemoteClosesAfterDelay(t *testing.T) {
	src := &fakeSource{order: remoteOrder()}
	console := bridge.NewConsole(nil, "", 5)
	h := newHarness(t, func(c *session.Config) {
		c.OrderID = "42"
		c.Source = src
		c.Bridge = console
	})
	h.start(t)
	assert.Equal(t, "42", h.ctrl.OrderID())
	assert.Equal(t, 2, h.ctrl.Len())

	require.NoError(t, h.ctrl.Submit(context.Background()))
	assert.Equal(t, session.PhaseSubmitting, h.ctrl.Phase())
	assert.ErrorIs(t, h.ctrl.Submit(context.Background()), session.ErrBusy)

	h.step(t)
	assert.Equal(t, 1, h.view.success)
	assert.False(t, h.view.closed)

	h.clock.Advance(session.DefaultCloseDelay)
	h.step(t)
	assert.True(t, h.view.closed)
	assert.True(t, console.Closed())
	assert.Equal(t, session.PhaseDone, h.ctrl.Phase())

	require.Len(t, src.saved, 1)
	saved := src.saved[0]
	assert.Equal(t, crop.FlexID("42"), saved.OrderID)
	assert.Equal(t, int64(5), saved.UserID)
	require.Len(t, saved.Photos, 2)
	assert.NotNil(t, saved.Photos[0].Crop)
	assert.Nil(t, saved.Photos[1].Crop)
	assert.Empty(t, console.Sent())
}

func TestSubmitRemoteFailureAllowsRetry(t *testing.T) {
	src := &fakeSource{order: remoteOrder(), saveErr: errors.New("status 500: boom")}
	h := newHarness(t, func(c *session.Config) {
		c.OrderID = "42"
		c.Source = src
	})
	h.start(t)

	require.NoError(t, h.ctrl.Submit(context.Background()))
	h.step(t)
	require.Len(t, h.view.failures, 1)
	assert.Equal(t, session.PhaseReady, h.ctrl.Phase())

	src.mu.Lock()
	src.saveErr = nil
	src.mu.Unlock()

	require.NoError(t, h.ctrl.Submit(context.Background()))
	h.step(t)
	assert.Equal(t, 1, h.view.success)
	assert.Len(t, src.saved, 2)
}

func TestLoadFailureDuringSubmitKeepsSubmitting(t *testing.T) {
	saveGate := make(chan struct{})
	src := &fakeSource{order: remoteOrder(), saveErr: errors.New("status 502"), saveGate: saveGate}
	h := newHarness(t, func(c *session.Config) {
		c.OrderID = "42"
		c.Source = src
	})
	h.start(t)

	url := remoteOrder().Photos[1].URL
	h.loader.setFail(url, errors.New("network down"))
	release := h.loader.gate(url)
	h.ctrl.Navigate(1)

	require.NoError(t, h.ctrl.Submit(context.Background()))
	assert.Equal(t, session.PhaseSubmitting, h.ctrl.Phase())

	// загрузка падает, пока запрос сохранения ещё висит
	close(release)
	h.step(t)
	assert.Equal(t, session.PhaseSubmitting, h.ctrl.Phase())
	require.Len(t, h.view.errs, 1)
	assert.ErrorIs(t, h.ctrl.Submit(context.Background()), session.ErrBusy)

	close(saveGate)
	h.step(t)
	require.Len(t, h.view.failures, 1)
	assert.Equal(t, session.PhaseError, h.ctrl.Phase())
	assert.Len(t, src.saved, 1)
}

func TestFetchFailureFallsBackToLaunchPayload(t *testing.T) {
	raw := launchPayload(t, `{"photos":[{"id":"x","url":"https://x/x.jpg"}]}`)
	h := newHarness(t, func(c *session.Config) {
		c.OrderID = "42"
		c.Source = &fakeSource{fetchErr: errors.New("dial tcp: refused")}
		c.Bridge = bridge.NewConsole(nil, raw, 0)
	})
	h.start(t)
	assert.Equal(t, 1, h.ctrl.Len())
	assert.Equal(t, "x", h.ctrl.Photos()[0].ID)
}

func TestMalformedLaunchPayloadFallsBackToDemo(t *testing.T) {
	h := newHarness(t, func(c *session.Config) {
		c.Bridge = bridge.NewConsole(nil, "!!!garbage", 0)
	})
	h.start(t)
	assert.Equal(t, 3, h.ctrl.Len())
	assert.Empty(t, h.view.errs)
}

func TestImageLoadErrorAndRetry(t *testing.T) {
	h := newHarness(t, nil)
	url := crop.DemoPhotos()[0].URL
	h.loader.setFail(url, errors.New("network down"))
	h.start(t)

	assert.Equal(t, session.PhaseError, h.ctrl.Phase())
	require.Len(t, h.view.errs, 1)
	_, ok := h.ctrl.Current()
	assert.False(t, ok)

	// из error выходим только повтором
	h.ctrl.Navigate(1)
	assert.Equal(t, 0, h.ctrl.Index())

	h.loader.setFail(url, nil)
	h.ctrl.Retry()
	h.step(t)
	assert.Equal(t, session.PhaseReady, h.ctrl.Phase())
	_, ok = h.ctrl.Current()
	assert.True(t, ok)
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	h := newHarness(t, nil)
	photos := crop.DemoPhotos()
	release := h.loader.gate(photos[0].URL)

	h.ctrl.Start(context.Background())
	assert.Equal(t, session.PhaseLoading, h.ctrl.Phase())

	h.ctrl.Navigate(1)
	h.step(t)
	assert.Equal(t, 1, h.ctrl.Index())
	assert.Equal(t, session.PhaseReady, h.ctrl.Phase())
	cur, _ := h.ctrl.Current()
	assert.Equal(t, photos[1].Suggestion.Rect, cur)

	// первая загрузка отменена и её результат приходит поздно
	close(release)
	h.step(t)
	assert.Equal(t, 1, h.ctrl.Index())
	assert.Equal(t, session.PhaseReady, h.ctrl.Phase())
	assert.Empty(t, h.view.errs)
	cur, _ = h.ctrl.Current()
	assert.Equal(t, photos[1].Suggestion.Rect, cur)
}

func TestPayloadUsesSuggestionForUntouched(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t)
	p := h.ctrl.Payload()
	require.Len(t, p.Photos, 3)
	for i, ph := range crop.DemoPhotos() {
		assert.Equal(t, rectPtr(ph.Suggestion.Rect), p.Photos[i].Crop)
	}
}
