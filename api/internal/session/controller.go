package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"photo-crop/api/internal/bridge"
	"photo-crop/api/internal/crop"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseLoading    Phase = "loading"
	PhaseNavigating Phase = "navigating"
	PhaseReady      Phase = "ready"
	PhaseError      Phase = "error"
	PhaseSubmitting Phase = "submitting"
	PhaseDone       Phase = "done"
)

const DefaultCloseDelay = 1500 * time.Millisecond

type Config struct {
	OrderID string // из параметров запуска; пусто — удалённого заказа нет
	Source  Source // nil — нет API
	Bridge  Bridge // nil — запущены вне хоста

	Loader  ImageLoader
	Widgets WidgetFactory
	View    View
	Loop    *Loop

	Clock      clockwork.Clock
	CloseDelay time.Duration
	Logger     *slog.Logger
}

// Controller владеет списком фото, текущим индексом, картой сохранённых
// кадров и жизненным циклом виджета. Не потокобезопасен: все вызовы идут
// через Loop.
type Controller struct {
	cfg   Config
	log   *slog.Logger
	clock clockwork.Clock

	ctx     context.Context
	orderID string
	userID  int64

	photos    []crop.Photo
	index     int
	overrides map[string]crop.Rect
	widget    Widget
	phase     Phase

	gen        uint64
	cancelLoad context.CancelFunc
	lastErr    error
}

func New(cfg Config) *Controller {
	if cfg.Loop == nil {
		cfg.Loop = NewLoop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.CloseDelay <= 0 {
		cfg.CloseDelay = DefaultCloseDelay
	}
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Controller{
		cfg:       cfg,
		log:       lg.With("session", uuid.NewString()),
		clock:     cfg.Clock,
		ctx:       context.Background(),
		overrides: make(map[string]crop.Rect),
		phase:     PhaseIdle,
	}
}

// Start разрешает список фото (заказ → данные хоста → демо) и начинает
// загрузку первого фото.
func (c *Controller) Start(ctx context.Context) {
	c.ctx = ctx
	if b := c.cfg.Bridge; b != nil {
		if theme := b.Theme(); len(theme) > 0 {
			c.cfg.View.ApplyTheme(theme)
		}
		c.userID = b.UserID()
	}

	c.photos = c.resolvePhotos(ctx)
	c.index = 0
	c.phase = PhaseLoading
	c.log.Info("session started", "photos", len(c.photos), "order_id", c.orderID)
	c.showCurrent()
}

func (c *Controller) resolvePhotos(ctx context.Context) []crop.Photo {
	var photos []crop.Photo

	if c.cfg.OrderID != "" && c.cfg.Source != nil {
		order, err := c.cfg.Source.FetchOrder(ctx, c.cfg.OrderID)
		if err != nil {
			c.log.Warn("fetch order failed", "order_id", c.cfg.OrderID, "err", err)
		} else {
			photos = order.Photos
			c.orderID = order.ID
			if c.orderID == "" {
				c.orderID = c.cfg.OrderID
			}
		}
	}

	if len(photos) == 0 && c.cfg.Bridge != nil {
		if raw := c.cfg.Bridge.LaunchData(); raw != "" {
			ld := bridge.DecodeLaunch(raw)
			photos = ld.Photos
			if c.orderID == "" && len(photos) > 0 {
				c.orderID = ld.OrderID
			}
		}
	}

	if len(photos) == 0 {
		c.log.Info("no photos supplied, using demo list")
		photos = crop.DemoPhotos()
	}
	return photos
}

// Navigate сдвигает индекс на dir; вне диапазона — ничего не делает.
func (c *Controller) Navigate(dir int) {
	if !c.interactive() {
		return
	}
	next := c.index + dir
	if next < 0 || next >= len(c.photos) || next == c.index {
		return
	}
	c.moveTo(next)
}

func (c *Controller) GoToPhoto(i int) {
	if !c.interactive() {
		return
	}
	if i < 0 || i >= len(c.photos) || i == c.index {
		return
	}
	c.moveTo(i)
}

func (c *Controller) moveTo(i int) {
	c.persist()
	c.teardown()
	c.index = i
	c.phase = PhaseNavigating
	c.showCurrent()
}

func (c *Controller) showCurrent() {
	c.cfg.View.ShowPhoto(c.Snapshot())
	c.startLoad()
}

func (c *Controller) startLoad() {
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.gen++
	gen, idx := c.gen, c.index
	url := c.photos[idx].URL

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelLoad = cancel
	c.cfg.View.ShowLoading()

	go func() {
		img, err := c.cfg.Loader.Load(ctx, url)
		c.cfg.Loop.Post(func() { c.finishLoad(gen, idx, img, err) })
	}()
}

func (c *Controller) finishLoad(gen uint64, idx int, img Image, err error) {
	if gen != c.gen {
		// ответ от предыдущей навигации — выбрасываем
		c.log.Debug("stale image load discarded", "index", idx, "gen", gen, "current_gen", c.gen)
		return
	}
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	if c.phase == PhaseDone {
		return
	}
	if err != nil {
		c.lastErr = err
		// во время отправки фазу решает finishSubmit
		if c.phase != PhaseSubmitting {
			c.phase = PhaseError
		}
		c.log.Warn("image load failed", "index", idx, "err", err)
		c.cfg.View.ShowError(fmt.Errorf("не удалось загрузить фото: %w", err))
		return
	}

	p := c.photos[idx]
	opts := WidgetOptions{AspectRatio: p.Ratio()}
	if r, ok := c.overrides[p.ID]; ok {
		opts.Initial = &r
	} else if r, ok := p.SuggestedRect(); ok {
		opts.Initial = &r
	}
	c.widget = c.cfg.Widgets.NewWidget(img, opts)
	c.lastErr = nil
	if c.phase != PhaseSubmitting {
		c.phase = PhaseReady
	}
	c.cfg.View.ShowEditor(c.widget.Data())
}

// Retry повторяет неудавшуюся загрузку текущего фото.
func (c *Controller) Retry() {
	if c.phase != PhaseError {
		return
	}
	c.phase = PhaseNavigating
	c.startLoad()
}

// persist — единственное место, где правки пользователя становятся
// сохранёнными в рамках сессии.
func (c *Controller) persist() {
	if c.widget == nil {
		return
	}
	c.overrides[c.photos[c.index].ID] = c.widget.Data()
}

func (c *Controller) teardown() {
	if c.widget == nil {
		return
	}
	c.widget.Destroy()
	c.widget = nil
}

// Reset возвращает предложенный кадр (или кадр виджета по умолчанию)
// и удаляет сохранённый кадр этого фото.
func (c *Controller) Reset() {
	if c.widget == nil {
		return
	}
	p := c.photos[c.index]
	if r, ok := p.SuggestedRect(); ok {
		c.widget.SetData(r)
	} else {
		c.widget.Reset()
	}
	delete(c.overrides, p.ID)
	c.cfg.View.ShowEditor(c.widget.Data())
}

// AutoCrop повторно применяет предложение, сохранённый кадр не трогает.
func (c *Controller) AutoCrop() {
	if c.widget == nil {
		return
	}
	if r, ok := c.photos[c.index].SuggestedRect(); ok {
		c.widget.SetData(r)
	} else {
		c.widget.Reset()
	}
	c.cfg.View.ShowEditor(c.widget.Data())
}

func (c *Controller) Rotate() {
	if c.widget == nil {
		return
	}
	c.widget.Rotate(90)
	c.cfg.View.ShowEditor(c.widget.Data())
}

func (c *Controller) Flip() {
	if c.widget == nil {
		return
	}
	d := c.widget.Data()
	sx := d.ScaleX
	if sx == 0 {
		sx = 1
	}
	c.widget.ScaleX(-sx)
	c.cfg.View.ShowEditor(c.widget.Data())
}

// Edit передаёт виджету новую геометрию (перетаскивание/ресайз из UI).
func (c *Controller) Edit(r crop.Rect) {
	if c.widget == nil {
		return
	}
	c.widget.SetData(r)
	c.cfg.View.ShowEditor(c.widget.Data())
}

// Submit сохраняет текущий кадр и отдаёт результат: через API заказа,
// если он есть, иначе через мост хоста.
func (c *Controller) Submit(ctx context.Context) error {
	switch c.phase {
	case PhaseSubmitting:
		return ErrBusy
	case PhaseDone:
		return ErrClosed
	}
	c.persist()
	payload := c.Payload()

	if c.cfg.Source != nil && c.orderID != "" {
		c.phase = PhaseSubmitting
		c.cfg.View.ShowSubmitting()
		go func() {
			err := c.cfg.Source.SaveCrops(ctx, payload)
			c.cfg.Loop.Post(func() { c.finishSubmit(len(payload.Photos), err) })
		}()
		return nil
	}

	if c.cfg.Bridge != nil {
		data, err := payload.JSON()
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		if err := c.cfg.Bridge.SendData(data); err != nil {
			c.cfg.View.ShowSubmitFailure(err)
			return fmt.Errorf("send data: %w", err)
		}
		c.log.Info("result handed to host", "photos", len(payload.Photos))
		c.end()
		return nil
	}
	return ErrNoSink
}

func (c *Controller) finishSubmit(n int, err error) {
	if err != nil {
		switch {
		case c.widget != nil:
			c.phase = PhaseReady
		case c.lastErr != nil:
			c.phase = PhaseError
		default:
			c.phase = PhaseNavigating
		}
		c.log.Warn("submit failed", "order_id", c.orderID, "err", err)
		c.cfg.View.ShowSubmitFailure(err)
		return
	}
	c.log.Info("crops saved", "order_id", c.orderID, "photos", n)
	c.cfg.View.ShowSubmitSuccess(n)
	c.clock.AfterFunc(c.cfg.CloseDelay, func() {
		c.cfg.Loop.Post(c.end)
	})
}

func (c *Controller) end() {
	if c.phase == PhaseDone {
		return
	}
	c.phase = PhaseDone
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.teardown()
	if c.cfg.Bridge != nil {
		if err := c.cfg.Bridge.Close(); err != nil {
			c.log.Warn("host close failed", "err", err)
		}
	}
	c.cfg.View.Close()
}

func (c *Controller) Payload() Payload {
	return buildPayload(c.orderID, c.userID, c.photos, c.overrides)
}

func (c *Controller) Snapshot() Snapshot {
	p := c.photos[c.index]
	return Snapshot{
		Index:     c.index,
		Total:     len(c.photos),
		Photo:     p,
		Indicator: crop.IndicatorFor(p),
		CanPrev:   c.index > 0,
		CanNext:   c.index < len(c.photos)-1,
	}
}

// Counter — текст счётчика, например "1/3".
func (s Snapshot) Counter() string {
	return fmt.Sprintf("%d/%d", s.Index+1, s.Total)
}

// В состоянии error навигация закрыта: выход только через Retry.
func (c *Controller) interactive() bool {
	switch c.phase {
	case PhaseDone, PhaseSubmitting, PhaseError, PhaseIdle:
		return false
	}
	return len(c.photos) > 0
}

func (c *Controller) Index() int      { return c.index }
func (c *Controller) Len() int        { return len(c.photos) }
func (c *Controller) Phase() Phase    { return c.phase }
func (c *Controller) OrderID() string { return c.orderID }
func (c *Controller) LastError() error {
	return c.lastErr
}

// Override возвращает сохранённый кадр фото, если он есть.
func (c *Controller) Override(id string) (crop.Rect, bool) {
	r, ok := c.overrides[id]
	return r, ok
}

// Current возвращает данные активного виджета.
func (c *Controller) Current() (crop.Rect, bool) {
	if c.widget == nil {
		return crop.Rect{}, false
	}
	return c.widget.Data(), true
}

func (c *Controller) Photos() []crop.Photo {
	return append([]crop.Photo(nil), c.photos...)
}
