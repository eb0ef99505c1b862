package session

import (
	"context"
	"errors"

	"photo-crop/api/internal/crop"
)

var (
	ErrNoSink = errors.New("session: nowhere to submit (no remote order and no host bridge)")
	ErrBusy   = errors.New("session: submit already in progress")
	ErrClosed = errors.New("session: closed")
)

// Image — загруженная картинка, которую получает виджет кадрирования.
type Image struct {
	URL    string
	Width  int
	Height int
}

type ImageLoader interface {
	Load(ctx context.Context, url string) (Image, error)
}

type WidgetOptions struct {
	AspectRatio float64    // 0 — свободное соотношение
	Initial     *crop.Rect // nil — собственное кадрирование виджета по умолчанию
}

// Widget — внешний интерактивный crop-box. Геометрия, перетаскивание
// и отрисовка живут в нём, контроллер только читает и задаёт данные.
type Widget interface {
	Data() crop.Rect // округлённая текущая геометрия
	SetData(r crop.Rect)
	Reset()
	Rotate(deg int)
	ScaleX(v float64)
	Destroy()
}

type WidgetFactory interface {
	NewWidget(img Image, opts WidgetOptions) Widget
}

// Bridge — мост хост-приложения (Telegram WebApp и аналоги).
// Опционален: nil означает, что хоста нет.
type Bridge interface {
	Theme() map[string]string
	LaunchData() string
	UserID() int64
	SendData(data string) error
	Close() error
}

// Order — список фото заказа с сервера; URL уже абсолютные.
type Order struct {
	ID     string
	Number string
	Photos []crop.Photo
}

type Source interface {
	FetchOrder(ctx context.Context, orderID string) (Order, error)
	SaveCrops(ctx context.Context, p Payload) error
}

// Snapshot — всё, что нужно слою отображения про текущее фото.
type Snapshot struct {
	Index     int
	Total     int
	Photo     crop.Photo
	Indicator crop.Indicator
	CanPrev   bool
	CanNext   bool
}

// View — слой привязки к UI; контроллер не знает про конкретные элементы.
type View interface {
	ApplyTheme(theme map[string]string)
	ShowPhoto(s Snapshot)
	ShowLoading()
	ShowEditor(r crop.Rect)
	ShowError(err error)
	ShowSubmitting()
	ShowSubmitSuccess(saved int)
	ShowSubmitFailure(err error)
	Close()
}
