package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"photo-crop/api/internal/crop"
)

var ErrNotFound = sql.ErrNoRows

const (
	StatusDraft   = "draft"
	StatusCropped = "cropped"   // кадры подтверждены пользователем
	StatusAuto    = "auto_crop" // пользователь пропустил ручное кадрирование
)

type Order struct {
	ID          int64
	OrderNumber string
	ChatID      int64
	UserID      int64
	Format      string
	Status      string
	CreatedAt   time.Time
}

// PhotoRow — фото заказа вместе с авто-кадром и подтверждённым кадром.
type PhotoRow struct {
	ID             int64
	OrderID        int64
	Position       int
	Format         string
	TelegramFileID string
	Width, Height  int
	AutoCrop       *crop.WireAutoCrop
	CropData       *crop.Rect
	CropConfirmed  bool
}

// CropUpdate — кадр одного фото из результата сессии.
type CropUpdate struct {
	PhotoID int64
	Crop    crop.Rect
}

type OrderRepo struct {
	DB   *sql.DB
	Now  func() time.Time
	Rand io.Reader // источник для номеров заказов; nil — crypto/rand
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{DB: db, Now: time.Now, Rand: rand.Reader}
}

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderNumber — номер для клиента в формате YYMMDD-XXXX.
// Символы выбираются равномерно из алфавита.
func NewOrderNumber(rnd io.Reader, now time.Time) (string, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	n := big.NewInt(int64(len(orderNumberAlphabet)))
	var b [4]byte
	for i := range b {
		k, err := rand.Int(rnd, n)
		if err != nil {
			return "", fmt.Errorf("order number: %w", err)
		}
		b[i] = orderNumberAlphabet[k.Int64()]
	}
	return now.Format("060102") + "-" + string(b[:]), nil
}

func (r *OrderRepo) Create(ctx context.Context, chatID, userID int64, format string) (Order, error) {
	if _, ok := crop.FormatRatio(format); !ok {
		return Order{}, fmt.Errorf("unknown format %q", format)
	}
	number, err := NewOrderNumber(r.Rand, r.Now())
	if err != nil {
		return Order{}, err
	}
	o := Order{
		OrderNumber: number,
		ChatID:      chatID,
		UserID:      userID,
		Format:      format,
		Status:      StatusDraft,
	}
	const q = `
insert into orders(order_number, chat_id, user_id, format, status)
values ($1,$2,$3,$4,$5)
returning id, created_at`
	if err := r.DB.QueryRowContext(ctx, q, o.OrderNumber, chatID, userID, format, o.Status).Scan(&o.ID, &o.CreatedAt); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

const orderCols = `id, order_number, chat_id, user_id, format, status, created_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.ChatID, &o.UserID, &o.Format, &o.Status, &o.CreatedAt)
	return o, err
}

func (r *OrderRepo) Get(ctx context.Context, id int64) (Order, error) {
	q := `select ` + orderCols + ` from orders where id = $1`
	return scanOrder(r.DB.QueryRowContext(ctx, q, id))
}

// LatestForChat — последний заказ чата в статусе draft.
func (r *OrderRepo) LatestForChat(ctx context.Context, chatID int64) (Order, error) {
	q := `select ` + orderCols + ` from orders
where chat_id = $1 and status = $2
order by created_at desc
limit 1`
	return scanOrder(r.DB.QueryRowContext(ctx, q, chatID, StatusDraft))
}

func (r *OrderRepo) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := r.DB.ExecContext(ctx, `update orders set status=$2 where id=$1`, id, status)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

// AddPhoto добавляет фото в конец заказа и возвращает его id.
func (r *OrderRepo) AddPhoto(ctx context.Context, p PhotoRow) (int64, error) {
	var auto []byte
	if p.AutoCrop != nil {
		auto, _ = json.Marshal(p.AutoCrop)
	}
	const q = `
insert into photos(order_id, position, format, telegram_file_id, width, height, auto_crop)
values ($1, (select coalesce(max(position), -1) + 1 from photos where order_id = $1), $2, $3, $4, $5, $6)
returning id`
	var id int64
	if err := r.DB.QueryRowContext(ctx, q, p.OrderID, p.Format, p.TelegramFileID, p.Width, p.Height, nullJSON(auto)).Scan(&id); err != nil {
		return 0, fmt.Errorf("add photo: %w", err)
	}
	return id, nil
}

const photoCols = `id, order_id, position, format, telegram_file_id, width, height, auto_crop, crop_data, crop_confirmed`

func scanPhoto(row interface{ Scan(...any) error }) (PhotoRow, error) {
	var (
		p          PhotoRow
		auto, data []byte
	)
	if err := row.Scan(&p.ID, &p.OrderID, &p.Position, &p.Format, &p.TelegramFileID,
		&p.Width, &p.Height, &auto, &data, &p.CropConfirmed); err != nil {
		return PhotoRow{}, err
	}
	if len(auto) > 0 {
		var a crop.WireAutoCrop
		if err := json.Unmarshal(auto, &a); err == nil {
			p.AutoCrop = &a
		}
	}
	if len(data) > 0 {
		var c crop.Rect
		if err := json.Unmarshal(data, &c); err == nil {
			p.CropData = &c
		}
	}
	return p, nil
}

func (r *OrderRepo) Photos(ctx context.Context, orderID int64) ([]PhotoRow, error) {
	q := `select ` + photoCols + ` from photos where order_id = $1 order by position, id`
	rows, err := r.DB.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PhotoRow
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *OrderRepo) Photo(ctx context.Context, orderID, photoID int64) (PhotoRow, error) {
	q := `select ` + photoCols + ` from photos where order_id = $1 and id = $2`
	return scanPhoto(r.DB.QueryRowContext(ctx, q, orderID, photoID))
}

// SaveCrops сохраняет подтверждённые кадры одной транзакцией и помечает
// заказ как откадрированный. Фото чужого заказа пропускаются.
func (r *OrderRepo) SaveCrops(ctx context.Context, orderID int64, crops []CropUpdate) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `update photos set crop_data=$3, crop_confirmed=true where id=$1 and order_id=$2`
	saved := 0
	for _, c := range crops {
		js, err := json.Marshal(c.Crop)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, q, c.PhotoID, orderID, js)
		if err != nil {
			return 0, fmt.Errorf("save crop %d: %w", c.PhotoID, err)
		}
		if aff, _ := res.RowsAffected(); aff > 0 {
			saved++
		}
	}
	if saved > 0 {
		if _, err := tx.ExecContext(ctx, `update orders set status=$2 where id=$1`, orderID, StatusCropped); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return saved, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
