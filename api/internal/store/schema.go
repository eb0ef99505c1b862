package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
create table if not exists orders (
  id           bigserial primary key,
  order_number text not null unique,
  chat_id      bigint not null,
  user_id      bigint not null default 0,
  format       text not null default 'polaroid_standard',
  status       text not null default 'draft',
  created_at   timestamptz not null default now()
);
create index if not exists orders_chat_idx on orders(chat_id, created_at desc);

create table if not exists photos (
  id               bigserial primary key,
  order_id         bigint not null references orders(id) on delete cascade,
  position         int not null default 0,
  format           text not null default '',
  telegram_file_id text not null,
  width            int not null default 0,
  height           int not null default 0,
  auto_crop        jsonb,
  crop_data        jsonb,
  crop_confirmed   boolean not null default false,
  created_at       timestamptz not null default now()
);
create index if not exists photos_order_idx on photos(order_id, position);
`

// Migrate создаёт таблицы, если их ещё нет.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
