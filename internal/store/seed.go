package store

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"go.uber.org/zap"
)

var schema = heredoc.Doc(`
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		age INTEGER,
		city TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT,
		price REAL NOT NULL,
		stock INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		total_price REAL NOT NULL,
		order_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		status TEXT DEFAULT 'pending',
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (product_id) REFERENCES products(id)
	);
`)

var seedData = heredoc.Doc(`
	INSERT INTO users (name, email, age, city) VALUES
		('张三', 'zhangsan@example.com', 28, '北京'),
		('李四', 'lisi@example.com', 35, '上海'),
		('王五', 'wangwu@example.com', 42, '广州'),
		('赵六', 'zhaoliu@example.com', 31, '深圳'),
		('钱七', 'qianqi@example.com', 25, '杭州');

	INSERT INTO products (name, category, price, stock) VALUES
		('iPhone 15', '电子产品', 6999.00, 100),
		('MacBook Pro', '电子产品', 12999.00, 50),
		('AirPods Pro', '电子产品', 1899.00, 200),
		('Nike运动鞋', '服装', 599.00, 150),
		('Adidas T恤', '服装', 299.00, 300),
		('小米手环', '电子产品', 199.00, 500);

	INSERT INTO orders (user_id, product_id, quantity, total_price, status) VALUES
		(1, 1, 1, 6999.00, 'completed'),
		(1, 3, 2, 3798.00, 'completed'),
		(2, 2, 1, 12999.00, 'completed'),
		(3, 4, 2, 1198.00, 'completed'),
		(4, 6, 3, 597.00, 'pending'),
		(5, 5, 1, 299.00, 'completed'),
		(2, 5, 2, 598.00, 'completed'),
		(1, 2, 1, 12999.00, 'pending');
`)

// Seed creates the demo tables and fills them with sample rows. It is
// a no-op when the users table already holds data.
func (s *Store) Seed(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("check seed state: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, seedData); err != nil {
		return fmt.Errorf("insert seed data: %w", err)
	}
	s.logger.Info("Demo database seeded",
		zap.Int("users", 5), zap.Int("products", 6), zap.Int("orders", 8))
	return nil
}
