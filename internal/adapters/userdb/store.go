// Package userdb is the SQLite credential store. Clients send a password
// hash; the store keeps a bcrypt of it.
package userdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/webcat/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

var (
	ErrUserExists = errors.New("user already exists")
	ErrNoSuchUser = errors.New("no such user")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password TEXT NOT NULL,
	type     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS friends (
	username TEXT NOT NULL,
	friend   TEXT NOT NULL,
	PRIMARY KEY (username, friend)
);
`

type Options struct {
	Path     string
	PoolSize int
	// Cost is the bcrypt cost for new passwords.
	Cost int
}

// Store implements core.CredentialStore.
type Store struct {
	pool *sqlitex.Pool
	cost int
}

func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("userdb: path is required")
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 4
	}
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	pool, err := sqlitex.NewPool(opts.Path, sqlitex.PoolOptions{
		PoolSize:    opts.PoolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("userdb: opening %s: %w", opts.Path, err)
	}
	log.Info().Str("module", "userdb").Str("path", opts.Path).Int("pool_size", opts.PoolSize).Msg("opened")
	return &Store{pool: pool, cost: opts.Cost}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("userdb: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("userdb: schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("userdb: take: %w", err)
	}
	return conn, nil
}

func (s *Store) Authenticate(ctx context.Context, username, hash string) bool {
	stored, err := s.password(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrNoSuchUser) {
			log.Error().Err(err).Str("module", "userdb").Str("user", username).Msg("authenticate")
		}
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(hash)) == nil
}

func (s *Store) password(ctx context.Context, username string) (string, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return "", err
	}
	defer s.pool.Put(conn)

	var stored string
	found := false
	err = sqlitex.Execute(conn, `SELECT password FROM users WHERE username = ?`, &sqlitex.ExecOptions{
		Args: []any{username},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stored = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("userdb: password: %w", err)
	}
	if !found {
		return "", ErrNoSuchUser
	}
	return stored, nil
}

// UserType reports UserTypeUnknown for missing users and on errors.
func (s *Store) UserType(ctx context.Context, username string) domain.UserType {
	conn, err := s.take(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "userdb").Msg("user type")
		return domain.UserTypeUnknown
	}
	defer s.pool.Put(conn)

	kind := domain.UserTypeUnknown
	err = sqlitex.Execute(conn, `SELECT type FROM users WHERE username = ?`, &sqlitex.ExecOptions{
		Args: []any{username},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			kind, _ = domain.ParseUserType(stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		log.Error().Err(err).Str("module", "userdb").Str("user", username).Msg("user type")
		return domain.UserTypeUnknown
	}
	return kind
}

func (s *Store) ListFriends(ctx context.Context, username string) []string {
	conn, err := s.take(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "userdb").Msg("list friends")
		return nil
	}
	defer s.pool.Put(conn)

	var friends []string
	err = sqlitex.Execute(conn, `SELECT friend FROM friends WHERE username = ? ORDER BY friend`, &sqlitex.ExecOptions{
		Args: []any{username},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			friends = append(friends, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		log.Error().Err(err).Str("module", "userdb").Str("user", username).Msg("list friends")
		return nil
	}
	return friends
}

func (s *Store) SetPassword(ctx context.Context, username, hash string) bool {
	if err := s.ChangePassword(ctx, username, hash); err != nil {
		log.Error().Err(err).Str("module", "userdb").Str("user", username).Msg("set password")
		return false
	}
	return true
}

// ChangePassword is SetPassword with the failure reason.
func (s *Store) ChangePassword(ctx context.Context, username, hash string) error {
	stored, err := bcrypt.GenerateFromPassword([]byte(hash), s.cost)
	if err != nil {
		return fmt.Errorf("userdb: hash password: %w", err)
	}
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `UPDATE users SET password = ? WHERE username = ?`, &sqlitex.ExecOptions{
		Args: []any{string(stored), username},
	})
	if err != nil {
		return fmt.Errorf("userdb: set password: %w", err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchUser, username)
	}
	return nil
}

// CreateUser adds an account. Only human, robot and admin are stored.
func (s *Store) CreateUser(ctx context.Context, username, hash string, kind domain.UserType) (err error) {
	if err := domain.ValidateName(username); err != nil {
		return fmt.Errorf("userdb: create %q: %w", username, err)
	}
	if kind == domain.UserTypeUnknown {
		return fmt.Errorf("userdb: create %q: unknown user type", username)
	}
	stored, err := bcrypt.GenerateFromPassword([]byte(hash), s.cost)
	if err != nil {
		return fmt.Errorf("userdb: hash password: %w", err)
	}
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("userdb: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	exists, err := userExists(conn, username)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	err = sqlitex.Execute(conn, `INSERT INTO users (username, password, type) VALUES (?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{username, string(stored), kind.String()},
	})
	if err != nil {
		return fmt.Errorf("userdb: insert user: %w", err)
	}
	log.Info().Str("module", "userdb").Str("user", username).Str("type", kind.String()).Msg("user created")
	return nil
}

// MakeFriends records a symmetric friendship. Repeating it is a no-op.
func (s *Store) MakeFriends(ctx context.Context, a, b string) (err error) {
	if a == b {
		return fmt.Errorf("userdb: %s cannot befriend itself", a)
	}
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("userdb: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	for _, name := range []string{a, b} {
		exists, err := userExists(conn, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrNoSuchUser, name)
		}
	}
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		err = sqlitex.Execute(conn, `INSERT OR IGNORE INTO friends (username, friend) VALUES (?, ?)`, &sqlitex.ExecOptions{
			Args: []any{pair[0], pair[1]},
		})
		if err != nil {
			return fmt.Errorf("userdb: insert friend: %w", err)
		}
	}
	return nil
}

func userExists(conn *sqlite.Conn, username string) (bool, error) {
	found := false
	err := sqlitex.Execute(conn, `SELECT 1 FROM users WHERE username = ?`, &sqlitex.ExecOptions{
		Args: []any{username},
		ResultFunc: func(*sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("userdb: lookup user: %w", err)
	}
	return found, nil
}
