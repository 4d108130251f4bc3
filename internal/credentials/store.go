package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store is a namespaced key-value store backed by the kv_store table.
type Store struct {
	db        *sql.DB
	namespace string
}

// NewStore creates a Store over db. The kv_store table must exist
// (see the migrations package).
func NewStore(db *sql.DB, namespace string) *Store {
	return &Store{db: db, namespace: namespace}
}

// Handle is scoped access to the store, valid only inside View or Update.
type Handle struct {
	ctx       context.Context
	tx        *sql.Tx
	namespace string
	writable  bool
}

// View runs fn with a read-only handle.
func (s *Store) View(ctx context.Context, fn func(h *Handle) error) error {
	return s.batch(ctx, false, fn)
}

// Update runs fn with a writable handle. The batch commits only if fn
// returns nil, so a failed batch never leaves partial writes.
func (s *Store) Update(ctx context.Context, fn func(h *Handle) error) error {
	return s.batch(ctx, true, fn)
}

func (s *Store) batch(ctx context.Context, writable bool, fn func(h *Handle) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: !writable})
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	h := &Handle{ctx: ctx, tx: tx, namespace: s.namespace, writable: writable}
	if err := fn(h); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("closing credential store: %w", err)
	}
	return nil
}

// Get returns the value stored under key, or "" if there is none.
func (h *Handle) Get(key string) (string, error) {
	var value string
	err := h.tx.QueryRowContext(h.ctx,
		"SELECT value FROM kv_store WHERE namespace = ? AND key = ?",
		h.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key.
func (h *Handle) Put(key, value string) error {
	if !h.writable {
		return ErrReadOnly
	}
	_, err := h.tx.ExecContext(h.ctx, `
		INSERT INTO kv_store (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		h.namespace, key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Clear removes every key in the namespace.
func (h *Handle) Clear() error {
	if !h.writable {
		return ErrReadOnly
	}
	if _, err := h.tx.ExecContext(h.ctx, "DELETE FROM kv_store WHERE namespace = ?", h.namespace); err != nil {
		return fmt.Errorf("clearing namespace %s: %w", h.namespace, err)
	}
	return nil
}

// Load reads both pairs. Missing keys yield empty pairs.
func (s *Store) Load(ctx context.Context) (primary, secondary Pair, err error) {
	primary = Pair{Label: Primary}
	secondary = Pair{Label: Secondary}

	err = s.View(ctx, func(h *Handle) error {
		for _, p := range []*Pair{&primary, &secondary} {
			ssidKey, secretKey := p.Label.keys()
			ssid, gerr := h.Get(ssidKey)
			if gerr != nil {
				return gerr
			}
			secret, gerr := h.Get(secretKey)
			if gerr != nil {
				return gerr
			}
			p.SSID, p.Secret = ssid, secret
		}
		return nil
	})
	if err != nil {
		return Pair{Label: Primary}, Pair{Label: Secondary}, err
	}
	return primary, secondary, nil
}

// Save writes both pairs in one batch, replacing whatever was stored.
func (s *Store) Save(ctx context.Context, primary, secondary Pair) error {
	primary.Label = Primary
	secondary.Label = Secondary
	if err := primary.Validate(); err != nil {
		return err
	}
	if err := secondary.Validate(); err != nil {
		return err
	}

	return s.Update(ctx, func(h *Handle) error {
		for _, p := range []Pair{primary, secondary} {
			ssidKey, secretKey := p.Label.keys()
			if err := h.Put(ssidKey, p.SSID); err != nil {
				return err
			}
			if err := h.Put(secretKey, p.Secret); err != nil {
				return err
			}
		}
		return nil
	})
}

// Reset erases both pairs.
func (s *Store) Reset(ctx context.Context) error {
	return s.Update(ctx, func(h *Handle) error {
		return h.Clear()
	})
}
