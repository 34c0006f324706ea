// Package indexer persists transfer records emitted by the gateway into
// SQLite database and answers queries about them.
package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/internal/indexer/migrations"
	"github.com/nspcc-dev/txlogger/settlement"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Transfer is an indexed transfer record.
type Transfer struct {
	common.TransferRecord

	// Invocation the transfer was settled in.
	TxID uuid.UUID
	// Index of the transfer within the request.
	Leg int
	// Gateway which settled the transfer.
	Gateway util.Uint160
}

// Store is a SQLite-backed transfer index. Store implements
// settlement.Observer.
type Store struct {
	db  *sql.DB
	log *zap.Logger

	// only TransactionSent events of this contract are indexed, any if zero
	gateway util.Uint160
}

// Prm groups Store parameters.
type Prm struct {
	// SQLite database file.
	Path string

	// Gateway to index transfers of. Transfers of all contracts are indexed
	// if not set.
	Gateway util.Uint160

	Logger *zap.Logger
}

// Open opens the index database and applies migrations.
func Open(ctx context.Context, prm Prm) (*Store, error) {
	if strings.TrimSpace(prm.Path) == "" {
		return nil, errors.New("index path is required")
	}

	dsn := filepath.Clean(prm.Path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	err = applyMigrations(ctx, db, migrations.FS, time.Now().UnixMilli())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{
		db:      db,
		log:     prm.Logger,
		gateway: prm.Gateway,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// OnPersist implements settlement.Observer. Failures are logged, the ledger
// state is not affected by them.
func (s *Store) OnPersist(res *settlement.AppExecResult) {
	if res.State != vmstate.Halt {
		return
	}

	n, err := s.Index(context.Background(), res)
	if err != nil {
		s.log.Error("failed to index transfers", zap.Stringer("tx", res.ID), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Debug("transfers indexed", zap.Stringer("tx", res.ID), zap.Int("count", n))
	}
}

// Index stores transfers of the committed invocation and returns their
// number. Indexing the same invocation twice has no effect.
func (s *Store) Index(ctx context.Context, res *settlement.AppExecResult) (int, error) {
	var transfers []Transfer

	for _, ev := range res.Notifications {
		if ev.Name != common.EventTransactionSent {
			continue
		}
		if !s.gateway.Equals(util.Uint160{}) && !ev.ScriptHash.Equals(s.gateway) {
			continue
		}

		rec, err := common.TransferRecordFromEvent(ev)
		if err != nil {
			return 0, err
		}

		transfers = append(transfers, Transfer{
			TransferRecord: rec,
			TxID:           res.ID,
			Leg:            len(transfers),
			Gateway:        ev.ScriptHash,
		})
	}

	if len(transfers) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	for _, t := range transfers {
		_, err = tx.ExecContext(ctx, `
INSERT OR IGNORE INTO transfers (
	tx_id,
	leg,
	gateway,
	sender,
	receiver,
	amount,
	timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
			t.TxID.String(),
			t.Leg,
			address.Uint160ToString(t.Gateway),
			address.Uint160ToString(t.Sender),
			address.Uint160ToString(t.Receiver),
			t.Amount,
			int64(t.Timestamp),
		)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert transfer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return len(transfers), nil
}

// BySender lists newest-first transfers sent by the account.
func (s *Store) BySender(ctx context.Context, acc util.Uint160, limit int) ([]Transfer, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}
	return s.query(ctx, `WHERE sender = ? ORDER BY timestamp DESC, tx_id, leg LIMIT ?`,
		address.Uint160ToString(acc), limit)
}

// ByReceiver lists newest-first transfers received by the account.
func (s *Store) ByReceiver(ctx context.Context, acc util.Uint160, limit int) ([]Transfer, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}
	return s.query(ctx, `WHERE receiver = ? ORDER BY timestamp DESC, tx_id, leg LIMIT ?`,
		address.Uint160ToString(acc), limit)
}

// ByTx lists transfers of the invocation in leg order.
func (s *Store) ByTx(ctx context.Context, id uuid.UUID) ([]Transfer, error) {
	return s.query(ctx, `WHERE tx_id = ? ORDER BY leg`, id.String())
}

func (s *Store) query(ctx context.Context, filter string, args ...any) ([]Transfer, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT
	tx_id,
	leg,
	gateway,
	sender,
	receiver,
	amount,
	timestamp
FROM transfers
`+filter, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var res []Transfer
	for rows.Next() {
		var (
			t                          Transfer
			txID, gw, sender, receiver string
			ts                         int64
		)

		err = rows.Scan(&txID, &t.Leg, &gw, &sender, &receiver, &t.Amount, &ts)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}

		t.TxID, err = uuid.Parse(txID)
		if err != nil {
			return nil, fmt.Errorf("invalid tx id %q: %w", txID, err)
		}
		if t.Gateway, err = address.StringToUint160(gw); err != nil {
			return nil, fmt.Errorf("invalid gateway %q: %w", gw, err)
		}
		if t.Sender, err = address.StringToUint160(sender); err != nil {
			return nil, fmt.Errorf("invalid sender %q: %w", sender, err)
		}
		if t.Receiver, err = address.StringToUint160(receiver); err != nil {
			return nil, fmt.Errorf("invalid receiver %q: %w", receiver, err)
		}
		t.Timestamp = uint64(ts)

		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}

	return res, nil
}
