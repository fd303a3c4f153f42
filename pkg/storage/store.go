// Package storage persists the market core's state in Pebble: markets, the
// market id counter, positions and escrow accounts. Records are JSON; keys
// are prefixed byte strings (see keys.go). Every write is synced so a
// restart observes the last acknowledged mutation.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/pkg/core/account"
	"github.com/updownlabs/updown/pkg/core/market"
	"github.com/updownlabs/updown/pkg/core/position"
)

// Store is the single Pebble-backed store shared by the registry, ledger
// and vault.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) setJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// loadPrefix unmarshals every record under prefix via decode.
func (s *Store) loadPrefix(prefix []byte, decode func(val []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("iterate %q: %w", prefix, err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		val, err := iter.ValueAndErr()
		if err != nil {
			return fmt.Errorf("read %q: %w", iter.Key(), err)
		}
		if err := decode(val); err != nil {
			return fmt.Errorf("decode %q: %w", iter.Key(), err)
		}
	}
	return iter.Error()
}

// ---- market.Store ----

func (s *Store) SaveMarket(m *market.Market) error {
	return s.setJSON(marketKey(m.ID), m)
}

func (s *Store) LoadMarkets() ([]*market.Market, error) {
	var out []*market.Market
	err := s.loadPrefix([]byte(prefixMarket), func(val []byte) error {
		var m market.Market
		if err := json.Unmarshal(val, &m); err != nil {
			return err
		}
		out = append(out, &m)
		return nil
	})
	return out, err
}

func (s *Store) SaveNextMarketID(id uint64) error {
	if err := s.db.Set([]byte(keyNextMarket), u64be(id), pebble.Sync); err != nil {
		return fmt.Errorf("set market counter: %w", err)
	}
	return nil
}

func (s *Store) LoadNextMarketID() (uint64, error) {
	val, closer, err := s.db.Get([]byte(keyNextMarket))
	if err != nil {
		if err == pebble.ErrNotFound {
			return 1, nil
		}
		return 0, fmt.Errorf("get market counter: %w", err)
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0, fmt.Errorf("market counter: bad length %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// ---- position.Store ----

func (s *Store) SavePosition(p *position.Position) error {
	return s.setJSON(positionKey(p.MarketID, p.Owner), p)
}

func (s *Store) DeletePosition(marketID uint64, owner common.Address) error {
	if err := s.db.Delete(positionKey(marketID, owner), pebble.Sync); err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}

func (s *Store) LoadPositions() ([]*position.Position, error) {
	var out []*position.Position
	err := s.loadPrefix([]byte(prefixPosition), func(val []byte) error {
		var p position.Position
		if err := json.Unmarshal(val, &p); err != nil {
			return err
		}
		out = append(out, &p)
		return nil
	})
	return out, err
}

// ---- account.Store ----

func (s *Store) SaveAccount(a *account.Account) error {
	return s.setJSON(accountKey(a.Address), a)
}

func (s *Store) LoadAccounts() ([]*account.Account, error) {
	var out []*account.Account
	err := s.loadPrefix([]byte(prefixAccount), func(val []byte) error {
		var a account.Account
		if err := json.Unmarshal(val, &a); err != nil {
			return err
		}
		out = append(out, &a)
		return nil
	})
	return out, err
}

var (
	_ market.Store   = (*Store)(nil)
	_ position.Store = (*Store)(nil)
	_ account.Store  = (*Store)(nil)
)
