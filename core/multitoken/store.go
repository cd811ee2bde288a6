package multitoken

import (
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Database is the subset of a go-ethereum key-value store the reference
// ledger needs.
type Database interface {
	ethdb.KeyValueReader
	ethdb.Batcher
}

// Store is the reference Ledger implementation. Each operation stages its
// writes in memory and commits them with a single database batch, so a
// failing operation never leaves partial state behind.
type Store struct {
	db  Database
	mu  sync.Mutex
	log log.Logger
}

var _ Ledger = (*Store)(nil)

// NewStore returns a ledger backed by db.
func NewStore(db Database) *Store {
	return &Store{
		db:  db,
		log: log.New("module", "multitoken"),
	}
}

// Token returns the token registered under id.
func (s *Store) Token(id *uint256.Int) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := newChangeset(s.db).token(id)
	if err != nil {
		return nil, err
	}
	return &Token{
		ID:     id.Clone(),
		Owner:  rec.Owner,
		URI:    append([]byte(nil), rec.URI...),
		Supply: rec.Supply.Clone(),
	}, nil
}

// BalanceOf returns the balance of account for token id. Unknown tokens and
// accounts report zero.
func (s *Store) BalanceOf(account AccountID, id *uint256.Int) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return newChangeset(s.db).balance(id, account)
}

// IsApprovedForAll reports whether operator may act on owner's balances.
func (s *Store) IsApprovedForAll(owner, operator AccountID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return newChangeset(s.db).approved(owner, operator)
}

// CreateToken implements Ledger.
func (s *Store) CreateToken(origin AccountID, id *uint256.Int, uri []byte) error {
	return s.apply(func(cs *changeset) error {
		exists, err := cs.hasToken(id)
		if err != nil {
			return err
		}
		if exists {
			return errors.Wrapf(ErrTokenExists, "token %s", id.Dec())
		}
		cs.setToken(id, &tokenRecord{
			Owner:  origin,
			URI:    append([]byte(nil), uri...),
			Supply: new(uint256.Int),
		})
		s.log.Debug("Token created", "id", id.Dec(), "owner", origin)
		return nil
	})
}

// Mint implements Ledger.
func (s *Store) Mint(origin, to AccountID, id, amount *uint256.Int) error {
	return s.apply(func(cs *changeset) error {
		rec, err := cs.ownedToken(origin, id)
		if err != nil {
			return err
		}
		return cs.credit(rec, id, to, amount)
	})
}

// MintBatch implements Ledger.
func (s *Store) MintBatch(origin AccountID, id *uint256.Int, to []AccountID, amounts []*uint256.Int) error {
	if len(to) != len(amounts) {
		return errors.Wrapf(ErrInvalidArguments, "%d recipients, %d amounts", len(to), len(amounts))
	}
	return s.apply(func(cs *changeset) error {
		rec, err := cs.ownedToken(origin, id)
		if err != nil {
			return err
		}
		for i := range to {
			if err := cs.credit(rec, id, to[i], amounts[i]); err != nil {
				return errors.Wrapf(err, "item %d", i)
			}
		}
		return nil
	})
}

// SetApprovalForAll implements Ledger.
func (s *Store) SetApprovalForAll(origin, operator AccountID, approved bool) error {
	if origin == operator {
		return errors.Wrapf(ErrSelfApproval, "account %s", origin)
	}
	return s.apply(func(cs *changeset) error {
		cs.setApproval(origin, operator, approved)
		return nil
	})
}

// Burn implements Ledger.
func (s *Store) Burn(origin, from AccountID, id, amount *uint256.Int) error {
	return s.apply(func(cs *changeset) error {
		rec, err := cs.token(id)
		if err != nil {
			return err
		}
		if err := cs.authorize(origin, from); err != nil {
			return err
		}
		return cs.debit(rec, id, from, amount)
	})
}

// BurnBatch implements Ledger.
func (s *Store) BurnBatch(origin AccountID, id *uint256.Int, from []AccountID, amounts []*uint256.Int) error {
	if len(from) != len(amounts) {
		return errors.Wrapf(ErrInvalidArguments, "%d holders, %d amounts", len(from), len(amounts))
	}
	return s.apply(func(cs *changeset) error {
		rec, err := cs.token(id)
		if err != nil {
			return err
		}
		for i := range from {
			if err := cs.authorize(origin, from[i]); err != nil {
				return errors.Wrapf(err, "item %d", i)
			}
			if err := cs.debit(rec, id, from[i], amounts[i]); err != nil {
				return errors.Wrapf(err, "item %d", i)
			}
		}
		return nil
	})
}

// TransferFrom implements Ledger.
func (s *Store) TransferFrom(origin, from, to AccountID, id, amount *uint256.Int) error {
	return s.apply(func(cs *changeset) error {
		if _, err := cs.token(id); err != nil {
			return err
		}
		if err := cs.authorize(origin, from); err != nil {
			return err
		}
		return cs.move(id, from, to, amount)
	})
}

// BatchTransferFrom implements Ledger.
func (s *Store) BatchTransferFrom(origin, from, to AccountID, ids, amounts []*uint256.Int) error {
	if len(ids) != len(amounts) {
		return errors.Wrapf(ErrInvalidArguments, "%d ids, %d amounts", len(ids), len(amounts))
	}
	return s.apply(func(cs *changeset) error {
		if err := cs.authorize(origin, from); err != nil {
			return err
		}
		for i := range ids {
			if _, err := cs.token(ids[i]); err != nil {
				return errors.Wrapf(err, "item %d", i)
			}
			if err := cs.move(ids[i], from, to, amounts[i]); err != nil {
				return errors.Wrapf(err, "item %d", i)
			}
		}
		return nil
	})
}

// apply runs fn against a fresh changeset and commits it only if fn
// succeeds.
func (s *Store) apply(fn func(cs *changeset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs := newChangeset(s.db)
	if err := fn(cs); err != nil {
		return err
	}
	return cs.commit()
}

// changeset is an in-memory overlay of pending ledger writes.
type changeset struct {
	db        Database
	tokens    map[string]*tokenRecord
	balances  map[string]*uint256.Int
	approvals map[string]bool

	dirty map[string]struct{}
	order []string // first-write order of dirty keys, so commits are deterministic
}

func newChangeset(db Database) *changeset {
	return &changeset{
		db:        db,
		tokens:    make(map[string]*tokenRecord),
		balances:  make(map[string]*uint256.Int),
		approvals: make(map[string]bool),
		dirty:     make(map[string]struct{}),
	}
}

func (cs *changeset) markDirty(key string) {
	if _, ok := cs.dirty[key]; !ok {
		cs.dirty[key] = struct{}{}
		cs.order = append(cs.order, key)
	}
}

func (cs *changeset) hasToken(id *uint256.Int) (bool, error) {
	key := tokenKey(id)
	if _, ok := cs.tokens[string(key)]; ok {
		return true, nil
	}
	return cs.db.Has(key)
}

func (cs *changeset) token(id *uint256.Int) (*tokenRecord, error) {
	key := tokenKey(id)
	if rec, ok := cs.tokens[string(key)]; ok {
		return rec, nil
	}
	ok, err := cs.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrTokenNotFound, "token %s", id.Dec())
	}
	blob, err := cs.db.Get(key)
	if err != nil {
		return nil, err
	}
	rec := new(tokenRecord)
	if err := rlp.DecodeBytes(blob, rec); err != nil {
		return nil, errors.Wrapf(err, "decode token %s", id.Dec())
	}
	if rec.Supply == nil {
		rec.Supply = new(uint256.Int)
	}
	cs.tokens[string(key)] = rec
	return rec, nil
}

func (cs *changeset) setToken(id *uint256.Int, rec *tokenRecord) {
	key := string(tokenKey(id))
	cs.tokens[key] = rec
	cs.markDirty(key)
}

// ownedToken loads token id and checks that origin owns it.
func (cs *changeset) ownedToken(origin AccountID, id *uint256.Int) (*tokenRecord, error) {
	rec, err := cs.token(id)
	if err != nil {
		return nil, err
	}
	if rec.Owner != origin {
		return nil, errors.Wrapf(ErrNoPermission, "account %s does not own token %s", origin, id.Dec())
	}
	return rec, nil
}

func (cs *changeset) balance(id *uint256.Int, account AccountID) (*uint256.Int, error) {
	key := balanceKey(id, account)
	if bal, ok := cs.balances[string(key)]; ok {
		return bal.Clone(), nil
	}
	ok, err := cs.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(uint256.Int), nil
	}
	blob, err := cs.db.Get(key)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(blob), nil
}

func (cs *changeset) setBalance(id *uint256.Int, account AccountID, bal *uint256.Int) {
	key := string(balanceKey(id, account))
	cs.balances[key] = bal
	cs.markDirty(key)
}

func (cs *changeset) approved(owner, operator AccountID) (bool, error) {
	key := approvalKey(owner, operator)
	if ok, seen := cs.approvals[string(key)]; seen {
		return ok, nil
	}
	return cs.db.Has(key)
}

func (cs *changeset) setApproval(owner, operator AccountID, approved bool) {
	key := string(approvalKey(owner, operator))
	cs.approvals[key] = approved
	cs.markDirty(key)
}

// authorize checks that origin may act on from's balances.
func (cs *changeset) authorize(origin, from AccountID) error {
	if origin == from {
		return nil
	}
	ok, err := cs.approved(from, origin)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrNoPermission, "account %s is not an operator of %s", origin, from)
	}
	return nil
}

func (cs *changeset) credit(rec *tokenRecord, id *uint256.Int, to AccountID, amount *uint256.Int) error {
	supply, overflow := new(uint256.Int).AddOverflow(rec.Supply, amount)
	if overflow {
		return errors.Wrapf(ErrBalanceOverflow, "supply of token %s", id.Dec())
	}
	bal, err := cs.balance(id, to)
	if err != nil {
		return err
	}
	bal, overflow = bal.AddOverflow(bal, amount)
	if overflow {
		return errors.Wrapf(ErrBalanceOverflow, "account %s token %s", to, id.Dec())
	}
	rec.Supply = supply
	cs.setToken(id, rec)
	cs.setBalance(id, to, bal)
	return nil
}

func (cs *changeset) debit(rec *tokenRecord, id *uint256.Int, from AccountID, amount *uint256.Int) error {
	bal, err := cs.balance(id, from)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return errors.Wrapf(ErrInsufficientBalance, "account %s token %s: have %s, want %s", from, id.Dec(), bal.Dec(), amount.Dec())
	}
	rec.Supply = new(uint256.Int).Sub(rec.Supply, amount)
	cs.setToken(id, rec)
	cs.setBalance(id, from, bal.Sub(bal, amount))
	return nil
}

func (cs *changeset) move(id *uint256.Int, from, to AccountID, amount *uint256.Int) error {
	src, err := cs.balance(id, from)
	if err != nil {
		return err
	}
	if src.Lt(amount) {
		return errors.Wrapf(ErrInsufficientBalance, "account %s token %s: have %s, want %s", from, id.Dec(), src.Dec(), amount.Dec())
	}
	cs.setBalance(id, from, src.Sub(src, amount))

	// Read the destination after the debit so from == to nets out.
	dst, err := cs.balance(id, to)
	if err != nil {
		return err
	}
	dst, overflow := dst.AddOverflow(dst, amount)
	if overflow {
		return errors.Wrapf(ErrBalanceOverflow, "account %s token %s", to, id.Dec())
	}
	cs.setBalance(id, to, dst)
	return nil
}

// commit writes every staged entry in a single batch.
func (cs *changeset) commit() error {
	batch := cs.db.NewBatch()
	for _, key := range cs.order {
		var err error
		switch {
		case cs.tokens[key] != nil:
			var blob []byte
			if blob, err = rlp.EncodeToBytes(cs.tokens[key]); err == nil {
				err = batch.Put([]byte(key), blob)
			}
		case cs.balances[key] != nil:
			if bal := cs.balances[key]; bal.IsZero() {
				err = batch.Delete([]byte(key))
			} else {
				err = batch.Put([]byte(key), bal.Bytes())
			}
		default:
			if approved, ok := cs.approvals[key]; ok {
				if approved {
					err = batch.Put([]byte(key), []byte{0x01})
				} else {
					err = batch.Delete([]byte(key))
				}
			}
		}
		if err != nil {
			return err
		}
	}
	return batch.Write()
}
