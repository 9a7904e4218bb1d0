package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/model"
)

// accountSlot is one arena cell. Its mutex guards balance, version and the
// active flag; the slot itself never moves once allocated.
type accountSlot struct {
	mu  sync.Mutex
	acc model.Account
}

// MemoryStore keeps accounts in an append-only arena indexed by id. Each
// account is mutated under its own lock, so it only offers single-account
// atomicity and deliberately does not implement BatchApplier.
type MemoryStore struct {
	mu    sync.RWMutex
	index map[string]int
	arena []*accountSlot

	txMu  sync.RWMutex
	txs   []*model.Transaction
	byID  map[string]int
	byRef map[string]int
	byKey map[string]int

	now func() time.Time
}

var _ Repository = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]int),
		byID:  make(map[string]int),
		byRef: make(map[string]int),
		byKey: make(map[string]int),
		now:   time.Now,
	}
}

func (m *MemoryStore) slot(id string) (*accountSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok {
		return nil, fmt.Errorf("account '%s': %w", id, ErrAccountNotFound)
	}
	return m.arena[i], nil
}

func (m *MemoryStore) CreateAccount(_ context.Context, acc *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[acc.ID]; ok {
		return fmt.Errorf("failed to create account '%s': %w", acc.ID, ErrAccountExists)
	}

	now := m.now().UTC()
	if acc.Version == 0 {
		acc.Version = 1
	}
	acc.Balance = 0
	acc.CreatedAt = now
	acc.UpdatedAt = now

	m.index[acc.ID] = len(m.arena)
	m.arena = append(m.arena, &accountSlot{acc: *acc})
	return nil
}

func (m *MemoryStore) GetAccount(_ context.Context, id string) (*model.Account, error) {
	s, err := m.slot(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.acc
	return &acc, nil
}

func (m *MemoryStore) GetAllAccounts(_ context.Context) ([]*model.Account, error) {
	m.mu.RLock()
	slots := make([]*accountSlot, len(m.arena))
	copy(slots, m.arena)
	m.mu.RUnlock()

	accounts := make([]*model.Account, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		acc := s.acc
		s.mu.Unlock()
		accounts = append(accounts, &acc)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (m *MemoryStore) SetAccountActive(_ context.Context, id string, active bool) error {
	s, err := m.slot(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.acc.Active = active
	s.acc.Version++
	s.acc.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) GetBalance(_ context.Context, id string) (int64, int64, error) {
	s, err := m.slot(id)
	if err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.Balance, s.acc.Version, nil
}

func (m *MemoryStore) ApplyDelta(_ context.Context, id string, delta int64, expectedVersion int64) (int64, int64, error) {
	s, err := m.slot(id)
	if err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acc.Version != expectedVersion || exceedsLimit(s.acc.Balance, delta) || s.acc.Balance < debitFloor(delta) {
		return 0, 0, diagnose(id, s.acc.Balance, s.acc.Version, delta, expectedVersion)
	}

	s.acc.Balance += delta
	s.acc.Version++
	s.acc.UpdatedAt = m.now().UTC()
	return s.acc.Balance, s.acc.Version, nil
}

func (m *MemoryStore) TotalBalance(ctx context.Context) (int64, error) {
	accounts, err := m.GetAllAccounts(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, acc := range accounts {
		total += acc.Balance
	}
	return total, nil
}

func (m *MemoryStore) AppendTransaction(_ context.Context, tx *model.Transaction) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if _, ok := m.byID[tx.ID]; ok {
		return fmt.Errorf("failed to append transaction %s: %w", tx.ID, ErrConstraintViolation)
	}
	if _, ok := m.byRef[tx.Reference]; ok {
		return fmt.Errorf("failed to append transaction %s: %w", tx.ID, ErrDuplicateReference)
	}
	if tx.IdempotencyKey != "" && !tx.Released {
		if _, ok := m.byKey[tx.IdempotencyKey]; ok {
			return fmt.Errorf("failed to append transaction %s: %w", tx.ID, ErrDuplicateKey)
		}
	}

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = m.now().UTC()
	}
	tx.UpdatedAt = tx.CreatedAt

	i := len(m.txs)
	m.txs = append(m.txs, tx.Clone())
	m.byID[tx.ID] = i
	m.byRef[tx.Reference] = i
	if tx.IdempotencyKey != "" && !tx.Released {
		m.byKey[tx.IdempotencyKey] = i
	}
	return nil
}

func (m *MemoryStore) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrRecordNotFound)
	}
	return m.txs[i].Clone(), nil
}

func (m *MemoryStore) GetTransactionByReference(_ context.Context, ref string) (*model.Transaction, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()

	i, ok := m.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("reference %s: %w", ref, ErrRecordNotFound)
	}
	return m.txs[i].Clone(), nil
}

func (m *MemoryStore) FindByIdempotencyKey(_ context.Context, key string) (*model.Transaction, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()

	if i, ok := m.byKey[key]; ok {
		return m.txs[i].Clone(), nil
	}
	if i, ok := m.byRef[key]; ok {
		return m.txs[i].Clone(), nil
	}
	return nil, fmt.Errorf("idempotency key %s: %w", key, ErrRecordNotFound)
}

func (m *MemoryStore) FinalizeTransaction(_ context.Context, id, status, reason string, released bool) error {
	if status != constants.StatusCompleted && status != constants.StatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	i, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrRecordNotFound)
	}

	tx := m.txs[i]
	if tx.Status != constants.StatusPending {
		return fmt.Errorf("transaction %s: %w", id, ErrAlreadyFinal)
	}

	tx.Status = status
	tx.FailureReason = reason
	tx.Released = released
	tx.UpdatedAt = m.now().UTC()
	if released && tx.IdempotencyKey != "" && m.byKey[tx.IdempotencyKey] == i {
		delete(m.byKey, tx.IdempotencyKey)
	}
	return nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, filter TransactionFilter) ([]*model.Transaction, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()

	var matched []*model.Transaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		tx := m.txs[i]
		if filter.AccountID != "" && !tx.Involves(filter.AccountID) {
			continue
		}
		if filter.Kind != "" && tx.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && tx.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && tx.CreatedAt.After(filter.To) {
			continue
		}
		matched = append(matched, tx)
	}

	// Newest first; insertion order breaks ties, matching the SQL stores.
	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].CreatedAt.After(matched[b].CreatedAt)
	})

	offset := filter.offset()
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + filter.limit()
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*model.Transaction, 0, end-offset)
	for _, tx := range matched[offset:end] {
		out = append(out, tx.Clone())
	}
	return out, nil
}

func (m *MemoryStore) CountByStatus(_ context.Context) (map[string]int, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()

	counts := make(map[string]int)
	for _, tx := range m.txs {
		counts[tx.Status]++
	}
	return counts, nil
}

func (m *MemoryStore) SumCompleted(_ context.Context, kind string) (int64, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()

	var total int64
	for _, tx := range m.txs {
		if tx.Kind == kind && tx.Status == constants.StatusCompleted {
			total += tx.Amount
		}
	}
	return total, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
