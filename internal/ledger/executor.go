package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/events"
	"github.com/hance08/purse/internal/model"
	"github.com/hance08/purse/internal/reference"
	"github.com/hance08/purse/internal/store"
	"github.com/hance08/purse/internal/utils"
	"github.com/hance08/purse/internal/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	compensationAttempts = 50
	finalizeAttempts     = 5
)

// Metric statuses for calls that did not run an attempt of their own.
const (
	outcomeRejected = "rejected"
	outcomeReplayed = "replayed"
)

type Config struct {
	// Currency is only used to render event text.
	Currency       string
	MaxDescription int
	MaxRetries     int
	RetryBackoff   time.Duration
}

// TransferRequest moves Amount from SenderID to ReceiverID. An empty
// SenderID makes it a top-up from an already verified external source.
type TransferRequest struct {
	SenderID       string
	ReceiverID     string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

func (r TransferRequest) Kind() string {
	if r.SenderID == "" {
		return constants.KindTopUp
	}
	return constants.KindTransfer
}

// Executor validates and applies balance movements. It holds no locks of
// its own: every balance write goes through the store's version check.
type Executor struct {
	accounts store.AccountRepository
	txlog    store.TransactionRepository
	refs     reference.Allocator
	notifier events.Notifier
	logger   *zap.Logger
	cfg      Config

	inflight singleflight.Group
	newID    func() string
	metrics  Recorder
}

// Recorder receives attempt outcomes for metrics.
type Recorder interface {
	ObserveTransfer(kind, status, reason string, elapsed time.Duration)
	ObserveCompensation(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTransfer(string, string, string, time.Duration) {}
func (nopRecorder) ObserveCompensation(bool)                              {}

func NewExecutor(
	accounts store.AccountRepository,
	txlog store.TransactionRepository,
	refs reference.Allocator,
	notifier events.Notifier,
	logger *zap.Logger,
	cfg Config,
) *Executor {
	if notifier == nil {
		notifier = events.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxDescription <= 0 {
		cfg.MaxDescription = constants.MaxDescriptionLen
	}

	return &Executor{
		accounts: accounts,
		txlog:    txlog,
		refs:     refs,
		notifier: notifier,
		logger:   logger.Named("ledger"),
		cfg:      cfg,
		newID:    uuid.NewString,
		metrics:  nopRecorder{},
	}
}

func (e *Executor) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	e.metrics = r
}

// ExecuteTransfer runs one transfer attempt to a terminal status.
//
// Validation errors return no transaction. Business rejections return the
// failed transaction recorded for audit together with the error. A request
// whose idempotency key (or reference code) is already on record returns that
// transaction instead of executing again.
func (e *Executor) ExecuteTransfer(ctx context.Context, req TransferRequest) (tx *model.Transaction, err error) {
	start := time.Now()
	id := e.newID()
	defer func() {
		status, reason := outcomeRejected, Code(err)
		if tx != nil {
			status, reason = tx.Status, tx.FailureReason
			if tx.ID != id {
				status = outcomeReplayed
			}
		}
		e.metrics.ObserveTransfer(req.Kind(), status, reason, time.Since(start))
	}()

	amount, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey == "" {
		return e.execute(ctx, req, amount, id)
	}

	for {
		var (
			v      any
			shared bool
			ran    bool
		)
		v, err, shared = e.inflight.Do(req.IdempotencyKey, func() (any, error) {
			ran = true
			return e.execute(ctx, req, amount, id)
		})

		// The attempt we joined was abandoned by its own caller before it
		// recorded anything; ours is still wanted, so go again.
		if !ran && canceled(err) && ctx.Err() == nil {
			continue
		}

		tx, _ = v.(*model.Transaction)
		if tx != nil && shared {
			tx = tx.Clone()
		}
		return tx, err
	}
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (e *Executor) validate(req TransferRequest) (int64, error) {
	if !req.Amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}

	amount, err := utils.ToCents(req.Amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	if req.ReceiverID == "" {
		return 0, fmt.Errorf("%w: receiver is required", ErrAccountNotFound)
	}

	if req.SenderID == req.ReceiverID {
		return 0, ErrSelfTransfer
	}

	if err := validation.ValidateDescription(req.Description, e.cfg.MaxDescription); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	return amount, nil
}

func (e *Executor) execute(ctx context.Context, req TransferRequest, amount int64, txID string) (*model.Transaction, error) {
	if req.IdempotencyKey != "" {
		existing, err := e.txlog.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			e.logger.Info("duplicate transfer request",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("transaction_id", existing.ID),
				zap.String("status", existing.Status))
			return replay(existing)
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
		}
	}

	// Reads happen in id order so every attempt touching the same pair
	// observes and applies them in the same sequence.
	ids := []string{req.ReceiverID}
	if req.SenderID != "" {
		ids = append(ids, req.SenderID)
		sort.Strings(ids)
	}

	snapshot := make(map[string]*model.Account, len(ids))
	for _, id := range ids {
		acc, err := e.accounts.GetAccount(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				return e.reject(ctx, req, amount, txID, fmt.Errorf("%w: '%s'", ErrAccountNotFound, id))
			}
			return nil, fmt.Errorf("failed to read account '%s': %w", id, err)
		}
		if !acc.Active {
			return e.reject(ctx, req, amount, txID, fmt.Errorf("%w: '%s'", ErrAccountInactive, id))
		}
		snapshot[id] = acc
	}

	if req.SenderID != "" && snapshot[req.SenderID].Balance < amount {
		return e.reject(ctx, req, amount, txID, fmt.Errorf("%w: '%s' has %s, needs %s", ErrInsufficientFunds,
			req.SenderID, utils.FormatFromCents(snapshot[req.SenderID].Balance), utils.FormatFromCents(amount)))
	}

	tx, err := e.newTransaction(req, amount, txID)
	if err != nil {
		return nil, err
	}

	if err := e.txlog.AppendTransaction(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return e.replayAfterRace(ctx, req.IdempotencyKey)
		}
		return nil, fmt.Errorf("failed to record pending transaction: %w", err)
	}

	// From here on the attempt always reaches a terminal status; a caller
	// that gives up only stops waiting.
	ctx = context.WithoutCancel(ctx)

	if err := e.apply(ctx, tx, snapshot); err != nil {
		return e.fail(ctx, tx, err)
	}
	return e.complete(ctx, tx)
}

func replay(tx *model.Transaction) (*model.Transaction, error) {
	if tx.Status == constants.StatusFailed {
		return tx, ErrorFromCode(tx.FailureReason)
	}
	return tx, nil
}

// replayAfterRace handles losing the idempotency key to another process
// between the lookup and the insert.
func (e *Executor) replayAfterRace(ctx context.Context, key string) (*model.Transaction, error) {
	existing, err := e.txlog.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency key %s is held by a concurrent attempt", ErrConflictRetryable, key)
	}
	return replay(existing)
}

func (e *Executor) newTransaction(req TransferRequest, amount int64, txID string) (*model.Transaction, error) {
	ref, err := e.refs.Allocate()
	if err != nil {
		e.logger.Error("reference allocation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrReferenceUnavailable, err)
	}

	tx := &model.Transaction{
		ID:             txID,
		ReceiverID:     req.ReceiverID,
		Amount:         amount,
		Kind:           req.Kind(),
		Status:         constants.StatusPending,
		Description:    req.Description,
		Reference:      ref,
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.SenderID != "" {
		sender := req.SenderID
		tx.SenderID = &sender
	}
	return tx, nil
}

// reject records a failed transaction for a business failure detected
// before any balance was touched.
func (e *Executor) reject(ctx context.Context, req TransferRequest, amount int64, txID string, cause error) (*model.Transaction, error) {
	tx, err := e.newTransaction(req, amount, txID)
	if err != nil {
		return nil, err
	}
	tx.Status = constants.StatusFailed
	tx.FailureReason = Code(cause)

	if err := e.txlog.AppendTransaction(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return e.replayAfterRace(ctx, req.IdempotencyKey)
		}
		e.logger.Error("failed to record rejected transfer",
			zap.String("reference", tx.Reference),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return nil, cause
	}

	e.logOutcome(tx, cause)
	e.publish(ctx, tx)
	return tx, cause
}

func (e *Executor) apply(ctx context.Context, tx *model.Transaction, snapshot map[string]*model.Account) error {
	receiver := snapshot[tx.ReceiverID]
	if tx.SenderID == nil {
		_, _, err := e.accounts.ApplyDelta(ctx, receiver.ID, tx.Amount, receiver.Version)
		return e.classifySingle(ctx, receiver.ID, receiver.Version, err)
	}

	sender := snapshot[*tx.SenderID]
	if batch, ok := e.accounts.(store.BatchApplier); ok {
		deltas := []store.Delta{
			{AccountID: sender.ID, Amount: -tx.Amount, ExpectedVersion: sender.Version},
			{AccountID: receiver.ID, Amount: tx.Amount, ExpectedVersion: receiver.Version},
		}
		sort.Slice(deltas, func(i, j int) bool { return deltas[i].AccountID < deltas[j].AccountID })

		_, err := batch.ApplyDeltas(ctx, deltas)
		return classify(err)
	}

	return e.debitThenCredit(ctx, tx, sender, receiver)
}

// debitThenCredit is the path for stores with single-account atomicity only.
// A refused credit is undone by crediting the sender back.
func (e *Executor) debitThenCredit(ctx context.Context, tx *model.Transaction, sender, receiver *model.Account) error {
	_, debitedVersion, err := e.accounts.ApplyDelta(ctx, sender.ID, -tx.Amount, sender.Version)
	if err != nil {
		return e.classifySingle(ctx, sender.ID, sender.Version, err)
	}

	_, _, err = e.accounts.ApplyDelta(ctx, receiver.ID, tx.Amount, receiver.Version)
	if err == nil {
		return nil
	}
	cause := e.classifySingle(ctx, receiver.ID, receiver.Version, err)
	if errors.Is(cause, ErrInternalFailure) {
		// The credit may have landed; reversing the debit could create money.
		return cause
	}

	cerr := e.compensate(ctx, sender.ID, tx.Amount, debitedVersion)
	e.metrics.ObserveCompensation(cerr == nil)
	if cerr != nil {
		return fmt.Errorf("%w: reversing debit of '%s' failed: %v (credit refused: %v)", ErrInternalFailure, sender.ID, cerr, err)
	}

	e.logger.Info("debit reversed",
		zap.String("transaction_id", tx.ID),
		zap.String("account_id", sender.ID),
		zap.NamedError("cause", err))
	return cause
}

func (e *Executor) compensate(ctx context.Context, id string, amount, version int64) error {
	var lastErr error
	for attempt := 0; attempt < compensationAttempts; attempt++ {
		_, _, lastErr = e.accounts.ApplyDelta(ctx, id, amount, version)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, store.ErrVersionConflict) {
			return lastErr
		}

		_, current, err := e.accounts.GetBalance(ctx, id)
		if err != nil {
			return err
		}
		version = current
	}
	return lastErr
}

// classify maps a store refusal onto the ledger taxonomy. It serves the batch
// path, where an error the store could not explain rolled the whole
// storage transaction back and is worth retrying.
func classify(err error) error {
	if known := classifyKnown(err); known != nil || err == nil {
		return known
	}
	return fmt.Errorf("%w: %v", ErrConflictRetryable, err)
}

func classifyKnown(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrVersionConflict):
		return fmt.Errorf("%w: %v", ErrConflictRetryable, err)
	case errors.Is(err, store.ErrInsufficientFunds):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	case errors.Is(err, store.ErrBalanceLimit):
		return fmt.Errorf("%w: %v", ErrBalanceLimit, err)
	case errors.Is(err, store.ErrAccountNotFound):
		return fmt.Errorf("%w: %v", ErrAccountNotFound, err)
	default:
		return nil
	}
}

// classifySingle maps the outcome of one ApplyDelta. An unexplained error
// may still have committed, so the account version decides: unchanged means
// nothing was written, anything else is an unknown outcome.
func (e *Executor) classifySingle(ctx context.Context, id string, expectedVersion int64, err error) error {
	if known := classifyKnown(err); known != nil || err == nil {
		return known
	}

	_, version, rerr := e.accounts.GetBalance(ctx, id)
	if rerr == nil && version == expectedVersion {
		return fmt.Errorf("%w: %v", ErrConflictRetryable, err)
	}
	if rerr != nil {
		return fmt.Errorf("%w: outcome of delta on '%s' unknown: %v (re-read failed: %v)", ErrInternalFailure, id, err, rerr)
	}
	return fmt.Errorf("%w: outcome of delta on '%s' unknown, version moved %d -> %d: %v", ErrInternalFailure, id, expectedVersion, version, err)
}

func (e *Executor) complete(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	tx.Status = constants.StatusCompleted
	if err := e.finalize(ctx, tx); err != nil {
		return tx, err
	}

	e.logOutcome(tx, nil)
	e.publish(ctx, tx)
	return tx, nil
}

func (e *Executor) fail(ctx context.Context, tx *model.Transaction, cause error) (*model.Transaction, error) {
	tx.Status = constants.StatusFailed
	tx.FailureReason = Code(cause)
	tx.Released = IsRetryable(cause)

	if errors.Is(cause, ErrInternalFailure) {
		e.reportInternalFailure(ctx, tx, cause)
	}

	if err := e.finalize(ctx, tx); err != nil {
		return tx, err
	}

	e.logOutcome(tx, cause)
	e.publish(ctx, tx)
	return tx, cause
}

// finalize writes the terminal status, retrying transient store errors. A
// record that cannot be finalized stays pending and needs reconciliation.
func (e *Executor) finalize(ctx context.Context, tx *model.Transaction) error {
	backoff := e.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 10 * time.Millisecond
	}

	var err error
	for attempt := 1; attempt <= finalizeAttempts; attempt++ {
		err = e.txlog.FinalizeTransaction(ctx, tx.ID, tx.Status, tx.FailureReason, tx.Released)
		if err == nil || errors.Is(err, store.ErrAlreadyFinal) || errors.Is(err, store.ErrRecordNotFound) {
			break
		}
		if attempt < finalizeAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	if err != nil {
		e.logger.Error("failed to finalize transaction",
			zap.String("transaction_id", tx.ID),
			zap.String("reference", tx.Reference),
			zap.String("status", tx.Status),
			zap.Error(err))
		return fmt.Errorf("%w: transaction %s left pending: %v", ErrInternalFailure, tx.ID, err)
	}

	if stored, err := e.txlog.GetTransaction(ctx, tx.ID); err == nil {
		*tx = *stored
	} else {
		tx.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (e *Executor) reportInternalFailure(ctx context.Context, tx *model.Transaction, cause error) {
	fields := []zap.Field{
		zap.String("transaction_id", tx.ID),
		zap.String("reference", tx.Reference),
		zap.Int64("amount", tx.Amount),
		zap.Error(cause),
	}
	for _, id := range []string{tx.Sender(), tx.ReceiverID} {
		if id == "" {
			continue
		}
		balance, version, err := e.accounts.GetBalance(ctx, id)
		if err != nil {
			fields = append(fields, zap.NamedError("balance_error_"+id, err))
			continue
		}
		fields = append(fields,
			zap.Int64("balance_"+id, balance),
			zap.Int64("version_"+id, version))
	}
	e.logger.Error("conservation may be violated, manual reconciliation required", fields...)
}

func (e *Executor) logOutcome(tx *model.Transaction, cause error) {
	fields := []zap.Field{
		zap.String("transaction_id", tx.ID),
		zap.String("reference", tx.Reference),
		zap.String("kind", tx.Kind),
		zap.String("status", tx.Status),
		zap.String("amount", utils.FormatFromCents(tx.Amount)),
		zap.String("sender_id", tx.Sender()),
		zap.String("receiver_id", tx.ReceiverID),
	}
	if cause == nil {
		e.logger.Info("transfer completed", fields...)
		return
	}
	e.logger.Warn("transfer failed", append(fields, zap.Error(cause))...)
}

// publish is best effort; the ledger outcome is already durable.
func (e *Executor) publish(ctx context.Context, tx *model.Transaction) {
	if err := e.notifier.Publish(ctx, events.FromTransaction(tx, e.cfg.Currency)); err != nil {
		e.logger.Warn("failed to publish transaction event",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
	}
}
