package blockchain

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/google/uuid"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/kedgaks/golos/blockchain/types"
	"github.com/kedgaks/golos/ledger"
	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/store"
	"github.com/kedgaks/golos/worker"
	"github.com/kedgaks/golos/workerapi"
)

const appVersion = "0.1"

var metaKey = []byte("meta:app")

// eventNamespace seeds the ids of reward events.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("golos/worker/event"))

// appMeta is the state kept next to the tables: the last committed block and
// the worker fund.
type appMeta struct {
	Height  int64       `json:"height"`
	AppHash []byte      `json:"app_hash"`
	Fund    ledger.Fund `json:"fund"`
}

type blockClock struct {
	time   time.Time
	height int64
}

func (c *blockClock) Now() time.Time { return c.time }
func (c *blockClock) Height() int64  { return c.height }

// dispatcher routes every operation to the part of the state it belongs to.
type dispatcher struct {
	*worker.Evaluator
	*ledger.Ledger
}

var _ protocol.Visitor = dispatcher{}

// WorkerApp is the ABCI application of the worker chain. Tables live in
// memory and are written to badger on Commit.
type WorkerApp struct {
	mu sync.RWMutex

	bdb     *badger.DB
	db      *store.DB
	ledger  *ledger.Ledger
	workers *worker.Database
	eval    *worker.Evaluator
	api     *workerapi.Service
	visitor dispatcher
	fund    *ledger.Fund
	events  *worker.EventLog
	logger  log.Logger

	clock   *blockClock
	height  int64
	appHash []byte
}

// NewWorkerApp builds the application and loads the state committed to bdb,
// if any.
func NewWorkerApp(bdb *badger.DB, params worker.Params, logger log.Logger) (*WorkerApp, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("worker params: %w", err)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	app := &WorkerApp{
		bdb:    bdb,
		db:     store.NewDB(),
		fund:   ledger.NewFund(0, 0),
		events: &worker.EventLog{},
		clock:  &blockClock{},
		logger: logger.With("module", "abci"),
	}
	app.ledger = ledger.New(app.db, app.clock.Now)
	app.workers = worker.NewDatabase(app.db)
	app.eval = worker.NewEvaluator(app.workers, params, worker.Env{
		Posts:     app.ledger,
		Accounts:  app.ledger,
		Witnesses: app.ledger,
		Fund:      app.fund,
		Clock:     app.clock,
		Events:    app.events,
		Logger:    logger,
	})
	app.ledger.OnRshares(app.eval.UpdateRshares)
	app.api = workerapi.NewService(app.workers, app.ledger, app.fund)
	app.visitor = dispatcher{Evaluator: app.eval, Ledger: app.ledger}

	if err := app.load(); err != nil {
		return nil, err
	}
	return app, nil
}

func (app *WorkerApp) load() error {
	if err := app.db.Load(app.bdb); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	return app.bdb.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			var meta appMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("corrupted app meta: %w", err)
			}
			app.height = meta.Height
			app.appHash = meta.AppHash
			app.clock.height = meta.Height
			*app.fund = meta.Fund
			return nil
		})
	})
}

func (app *WorkerApp) Info(req abci.RequestInfo) abci.ResponseInfo {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return abci.ResponseInfo{
		Data:             "golos-worker",
		Version:          appVersion,
		AppVersion:       1,
		LastBlockHeight:  app.height,
		LastBlockAppHash: app.appHash,
	}
}

func (app *WorkerApp) SetOption(req abci.RequestSetOption) abci.ResponseSetOption {
	return abci.ResponseSetOption{}
}

// InitChain builds the genesis accounts, witnesses, posts and fund from the
// app_state of genesis.json.
func (app *WorkerApp) InitChain(req abci.RequestInitChain) abci.ResponseInitChain {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.clock.time = req.Time
	if len(req.AppStateBytes) == 0 {
		return abci.ResponseInitChain{}
	}
	var state types.GenesisState
	if err := json.Unmarshal(req.AppStateBytes, &state); err != nil {
		panic(fmt.Errorf("parse genesis app_state: %w", err))
	}
	if err := app.applyGenesis(state); err != nil {
		panic(fmt.Errorf("apply genesis app_state: %w", err))
	}
	app.logger.Info("Genesis state applied",
		"accounts", len(state.Accounts), "witnesses", len(state.Witnesses),
		"fund", app.fund.Balance.String())
	return abci.ResponseInitChain{}
}

func (app *WorkerApp) applyGenesis(state types.GenesisState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	for _, a := range state.Accounts {
		if _, err := app.ledger.CreateAccount(a.Name, a.PubKey, protocol.Native(a.Balance)); err != nil {
			return err
		}
	}
	for _, w := range state.Witnesses {
		if err := app.ledger.SetWitness(w.Name, w.TopTier); err != nil {
			return err
		}
	}
	for _, p := range state.Posts {
		op := protocol.Post{
			Author:         p.Author,
			Permlink:       p.Permlink,
			ParentAuthor:   p.ParentAuthor,
			ParentPermlink: p.ParentPermlink,
		}
		if err := app.ledger.ApplyPost(op); err != nil {
			return err
		}
	}
	*app.fund = *ledger.NewFund(state.Fund.Balance, state.Fund.RevenuePerMonth)
	return nil
}

// CheckTx validates the envelope and the signature against the committed
// state. Operation preconditions are checked again in DeliverTx.
func (app *WorkerApp) CheckTx(req abci.RequestCheckTx) abci.ResponseCheckTx {
	sop, err := protocol.DecodeTx(req.Tx)
	if err != nil {
		return abci.ResponseCheckTx{Code: decodeCode(err), Log: err.Error(), Codespace: types.Codespace}
	}

	app.mu.RLock()
	defer app.mu.RUnlock()
	if err := app.authorize(sop); err != nil {
		return abci.ResponseCheckTx{Code: types.CodeUnauthorized, Log: err.Error(), Codespace: types.Codespace}
	}
	acc, _ := app.ledger.Account(sop.Tx.Signer)
	if sop.Nonce <= acc.Nonce {
		return abci.ResponseCheckTx{
			Code:      types.CodeUnauthorized,
			Log:       fmt.Sprintf("%v: %s already used nonce %d", ledger.ErrBadNonce, acc.Name, acc.Nonce),
			Codespace: types.Codespace,
		}
	}
	return abci.ResponseCheckTx{Code: types.CodeOK, GasWanted: 1}
}

func (app *WorkerApp) authorize(sop *protocol.SignedOperation) error {
	pubkey, err := app.ledger.PublicKey(sop.Tx.Signer)
	if err != nil {
		return err
	}
	return sop.Verify(pubkey)
}

func (app *WorkerApp) BeginBlock(req abci.RequestBeginBlock) abci.ResponseBeginBlock {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.clock.time = req.Header.Time
	app.clock.height = req.Header.Height
	return abci.ResponseBeginBlock{}
}

// DeliverTx applies one operation. Everything the operation changed,
// including the signer's nonce, is undone when it fails.
func (app *WorkerApp) DeliverTx(req abci.RequestDeliverTx) abci.ResponseDeliverTx {
	sop, err := protocol.DecodeTx(req.Tx)
	if err != nil {
		return abci.ResponseDeliverTx{Code: decodeCode(err), Log: err.Error(), Codespace: types.Codespace}
	}

	app.mu.Lock()
	defer app.mu.Unlock()
	if err := app.authorize(sop); err != nil {
		return abci.ResponseDeliverTx{Code: types.CodeUnauthorized, Log: err.Error(), Codespace: types.Codespace}
	}

	s := app.db.StartUndoSession()
	defer s.Undo()
	if err := app.ledger.UseNonce(sop.Tx.Signer, sop.Nonce); err != nil {
		return abci.ResponseDeliverTx{Code: types.CodeUnauthorized, Log: err.Error(), Codespace: types.Codespace}
	}
	if err := sop.Operation.Accept(app.visitor); err != nil {
		app.logger.Debug("Operation rejected", "type", sop.Operation.Type(), "signer", sop.Tx.Signer, "err", err)
		return abci.ResponseDeliverTx{Code: applyCode(err), Log: err.Error(), Codespace: types.Codespace}
	}
	s.Commit()
	return abci.ResponseDeliverTx{Code: types.CodeOK}
}

// EndBlock runs the cashout and then the expiry sweep. The reward events of
// the block are returned as ABCI events.
func (app *WorkerApp) EndBlock(req abci.RequestEndBlock) abci.ResponseEndBlock {
	app.mu.Lock()
	defer app.mu.Unlock()

	s := app.db.StartUndoSession()
	defer s.Undo()
	if err := app.eval.ProcessCashout(); err != nil {
		app.logger.Error("Cashout failed", "height", req.Height, "err", err)
		app.events.Drain()
		return abci.ResponseEndBlock{}
	}
	if err := app.eval.ProcessExpiry(); err != nil {
		app.logger.Error("Expiry sweep failed", "height", req.Height, "err", err)
		app.events.Drain()
		return abci.ResponseEndBlock{}
	}
	s.Commit()

	return abci.ResponseEndBlock{Events: rewardEvents(req.Height, app.events.Drain())}
}

func rewardEvents(height int64, events []worker.Event) []abci.Event {
	out := make([]abci.Event, 0, len(events))
	for i, ev := range events {
		id := uuid.NewSHA1(eventNamespace, []byte(strconv.FormatInt(height, 10)+"/"+strconv.Itoa(i)))
		out = append(out, abci.Event{
			Type: ev.Type,
			Attributes: []abci.EventAttribute{
				{Key: []byte(types.AttrID), Value: []byte(id.String()), Index: true},
				{Key: []byte(types.AttrRecipient), Value: []byte(ev.Recipient), Index: true},
				{Key: []byte(types.AttrAuthor), Value: []byte(ev.Author), Index: true},
				{Key: []byte(types.AttrPermlink), Value: []byte(ev.Permlink)},
				{Key: []byte(types.AttrAmount), Value: []byte(ev.Amount.String())},
			},
		})
	}
	return out
}

// Commit writes the rows changed in this block and the app meta to badger
// in one transaction.
func (app *WorkerApp) Commit() abci.ResponseCommit {
	app.mu.Lock()
	defer app.mu.Unlock()

	hash, err := app.commit()
	if err != nil {
		// The in-memory state no longer matches disk.
		panic(fmt.Errorf("commit block %d: %w", app.clock.height, err))
	}
	app.height = app.clock.height
	app.appHash = hash
	return abci.ResponseCommit{Data: hash}
}

func (app *WorkerApp) commit() ([]byte, error) {
	txn := app.bdb.NewTransaction(true)
	defer txn.Discard()

	hash, err := app.db.Flush(txn, app.appHash)
	if err != nil {
		return nil, err
	}
	fund, err := json.Marshal(app.fund)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(append(hash, fund...))
	hash = sum[:]

	meta, err := json.Marshal(appMeta{Height: app.clock.height, AppHash: hash, Fund: *app.fund})
	if err != nil {
		return nil, err
	}
	if err := txn.Set(metaKey, meta); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return hash, nil
}

// Query serves /worker/<method> with JSON params in Data and
// /account/<name>.
func (app *WorkerApp) Query(req abci.RequestQuery) abci.ResponseQuery {
	var (
		res []byte
		err error
	)
	switch {
	case strings.HasPrefix(req.Path, types.WorkerQueryPrefix):
		res, err = app.QueryWorker(strings.TrimPrefix(req.Path, types.WorkerQueryPrefix), req.Data)
	case strings.HasPrefix(req.Path, types.AccountQueryPrefix):
		res, err = app.queryAccount(strings.TrimPrefix(req.Path, types.AccountQueryPrefix))
	default:
		err = fmt.Errorf("%w: unsupported query path %q", workerapi.ErrUnknownMethod, req.Path)
	}
	if err != nil {
		return abci.ResponseQuery{Code: queryCode(err), Log: err.Error(), Codespace: types.Codespace}
	}

	app.mu.RLock()
	height := app.height
	app.mu.RUnlock()
	return abci.ResponseQuery{Code: types.CodeOK, Value: res, Height: height}
}

// QueryWorker runs a worker API method. It may observe state of the block
// being applied.
func (app *WorkerApp) QueryWorker(method string, params []byte) ([]byte, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.api.Handle(method, params)
}

func (app *WorkerApp) queryAccount(name string) ([]byte, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	acc, ok := app.ledger.Account(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrUnknownAccount, name)
	}
	return json.Marshal(acc)
}

func (app *WorkerApp) ListSnapshots(req abci.RequestListSnapshots) abci.ResponseListSnapshots {
	return abci.ResponseListSnapshots{}
}
func (app *WorkerApp) OfferSnapshot(req abci.RequestOfferSnapshot) abci.ResponseOfferSnapshot {
	return abci.ResponseOfferSnapshot{Result: abci.ResponseOfferSnapshot_REJECT}
}
func (app *WorkerApp) LoadSnapshotChunk(req abci.RequestLoadSnapshotChunk) abci.ResponseLoadSnapshotChunk {
	return abci.ResponseLoadSnapshotChunk{}
}
func (app *WorkerApp) ApplySnapshotChunk(req abci.RequestApplySnapshotChunk) abci.ResponseApplySnapshotChunk {
	return abci.ResponseApplySnapshotChunk{Result: abci.ResponseApplySnapshotChunk_ABORT}
}

func decodeCode(err error) uint32 {
	switch {
	case errors.Is(err, protocol.ErrUnauthorized):
		return types.CodeUnauthorized
	case errors.Is(err, protocol.ErrInvalidParameter):
		return types.CodeInvalidParameter
	}
	return types.CodeTxDecode
}

func applyCode(err error) uint32 {
	var werr *worker.Error
	if errors.As(err, &werr) {
		switch werr.Kind {
		case worker.InvalidParameter:
			return types.CodeInvalidParameter
		case worker.FeatureNotActive:
			return types.CodeFeatureNotActive
		case worker.MissingObject:
			return types.CodeMissingObject
		case worker.ObjectAlreadyExists:
			return types.CodeAlreadyExists
		case worker.LogicViolation:
			return types.CodeLogicViolation
		}
	}
	switch {
	case errors.Is(err, protocol.ErrInvalidParameter):
		return types.CodeInvalidParameter
	case errors.Is(err, ledger.ErrUnknownAccount), errors.Is(err, ledger.ErrUnknownPost):
		return types.CodeMissingObject
	case errors.Is(err, ledger.ErrAccountExists):
		return types.CodeAlreadyExists
	case errors.Is(err, ledger.ErrParentMismatch), errors.Is(err, ledger.ErrInsufficientBalance):
		return types.CodeLogicViolation
	}
	return types.CodeInternal
}

func queryCode(err error) uint32 {
	switch {
	case errors.Is(err, workerapi.ErrUnknownMethod):
		return types.CodeUnknownQuery
	case errors.Is(err, protocol.ErrInvalidParameter):
		return types.CodeInvalidParameter
	case errors.Is(err, ledger.ErrUnknownAccount):
		return types.CodeMissingObject
	}
	return types.CodeInternal
}
