// Package worker implements the worker funding state machine: proposals,
// techspecs, witness approvals, results and the periodic cashout from the
// shared worker fund.
package worker

import (
	"fmt"
	"time"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/kedgaks/golos/ledger"
	"github.com/kedgaks/golos/protocol"
)

type Posts interface {
	FindPost(author, permlink string) (ledger.Post, bool)
}

type Accounts interface {
	HasAccount(name string) bool
	AdjustBalance(name string, delta protocol.Asset) error
}

type Witnesses interface {
	IsTopWitness(name string) bool
}

// Clock reports the time and height of the block being applied.
type Clock interface {
	Now() time.Time
	Height() int64
}

// Env carries the collaborators of an Evaluator.
type Env struct {
	Posts     Posts
	Accounts  Accounts
	Witnesses Witnesses
	Fund      *ledger.Fund
	Clock     Clock
	Events    EventSink
	Logger    log.Logger
}

// Evaluator applies worker operations and runs the per-block sweeps. It is
// not safe for concurrent use.
type Evaluator struct {
	db     *Database
	params Params
	env    Env
	logger log.Logger
}

func NewEvaluator(db *Database, params Params, env Env) *Evaluator {
	if env.Logger == nil {
		env.Logger = log.NewNopLogger()
	}
	if env.Events == nil {
		env.Events = discardEvents{}
	}
	return &Evaluator{
		db:     db,
		params: params,
		env:    env,
		logger: env.Logger.With("module", "worker"),
	}
}

func (e *Evaluator) Database() *Database { return e.db }
func (e *Evaluator) Params() Params      { return e.params }
func (e *Evaluator) Fund() ledger.Fund   { return *e.env.Fund }

func (e *Evaluator) now() time.Time { return e.env.Clock.Now() }

// Active reports whether the worker subsystem is enabled at the current
// height.
func (e *Evaluator) Active() bool {
	return e.env.Clock.Height() >= e.params.ActivationHeight
}

func (e *Evaluator) checkActive(op protocol.Operation) error {
	if !e.Active() {
		return &Error{Kind: FeatureNotActive, Msg: fmt.Sprintf("%s is not enabled before height %d", op.Type(), e.params.ActivationHeight)}
	}
	return nil
}

func (e *Evaluator) getPost(author, permlink string) (ledger.Post, error) {
	post, ok := e.env.Posts.FindPost(author, permlink)
	if !ok {
		return ledger.Post{}, missing("post", author, permlink)
	}
	return post, nil
}

func (e *Evaluator) getProposal(author, permlink string) (Proposal, error) {
	p, ok := e.db.FindProposal(author, permlink)
	if !ok {
		return Proposal{}, missing("worker proposal", author, permlink)
	}
	return p, nil
}

func (e *Evaluator) getTechspec(author, permlink string) (Techspec, error) {
	t, ok := e.db.FindTechspec(author, permlink)
	if !ok {
		return Techspec{}, missing("worker techspec", author, permlink)
	}
	return t, nil
}

// getResult returns the post and the techspec it is the worker result of.
func (e *Evaluator) getResult(author, permlink string) (ledger.Post, Techspec, error) {
	post, err := e.getPost(author, permlink)
	if err != nil {
		return ledger.Post{}, Techspec{}, err
	}
	t, ok := e.db.FindResult(post.ID)
	if !ok {
		return ledger.Post{}, Techspec{}, missing("worker result", author, permlink)
	}
	return post, t, nil
}

// checkPostUnused rejects posts that already anchor another worker object.
func (e *Evaluator) checkPostUnused(post ledger.Post) error {
	_, isProposal := e.db.FindProposal(post.Author, post.Permlink)
	_, isTechspec := e.db.FindTechspec(post.Author, post.Permlink)
	_, isResult := e.db.FindResult(post.ID)
	_, isIntermediate := e.db.FindIntermediate(post.Author, post.Permlink)
	if isProposal || isTechspec || isResult || isIntermediate {
		return logic(PostAlreadyUsed, "post %s/%s is already used by another worker object", post.Author, post.Permlink)
	}
	return nil
}

// modifyFund changes the shared fund so that the change is reverted together
// with the enclosing undo session.
func (e *Evaluator) modifyFund(fn func(f *ledger.Fund)) {
	fund := e.env.Fund
	old := *fund
	fn(fund)
	e.db.Store().OnUndo(func() { *fund = old })
}

type discardEvents struct{}

func (discardEvents) Emit(Event) {}
