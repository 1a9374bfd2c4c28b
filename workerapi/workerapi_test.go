package workerapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kedgaks/golos/ledger"
	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/store"
	"github.com/kedgaks/golos/worker"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type env struct {
	db  *worker.Database
	led *ledger.Ledger
	svc *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	sdb := store.NewDB()
	led := ledger.New(sdb, func() time.Time { return base })
	db := worker.NewDatabase(sdb)
	fund := ledger.NewFund(5000, 700)
	return &env{db: db, led: led, svc: NewService(db, led, fund)}
}

func (e *env) proposal(t *testing.T, author, permlink string, minutes int, kind protocol.ProposalKind, state worker.ProposalState, rshares int64) worker.Proposal {
	t.Helper()
	p, err := e.db.Proposals.Create(func(p *worker.Proposal) {
		p.Author = author
		p.Permlink = permlink
		p.Kind = kind
		p.State = state
		p.Created = base.Add(time.Duration(minutes) * time.Minute)
		p.NetRshares = rshares
	})
	require.NoError(t, err)
	return p
}

func (e *env) techspec(t *testing.T, author, permlink string, proposal store.ID, minutes int, approves int64) worker.Techspec {
	t.Helper()
	ts, err := e.db.Techspecs.Create(func(ts *worker.Techspec) {
		ts.Author = author
		ts.Permlink = permlink
		ts.Proposal = proposal
		ts.Created = base.Add(time.Duration(minutes) * time.Minute)
		ts.Approves = approves
		ts.NextCashoutTime = worker.Never
	})
	require.NoError(t, err)
	return ts
}

func permlinks[T any](items []T, get func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, get(it))
	}
	return out
}

func proposalPermlink(p worker.Proposal) string { return p.Permlink }
func techspecPermlink(t worker.Techspec) string { return t.Permlink }

func seedProposals(t *testing.T, e *env) {
	e.proposal(t, "alice", "p1", 1, protocol.Task, worker.ProposalCreated, 10)
	e.proposal(t, "bob", "p2", 2, protocol.PremadeWork, worker.ProposalCreated, 30)
	e.proposal(t, "alice", "p3", 3, protocol.Task, worker.ProposalWork, 20)
	e.proposal(t, "carol", "p4", 4, protocol.Task, worker.ProposalClosed, 30)
}

func TestGetProposalsOrdersAndPages(t *testing.T) {
	e := newEnv(t)
	seedProposals(t, e)

	got, err := e.svc.GetProposals(ProposalQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2", "p3", "p4"}, permlinks(got, proposalPermlink))

	got, err = e.svc.GetProposals(ProposalQuery{Sort: ProposalsByNetRshares})
	require.NoError(t, err)
	require.Equal(t, []string{"p2", "p4", "p3", "p1"}, permlinks(got, proposalPermlink))

	got, err = e.svc.GetProposals(ProposalQuery{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, permlinks(got, proposalPermlink))

	// the cursor row starts the next page
	got, err = e.svc.GetProposals(ProposalQuery{Limit: 2, Cursor: Cursor{StartAuthor: "bob", StartPermlink: "p2"}})
	require.NoError(t, err)
	require.Equal(t, []string{"p2", "p3"}, permlinks(got, proposalPermlink))

	got, err = e.svc.GetProposals(ProposalQuery{Cursor: Cursor{StartAuthor: "bob", StartPermlink: "missing"}})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestGetProposalsFilters(t *testing.T) {
	e := newEnv(t)
	seedProposals(t, e)

	got, err := e.svc.GetProposals(ProposalQuery{SelectAuthors: []string{"alice"}})
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p3"}, permlinks(got, proposalPermlink))

	got, err = e.svc.GetProposals(ProposalQuery{SelectStates: []worker.ProposalState{worker.ProposalCreated}})
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, permlinks(got, proposalPermlink))

	got, err = e.svc.GetProposals(ProposalQuery{SelectKinds: []protocol.ProposalKind{protocol.PremadeWork}})
	require.NoError(t, err)
	require.Equal(t, []string{"p2"}, permlinks(got, proposalPermlink))

	// filters apply before the limit
	got, err = e.svc.GetProposals(ProposalQuery{Limit: 1, SelectAuthors: []string{"carol"}})
	require.NoError(t, err)
	require.Equal(t, []string{"p4"}, permlinks(got, proposalPermlink))
}

func TestQueryValidation(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.GetProposals(ProposalQuery{Limit: MaxLimit + 1})
	require.ErrorIs(t, err, protocol.ErrInvalidParameter)

	_, err = e.svc.GetProposals(ProposalQuery{Cursor: Cursor{StartAuthor: "alice"}})
	require.ErrorIs(t, err, protocol.ErrInvalidParameter)

	_, err = e.svc.GetProposals(ProposalQuery{Cursor: Cursor{StartPermlink: "p1"}})
	require.ErrorIs(t, err, protocol.ErrInvalidParameter)

	_, err = e.svc.GetProposals(ProposalQuery{Sort: "by_votes"})
	require.ErrorIs(t, err, protocol.ErrInvalidParameter)

	_, err = e.svc.GetTechspecs(TechspecQuery{ProposalAuthor: "alice"})
	require.ErrorIs(t, err, protocol.ErrInvalidParameter)

	_, err = e.svc.GetTechspecs(TechspecQuery{SelectAuthors: []string{"No"}})
	require.ErrorIs(t, err, protocol.ErrInvalidParameter)

	_, err = e.svc.GetTechspecApprovals(PostQuery{Author: "alice"})
	require.ErrorIs(t, err, protocol.ErrInvalidParameter)

	q := TechspecQuery{}
	require.NoError(t, q.Validate())
	require.Equal(t, DefaultLimit, q.Limit)
	require.Equal(t, TechspecsByCreated, q.Sort)
}

func TestGetTechspecs(t *testing.T) {
	e := newEnv(t)
	p1 := e.proposal(t, "alice", "p1", 0, protocol.Task, worker.ProposalCreated, 0)
	p2 := e.proposal(t, "alice", "p2", 0, protocol.Task, worker.ProposalCreated, 0)
	e.techspec(t, "bob", "t1", p1.ID, 1, 2)
	e.techspec(t, "carol", "t2", p1.ID, 2, 5)
	e.techspec(t, "dave", "t3", p2.ID, 3, 1)

	got, err := e.svc.GetTechspecs(TechspecQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"t1", "t2", "t3"}, permlinks(got, techspecPermlink))

	got, err = e.svc.GetTechspecs(TechspecQuery{Sort: TechspecsByApproves})
	require.NoError(t, err)
	require.Equal(t, []string{"t2", "t1", "t3"}, permlinks(got, techspecPermlink))

	got, err = e.svc.GetTechspecs(TechspecQuery{ProposalAuthor: "alice", ProposalPermlink: "p1"})
	require.NoError(t, err)
	require.Equal(t, []string{"t1", "t2"}, permlinks(got, techspecPermlink))

	got, err = e.svc.GetTechspecs(TechspecQuery{ProposalAuthor: "alice", ProposalPermlink: "none"})
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = e.svc.GetTechspecs(TechspecQuery{Cursor: Cursor{StartAuthor: "carol", StartPermlink: "t2"}})
	require.NoError(t, err)
	require.Equal(t, []string{"t2", "t3"}, permlinks(got, techspecPermlink))
}

func TestGetApprovalsAndIntermediates(t *testing.T) {
	e := newEnv(t)
	p := e.proposal(t, "alice", "p1", 0, protocol.Task, worker.ProposalCreated, 0)
	ts, err := e.db.Techspecs.Create(func(ts *worker.Techspec) {
		ts.Post = 7
		ts.Author = "bob"
		ts.Permlink = "t1"
		ts.Proposal = p.ID
		ts.NextCashoutTime = worker.Never
	})
	require.NoError(t, err)
	for _, w := range []string{"zed", "amy", "kim"} {
		_, err := e.db.TechspecApprovals.Create(func(a *worker.Approval) {
			a.Post = ts.Post
			a.Approver = w
			a.State = protocol.Approve
		})
		require.NoError(t, err)
	}
	_, err = e.db.Intermediates.Create(func(i *worker.Intermediate) {
		i.Author = "bob"
		i.Permlink = "progress"
		i.Techspec = ts.ID
	})
	require.NoError(t, err)

	approvals, err := e.svc.GetTechspecApprovals(PostQuery{Author: "bob", Permlink: "t1"})
	require.NoError(t, err)
	require.Len(t, approvals, 3)
	require.Equal(t, "amy", approvals[0].Approver)

	approvals, err = e.svc.GetTechspecApprovals(PostQuery{Author: "bob", Permlink: "t1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, approvals, 1)

	approvals, err = e.svc.GetResultApprovals(PostQuery{Author: "bob", Permlink: "none"})
	require.NoError(t, err)
	require.Empty(t, approvals)

	inter, err := e.svc.GetIntermediates(PostQuery{Author: "bob", Permlink: "t1"})
	require.NoError(t, err)
	require.Len(t, inter, 1)
	require.Equal(t, "progress", inter[0].Permlink)
}

type serviceQuerier struct{ *Service }

func (s serviceQuerier) QueryWorker(method string, params []byte) ([]byte, error) {
	return s.Handle(method, params)
}

func TestHTTPRouter(t *testing.T) {
	e := newEnv(t)
	seedProposals(t, e)
	srv := httptest.NewServer(NewRouter(serviceQuerier{e.svc}))
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/api/worker/get_proposals?select_authors=alice&select_states=created,work&limit=5")
	require.Equal(t, http.StatusOK, code)
	var proposals []worker.Proposal
	require.NoError(t, json.Unmarshal([]byte(body), &proposals))
	require.Equal(t, []string{"p1", "p3"}, permlinks(proposals, proposalPermlink))

	code, body = get("/api/worker/get_fund")
	require.Equal(t, http.StatusOK, code)
	var fund ledger.Fund
	require.NoError(t, json.Unmarshal([]byte(body), &fund))
	require.Equal(t, protocol.Native(5000), fund.Balance)

	code, _ = get("/api/worker/get_proposals?limit=many")
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = get("/api/worker/get_proposals?select_kinds=bogus")
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = get("/api/worker/get_votes")
	require.Equal(t, http.StatusNotFound, code)

	resp, err := http.Post(srv.URL+"/api/worker/get_proposals", "application/json", strings.NewReader(`{"sort":"by_net_rshares","limit":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proposals))
	require.Equal(t, []string{"p2"}, permlinks(proposals, proposalPermlink))
}
