package cli

import (
	"context"
	"encoding/json"
	"fmt"

	rpchttp "github.com/tendermint/tendermint/rpc/client/http"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmTypes "github.com/tendermint/tendermint/types"

	"github.com/kedgaks/golos/blockchain/types"
	"github.com/kedgaks/golos/ledger"
)

var nodeAddr string

// client talks to a node over Tendermint RPC.
type client struct {
	rpc *rpchttp.HTTP
}

func newClient() (*client, error) {
	rpc, err := rpchttp.New(nodeAddr, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", nodeAddr, err)
	}
	return &client{rpc: rpc}, nil
}

func (c *client) query(ctx context.Context, path string, data []byte) ([]byte, error) {
	res, err := c.rpc.ABCIQuery(ctx, path, data)
	if err != nil {
		return nil, err
	}
	if res.Response.Code != types.CodeOK {
		return nil, fmt.Errorf("query %s failed with code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	return res.Response.Value, nil
}

func (c *client) account(ctx context.Context, name string) (ledger.Account, error) {
	var acc ledger.Account
	raw, err := c.query(ctx, types.AccountQueryPrefix+name, nil)
	if err != nil {
		return acc, err
	}
	err = json.Unmarshal(raw, &acc)
	return acc, err
}

func (c *client) broadcast(ctx context.Context, tx []byte) (*ctypes.ResultBroadcastTxCommit, error) {
	res, err := c.rpc.BroadcastTxCommit(ctx, tmTypes.Tx(tx))
	if err != nil {
		return nil, err
	}
	if res.CheckTx.Code != types.CodeOK {
		return res, fmt.Errorf("rejected by CheckTx with code %d: %s", res.CheckTx.Code, res.CheckTx.Log)
	}
	if res.DeliverTx.Code != types.CodeOK {
		return res, fmt.Errorf("rejected with code %d: %s", res.DeliverTx.Code, res.DeliverTx.Log)
	}
	return res, nil
}
