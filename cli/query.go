package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kedgaks/golos/blockchain/types"
	"github.com/kedgaks/golos/ledger"
	"github.com/kedgaks/golos/worker"
	"github.com/kedgaks/golos/workerapi"
)

var rawJSON bool

var queryCmd = &cobra.Command{
	Use:       "query <method> [json-params]",
	Short:     "Query the worker API of a node",
	Long:      "Query the worker API of a node. Methods: get_proposals, get_techspecs, get_techspec_approvals, get_result_approvals, get_intermediates, get_fund.",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: workerapi.Methods,
	RunE: func(cmd *cobra.Command, args []string) error {
		var params []byte
		if len(args) == 2 {
			params = []byte(args[1])
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		raw, err := c.query(cmd.Context(), types.WorkerQueryPrefix+args[0], params)
		if err != nil {
			return err
		}
		if rawJSON {
			_, err = os.Stdout.Write(append(raw, '\n'))
			return err
		}
		return render(os.Stdout, args[0], raw)
	},
}

var accountCmd = &cobra.Command{
	Use:   "account <name>",
	Short: "Show an account's balance and nonce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		acc, err := c.account(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tw := newTable(os.Stdout, table.Row{"Name", "Balance", "Nonce", "Public key"})
		tw.AppendRow(table.Row{acc.Name, acc.Balance, acc.Nonce, acc.PubKey})
		tw.Render()
		return nil
	},
}

func newTable(out io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(header)
	return tw
}

func when(t time.Time) string {
	if t.IsZero() || t.Equal(worker.Never) {
		return "-"
	}
	return t.UTC().Format(time.DateTime)
}

// render prints the result of method as a table.
func render(out io.Writer, method string, raw []byte) error {
	switch method {
	case "get_proposals":
		var rows []worker.Proposal
		if err := json.Unmarshal(raw, &rows); err != nil {
			return err
		}
		tw := newTable(out, table.Row{"Author", "Permlink", "Kind", "State", "Net rshares", "Created"})
		for _, p := range rows {
			tw.AppendRow(table.Row{p.Author, p.Permlink, p.Kind, p.State, p.NetRshares, when(p.Created)})
		}
		tw.Render()
	case "get_techspecs":
		var rows []worker.Techspec
		if err := json.Unmarshal(raw, &rows); err != nil {
			return err
		}
		tw := newTable(out, table.Row{"Author", "Permlink", "State", "Cost", "Payments", "Worker", "Approves", "Disapproves", "Next cashout"})
		for _, t := range rows {
			cost := t.SpecificationCost.Add(t.DevelopmentCost)
			payments := fmt.Sprintf("%d/%d", t.FinishedPaymentsCount, t.PaymentsCount)
			tw.AppendRow(table.Row{t.Author, t.Permlink, t.State, cost, payments, t.Worker, t.Approves, t.Disapproves, when(t.NextCashoutTime)})
		}
		tw.Render()
	case "get_techspec_approvals", "get_result_approvals":
		var rows []worker.Approval
		if err := json.Unmarshal(raw, &rows); err != nil {
			return err
		}
		tw := newTable(out, table.Row{"Approver", "State"})
		for _, a := range rows {
			tw.AppendRow(table.Row{a.Approver, a.State})
		}
		tw.Render()
	case "get_intermediates":
		var rows []worker.Intermediate
		if err := json.Unmarshal(raw, &rows); err != nil {
			return err
		}
		tw := newTable(out, table.Row{"Author", "Permlink", "Created"})
		for _, i := range rows {
			tw.AppendRow(table.Row{i.Author, i.Permlink, when(i.Created)})
		}
		tw.Render()
	case "get_fund":
		var fund ledger.Fund
		if err := json.Unmarshal(raw, &fund); err != nil {
			return err
		}
		tw := newTable(out, table.Row{"Balance", "Consumption / month", "Revenue / month"})
		tw.AppendRow(table.Row{fund.Balance, fund.ConsumptionPerMonth, fund.RevenuePerMonth})
		tw.Render()
	default:
		_, err := out.Write(append(raw, '\n'))
		return err
	}
	return nil
}

func init() {
	queryCmd.PersistentFlags().StringVar(&nodeAddr, "node", "tcp://127.0.0.1:26657", "Tendermint RPC address")
	queryCmd.PersistentFlags().BoolVar(&rawJSON, "json", false, "Print the raw JSON result")
	queryCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(queryCmd)
}
