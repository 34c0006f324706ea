package main

import (
	"context"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/contracts/thankyoucoin"
	"github.com/nspcc-dev/txlogger/internal/config"
	"github.com/nspcc-dev/txlogger/internal/indexer"
	rpctyc "github.com/nspcc-dev/txlogger/rpc/thankyoucoin"
	rpctxlogger "github.com/nspcc-dev/txlogger/rpc/txlogger"
	"github.com/nspcc-dev/txlogger/settlement"
	"github.com/urfave/cli"
)

var info = withNode(func(ctx context.Context, c *cli.Context, n *node) error {
	var (
		coin = rpctyc.NewReader(n.ledger, n.contracts.CoinHash, n.contracts.Coin)
		gw   = rpctxlogger.NewReader(n.ledger, n.contracts.GatewayHash, n.contracts.Gateway)
	)

	supply, err := coin.TotalSupply(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s (%s)\n", coin.Name(), coin.Symbol())
	fmt.Fprintf(c.App.Writer, "  address:      %s\n", address.Uint160ToString(coin.Hash()))
	fmt.Fprintf(c.App.Writer, "  decimals:     %d\n", coin.Decimals())
	fmt.Fprintf(c.App.Writer, "  total supply: %s\n", config.FormatAmount(supply, thankyoucoin.Decimals))
	fmt.Fprintf(c.App.Writer, "  version:      %s\n", common.VersionString(coin.Version()))

	fmt.Fprintln(c.App.Writer, "Gateway")
	fmt.Fprintf(c.App.Writer, "  address:      %s\n", address.Uint160ToString(gw.Hash()))
	fmt.Fprintf(c.App.Writer, "  mode:         %s\n", gw.Mode())
	fmt.Fprintf(c.App.Writer, "  minimum:      %s\n", config.FormatAmount(gw.MinimumAmount(), n.gatewayDecimals()))
	if !gw.Token().Equals(util.Uint160{}) {
		fmt.Fprintf(c.App.Writer, "  token:        %s\n", address.Uint160ToString(gw.Token()))
	}
	fmt.Fprintf(c.App.Writer, "  version:      %s\n", common.VersionString(gw.Version()))

	return nil
})

var deposit = withNode(func(ctx context.Context, c *cli.Context, n *node) error {
	to, err := accountFlagValue(c, "to")
	if err != nil {
		return err
	}
	amount, err := amountFlagValue(c, settlement.NativeDecimals)
	if err != nil {
		return err
	}

	res, err := n.ledger.Deposit(ctx, to, amount)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Deposited %s to %s (tx %s)\n",
		config.FormatAmount(amount, settlement.NativeDecimals), address.Uint160ToString(to), res.ID)

	return nil
})

var balance = withNode(func(ctx context.Context, c *cli.Context, n *node) error {
	acc, err := accountFlagValue(c, "account")
	if err != nil {
		return err
	}

	native, err := n.ledger.NativeBalanceOf(ctx, acc)
	if err != nil {
		return err
	}

	tokens, err := rpctyc.NewReader(n.ledger, n.contracts.CoinHash, n.contracts.Coin).BalanceOf(ctx, acc)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "native: %s\n", config.FormatAmount(native, settlement.NativeDecimals))
	fmt.Fprintf(c.App.Writer, "%s: %s\n", n.contracts.Coin.Symbol(), config.FormatAmount(tokens, thankyoucoin.Decimals))

	return nil
})

var mint = withNode(func(ctx context.Context, c *cli.Context, n *node) error {
	from, err := accountFlagValue(c, "from")
	if err != nil {
		return err
	}
	to, err := accountFlagValue(c, "to")
	if err != nil {
		return err
	}
	amount, err := amountFlagValue(c, thankyoucoin.Decimals)
	if err != nil {
		return err
	}

	res, err := rpctyc.New(n.ledger, from, n.contracts.CoinHash, n.contracts.Coin).Mint(ctx, to, amount)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Minted %s %s to %s (tx %s)\n", config.FormatAmount(amount, thankyoucoin.Decimals),
		n.contracts.Coin.Symbol(), address.Uint160ToString(to), res.ID)

	return nil
})

var approve = withNode(func(ctx context.Context, c *cli.Context, n *node) error {
	from, err := accountFlagValue(c, "from")
	if err != nil {
		return err
	}
	spender, err := spenderFlagValue(c, n)
	if err != nil {
		return err
	}
	amount, err := amountFlagValue(c, thankyoucoin.Decimals)
	if err != nil {
		return err
	}

	res, err := rpctyc.New(n.ledger, from, n.contracts.CoinHash, n.contracts.Coin).Approve(ctx, spender, amount)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Approved %s %s to %s (tx %s)\n", config.FormatAmount(amount, thankyoucoin.Decimals),
		n.contracts.Coin.Symbol(), address.Uint160ToString(spender), res.ID)

	return nil
})

var allowance = withNode(func(ctx context.Context, c *cli.Context, n *node) error {
	owner, err := accountFlagValue(c, "account")
	if err != nil {
		return err
	}
	spender, err := spenderFlagValue(c, n)
	if err != nil {
		return err
	}

	v, err := rpctyc.NewReader(n.ledger, n.contracts.CoinHash, n.contracts.Coin).Allowance(ctx, owner, spender)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, config.FormatAmount(v, thankyoucoin.Decimals))

	return nil
})

var send = withNode(func(ctx context.Context, c *cli.Context, n *node) error {
	from, err := accountFlagValue(c, "from")
	if err != nil {
		return err
	}
	to, err := accountFlagValue(c, "to")
	if err != nil {
		return err
	}
	amount, err := amountFlagValue(c, n.gatewayDecimals())
	if err != nil {
		return err
	}

	gw := rpctxlogger.New(n.ledger, from, n.contracts.GatewayHash, n.contracts.Gateway)

	receipt, err := gw.SendFunds(ctx, to, amount, n.attachedValue(amount))

	return printReceipt(c, n, receipt, err)
})

var sendMulti = withNode(func(ctx context.Context, c *cli.Context, n *node) error {
	from, err := accountFlagValue(c, "from")
	if err != nil {
		return err
	}

	var (
		rawTo      = c.StringSlice("to")
		rawAmounts = c.StringSlice("amount")
		receivers  = make([]util.Uint160, len(rawTo))
		amounts    = make([]int64, len(rawAmounts))
		total      int64
	)

	for i := range rawTo {
		receivers[i], err = address.StringToUint160(rawTo[i])
		if err != nil {
			return fmt.Errorf("invalid receiver #%d: %w", i, err)
		}
	}
	for i := range rawAmounts {
		amounts[i], err = config.ParseAmount(rawAmounts[i], n.gatewayDecimals())
		if err != nil {
			return fmt.Errorf("invalid amount #%d: %w", i, err)
		}
		total += amounts[i]
	}

	gw := rpctxlogger.New(n.ledger, from, n.contracts.GatewayHash, n.contracts.Gateway)

	receipt, err := gw.SendMultiFunds(ctx, receivers, amounts, n.attachedValue(total))

	return printReceipt(c, n, receipt, err)
})

var transfers = withNode(func(ctx context.Context, c *cli.Context, n *node) error {
	if n.index == nil {
		return fmt.Errorf("transfer index is not configured")
	}

	acc, err := accountFlagValue(c, "account")
	if err != nil {
		return err
	}

	var list []indexer.Transfer
	if c.Bool("received") {
		list, err = n.index.ByReceiver(ctx, acc, c.Int("limit"))
	} else {
		list, err = n.index.BySender(ctx, acc, c.Int("limit"))
	}
	if err != nil {
		return err
	}

	for _, t := range list {
		fmt.Fprintf(c.App.Writer, "%s #%d %d %s -> %s %s\n", t.TxID, t.Leg, t.Timestamp,
			address.Uint160ToString(t.Sender), address.Uint160ToString(t.Receiver),
			config.FormatAmount(t.Amount, n.gatewayDecimals()))
	}

	return nil
})

func spenderFlagValue(c *cli.Context, n *node) (util.Uint160, error) {
	if c.String("spender") == "" {
		return n.contracts.GatewayHash, nil
	}
	return accountFlagValue(c, "spender")
}

func printReceipt(c *cli.Context, n *node, r *rpctxlogger.Receipt, err error) error {
	if r != nil {
		fmt.Fprintf(c.App.Writer, "tx %s: %s\n", r.ID, r.State)
		for _, rec := range r.Records {
			fmt.Fprintf(c.App.Writer, "  %s -> %s %s\n", address.Uint160ToString(rec.Sender),
				address.Uint160ToString(rec.Receiver), config.FormatAmount(rec.Amount, n.gatewayDecimals()))
		}
	}
	return err
}
