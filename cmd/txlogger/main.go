package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "txlogger"
	app.Usage = "Transfer gateway and ThankYouCoin ledger"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "Path to the YAML configuration file",
			EnvVar: "TXLOGGER_CONFIG",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "info",
			Usage:  "Deploy the contracts if needed and print their parameters",
			Action: info,
		},
		{
			Name:      "deposit",
			Usage:     "Issue native value to the account",
			ArgsUsage: "--to <address> --amount <value>",
			Flags:     []cli.Flag{toFlag, amountFlag},
			Action:    deposit,
		},
		{
			Name:      "balance",
			Usage:     "Print native and ThankYouCoin balances of the account",
			ArgsUsage: "--account <address>",
			Flags:     []cli.Flag{accountFlag},
			Action:    balance,
		},
		{
			Name:      "mint",
			Usage:     "Issue ThankYouCoin to the account",
			ArgsUsage: "--from <minter> --to <address> --amount <value>",
			Flags:     []cli.Flag{fromFlag, toFlag, amountFlag},
			Action:    mint,
		},
		{
			Name:      "approve",
			Usage:     "Allow the spender (the gateway by default) to move ThankYouCoin of the account",
			ArgsUsage: "--from <owner> [--spender <address>] --amount <value>",
			Flags:     []cli.Flag{fromFlag, spenderFlag, amountFlag},
			Action:    approve,
		},
		{
			Name:      "allowance",
			Usage:     "Print amount the spender (the gateway by default) can move from the account",
			ArgsUsage: "--account <owner> [--spender <address>]",
			Flags:     []cli.Flag{accountFlag, spenderFlag},
			Action:    allowance,
		},
		{
			Name:      "send",
			Usage:     "Send funds to the receiver through the gateway",
			ArgsUsage: "--from <address> --to <address> --amount <value>",
			Flags:     []cli.Flag{fromFlag, toFlag, amountFlag},
			Action:    send,
		},
		{
			Name:      "send-multi",
			Usage:     "Send funds to many receivers through the gateway, all or nothing",
			ArgsUsage: "--from <address> --to <address>... --amount <value>...",
			Flags: []cli.Flag{
				fromFlag,
				cli.StringSliceFlag{Name: "to, t", Usage: "Receiver address, repeated for every leg"},
				cli.StringSliceFlag{Name: "amount, a", Usage: "Leg amount in whole units, repeated for every leg"},
			},
			Action: sendMulti,
		},
		{
			Name:      "transfers",
			Usage:     "List indexed transfers of the account",
			ArgsUsage: "--account <address> [--received] [--limit <n>]",
			Flags: []cli.Flag{
				accountFlag,
				cli.BoolFlag{Name: "received, r", Usage: "List received transfers instead of sent ones"},
				cli.IntFlag{Name: "limit, l", Usage: "Maximum number of transfers", Value: 20},
			},
			Action: transfers,
		},
	}

	return app
}

var (
	fromFlag    = cli.StringFlag{Name: "from, f", Usage: "Address of the account the request is sent on behalf of"}
	toFlag      = cli.StringFlag{Name: "to, t", Usage: "Receiver address"}
	accountFlag = cli.StringFlag{Name: "account", Usage: "Account address"}
	spenderFlag = cli.StringFlag{Name: "spender, s", Usage: "Spender address"}
	amountFlag  = cli.StringFlag{Name: "amount, a", Usage: "Amount in whole units, e.g. 1.5"}
)
