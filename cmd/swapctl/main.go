// Command swapctl is a thin control-plane CLI over the core's read-only
// and operational surface: swap history, pending swaps, status refresh,
// and counterparty fee/limit queries. Operations that move funds
// (createLightningInvoice, sendLightningPayment, arkToBtc, btcToArk)
// require a concrete Wallet, which is an external collaborator outside
// this repository's scope (spec 1) and so aren't exposed here; embedders
// that supply a Wallet call operations.Service directly.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/urfave/cli"

	"github.com/arkade-labs/go-ark-swap/boltzrpc"
	"github.com/arkade-labs/go-ark-swap/config"
	"github.com/arkade-labs/go-ark-swap/log"
	"github.com/arkade-labs/go-ark-swap/operations"
	"github.com/arkade-labs/go-ark-swap/swapstore"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[swapctl] %v\n", err)
	os.Exit(1)
}

func openRepository(cfg *config.Config) (swapstore.Repository, error) {
	switch cfg.Storage.Backend {
	case "bolt":
		return swapstore.OpenBolt(cfg.Storage.Path)
	case "sqlite":
		return swapstore.OpenSQLite(cfg.Storage.Path)
	case "postgres":
		return swapstore.OpenPostgres(cfg.Storage.DSN)
	default:
		return swapstore.NewMemory(), nil
	}
}

var logger = log.NewSubLogger("CTL ")

func newService(ctx *cli.Context) (*operations.Service, func(), error) {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return nil, nil, err
	}
	if level, ok := btclog.LevelFromString(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	logger.Debugf("loaded config for network %s", cfg.Network)

	repo, err := openRepository(cfg)
	if err != nil {
		return nil, nil, err
	}

	client := boltzrpc.New(boltzrpc.Config{
		BaseURL:        cfg.Counterparty.BaseURL,
		WebSocketURL:   cfg.Counterparty.WebSocketURL,
		RetryBaseDelay: cfg.Counterparty.RetryBaseDelay,
		RetryMaxDelay:  cfg.Counterparty.RetryMaxDelay,
		PollInterval:   cfg.Counterparty.PollInterval,
	})

	svc := &operations.Service{
		Repo:         repo,
		Counterparty: client,
	}
	return svc, func() { repo.Close() }, nil
}

func main() {
	app := cli.NewApp()
	app.Name = "swapctl"
	app.Usage = "inspect and operate swaps tracked by the core"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "network", Value: "testnet"},
		cli.StringFlag{Name: "loglevel", Value: "info"},
		cli.StringFlag{Name: "storage.backend", Value: "memory"},
		cli.StringFlag{Name: "storage.path"},
		cli.StringFlag{Name: "storage.dsn"},
		cli.StringFlag{Name: "counterparty.base-url"},
		cli.StringFlag{Name: "counterparty.ws-url"},
	}
	app.Commands = []cli.Command{
		statusCommand,
		historyCommand,
		pendingCommand,
		refreshCommand,
		feesCommand,
		limitsCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

var statusCommand = cli.Command{
	Name:      "status",
	Usage:     "fetch a swap's current counterparty-reported status",
	ArgsUsage: "<swap-id>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.NewExitError("expected exactly one swap id", 1)
		}
		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		status, err := svc.GetSwapStatus(context.Background(), ctx.Args().First())
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", status.ID, status.Status)
		return nil
	},
}

var historyCommand = cli.Command{
	Name:  "history",
	Usage: "list every stored swap, most recent first",
	Action: func(ctx *cli.Context) error {
		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		swaps, err := svc.GetSwapHistory(context.Background())
		if err != nil {
			return err
		}
		for _, sw := range swaps {
			fmt.Printf("%s\t%s\t%s\t%d\n", sw.ID, sw.Kind, sw.Status, sw.CreatedAt)
		}
		return nil
	},
}

var pendingCommand = cli.Command{
	Name:      "pending",
	Usage:     "list pending swaps of one kind",
	ArgsUsage: "<reverse|submarine|chain>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.NewExitError("expected exactly one kind", 1)
		}
		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		bg := context.Background()
		var err2 error
		var results []string
		switch ctx.Args().First() {
		case "reverse":
			list, e := svc.GetPendingReverseSwaps(bg)
			err2 = e
			for _, sw := range list {
				results = append(results, fmt.Sprintf("%s\t%s", sw.ID, sw.Status))
			}
		case "submarine":
			list, e := svc.GetPendingSubmarineSwaps(bg)
			err2 = e
			for _, sw := range list {
				results = append(results, fmt.Sprintf("%s\t%s", sw.ID, sw.Status))
			}
		case "chain":
			list, e := svc.GetPendingChainSwaps(bg)
			err2 = e
			for _, sw := range list {
				results = append(results, fmt.Sprintf("%s\t%s", sw.ID, sw.Status))
			}
		default:
			return cli.NewExitError("kind must be reverse, submarine or chain", 1)
		}
		if err2 != nil {
			return err2
		}
		for _, line := range results {
			fmt.Println(line)
		}
		return nil
	},
}

var refreshCommand = cli.Command{
	Name:  "refresh",
	Usage: "best-effort re-sync every non-terminal swap's status",
	Action: func(ctx *cli.Context) error {
		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		svc.RefreshSwapsStatus(context.Background())
		return nil
	},
}

var feesCommand = cli.Command{
	Name:  "fees",
	Usage: "fetch the counterparty's current fee schedule",
	Action: func(ctx *cli.Context) error {
		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		fees, err := svc.GetFees(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", fees)
		return nil
	},
}

var limitsCommand = cli.Command{
	Name:  "limits",
	Usage: "fetch the counterparty's current swap amount limits",
	Action: func(ctx *cli.Context) error {
		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		limits, err := svc.GetLimits(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", limits)
		return nil
	},
}
