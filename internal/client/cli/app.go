package cli

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/client/client"
	"github.com/dmitrijs2005/alarmlock/internal/client/config"
	"github.com/dmitrijs2005/alarmlock/internal/client/repositories/receipts"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/cryptox"
)

type App struct {
	config *config.Config
	client client.Client
	// journal may be nil when the local journal is disabled.
	journal receipts.Repository
	reader  *bufio.Reader
	out     io.Writer
	errOut  io.Writer
	now     func() time.Time
}

func NewApp(c *config.Config, cl client.Client, journal receipts.Repository) *App {
	return &App{
		config:  c,
		client:  cl,
		journal: journal,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		errOut:  os.Stderr,
		now:     time.Now,
	}
}

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"keygen":   {"keygen [--force]", (*App).keygen},
		"address":  {"address", (*App).showAddress},
		"airdrop":  {"airdrop <amount>", (*App).airdrop},
		"init":     {"init --unlock <time>", (*App).initialize},
		"deposit":  {"deposit <amount>", (*App).deposit},
		"withdraw": {"withdraw [--wait]", (*App).withdraw},
		"close":    {"close", (*App).closeVault},
		"show":     {"show [vault]", (*App).show},
		"balance":  {"balance [account]", (*App).balance},
		"log":      {"log", (*App).showLog},
	}
}

func (a *App) usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.errOut, "usage: vaultctl [-a server] [-k keystore] [-c config] <command> [args]")
	for _, name := range names {
		fmt.Fprintf(a.errOut, "  %s\n", commands[name].usage)
	}
}

// Run executes the command in args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.usage()
		return 2
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n", args[0])
		a.usage()
		return 2
	}

	if err := cmd.run(a, ctx, args[1:]); err != nil {
		fmt.Fprintf(a.errOut, "error: %s\n", describe(err))
		return 1
	}
	return 0
}

// describe renders err for the user; custody errors show their stable name.
func describe(err error) string {
	if name := common.Name(err); name != "" {
		return fmt.Sprintf("%s (%s)", name, err.Error())
	}
	switch {
	case errors.Is(err, client.ErrNotLoggedIn):
		return "not logged in"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.Is(err, cryptox.ErrWrongPassphrase):
		return "wrong passphrase"
	}
	return err.Error()
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// unlock decrypts the keystore with a passphrase read from the user.
func (a *App) unlock() (ed25519.PrivateKey, error) {
	ks, err := cryptox.Load(a.config.KeystorePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no keystore at %s, run keygen first", a.config.KeystorePath)
		}
		return nil, err
	}

	pass, err := readSecret(a.reader, a.errOut, "Passphrase: ")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pass)

	return ks.Open(pass)
}

// session unlocks the key, signs in and resolves the owner's addresses.
func (a *App) session(ctx context.Context) (*client.Addresses, error) {
	key, err := a.unlock()
	if err != nil {
		return nil, err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Login(ctx, key); err != nil {
		return nil, err
	}

	owner, err := ownerOf(key)
	if err != nil {
		return nil, err
	}
	return a.client.Addresses(ctx, owner)
}
