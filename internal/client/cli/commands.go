package cli

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/address"
	"github.com/dmitrijs2005/alarmlock/internal/api"
	"github.com/dmitrijs2005/alarmlock/internal/common"
	"github.com/dmitrijs2005/alarmlock/internal/cryptox"
	"github.com/spf13/pflag"
)

func ownerOf(key ed25519.PrivateKey) (address.Address, error) {
	return address.FromPublicKey(key.Public().(ed25519.PublicKey))
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func exactArgs(fs *pflag.FlagSet, n int, usage string) error {
	if fs.NArg() != n {
		return fmt.Errorf("usage: vaultctl %s", usage)
	}
	return nil
}

// ParseUnlockTime accepts unix seconds, an RFC 3339 timestamp, or a
// duration from now prefixed with "+" such as "+72h".
func ParseUnlockTime(s string, now time.Time) (int64, error) {
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid unlock duration %q", s)
		}
		return now.Add(d).Unix(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid unlock time %q", s)
	}
	return t.Unix(), nil
}

func (a *App) keygen(ctx context.Context, args []string) error {
	fs := newFlagSet("keygen")
	force := fs.Bool("force", false, "replace an existing keystore")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pass, err := readSecret(a.reader, a.errOut, "New passphrase: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)
	confirm, err := readSecret(a.reader, a.errOut, "Repeat passphrase: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(pass) != string(confirm) {
		return errors.New("passphrases do not match")
	}
	if len(pass) == 0 {
		return errors.New("empty passphrase")
	}

	key, err := cryptox.GenerateKey()
	if err != nil {
		return err
	}
	ks, err := cryptox.Seal(key, pass)
	if err != nil {
		return err
	}
	if err := cryptox.Save(a.config.KeystorePath, ks, *force); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "owner:    %s\nkeystore: %s\n", ks.Address, a.config.KeystorePath)
	return nil
}

func (a *App) showAddress(ctx context.Context, args []string) error {
	ks, err := cryptox.Load(a.config.KeystorePath)
	if err != nil {
		return err
	}
	owner, err := ks.Owner()
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	addrs, err := a.client.Addresses(ctx, owner)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "owner:   %s\nvault:   %s\nholding: %s\nprogram: %s\n", addrs.Owner, addrs.Vault, addrs.Holding, addrs.Program)
	return nil
}

func (a *App) airdrop(ctx context.Context, args []string) error {
	fs := newFlagSet("airdrop")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := exactArgs(fs, 1, commands["airdrop"].usage); err != nil {
		return err
	}
	amount, err := ParseAmount(fs.Arg(0))
	if err != nil {
		return err
	}

	if _, err := a.session(ctx); err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	balance, err := a.client.Airdrop(ctx, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "balance: %s\n", FormatAmount(balance))
	return nil
}

func (a *App) initialize(ctx context.Context, args []string) error {
	fs := newFlagSet("init")
	unlock := fs.String("unlock", "", "unlock time: unix seconds, RFC 3339, or +duration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *unlock == "" {
		return fmt.Errorf("usage: vaultctl %s", commands["init"].usage)
	}
	unlockTime, err := ParseUnlockTime(*unlock, a.now())
	if err != nil {
		return err
	}

	addrs, err := a.session(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.Initialize(ctx, addrs, unlockTime)
	if err != nil {
		return err
	}
	a.report(ctx, resp)
	return nil
}

func (a *App) deposit(ctx context.Context, args []string) error {
	fs := newFlagSet("deposit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := exactArgs(fs, 1, commands["deposit"].usage); err != nil {
		return err
	}
	amount, err := ParseAmount(fs.Arg(0))
	if err != nil {
		return err
	}

	addrs, err := a.session(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.Deposit(ctx, addrs, amount)
	if err != nil {
		return err
	}
	a.report(ctx, resp)
	return nil
}

func (a *App) withdraw(ctx context.Context, args []string) error {
	fs := newFlagSet("withdraw")
	wait := fs.Bool("wait", false, "wait until the vault unlocks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	addrs, err := a.session(ctx)
	if err != nil {
		return err
	}

	if *wait {
		if err := a.waitUnlocked(ctx, addrs.Vault); err != nil {
			return err
		}
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.Withdraw(ctx, addrs)
	if err != nil {
		return err
	}
	a.report(ctx, resp)
	return nil
}

const defaultPollInterval = 5 * time.Second

// waitUnlocked polls the vault until the service reports it unlockable.
func (a *App) waitUnlocked(ctx context.Context, vault address.Address) error {
	interval := a.config.WaitPollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rctx, cancel := a.withTimeout(ctx)
		resp, err := a.client.GetVault(rctx, vault)
		cancel()
		if err != nil {
			return err
		}
		if resp.Vault.Unlockable {
			return nil
		}

		remaining := time.Unix(resp.Vault.UnlockTime, 0).Sub(a.now()).Round(time.Second)
		fmt.Fprintf(a.errOut, "locked until %s (%s left)\n", time.Unix(resp.Vault.UnlockTime, 0).UTC().Format(time.RFC3339), remaining)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *App) closeVault(ctx context.Context, args []string) error {
	addrs, err := a.session(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.CloseVault(ctx, addrs)
	if err != nil {
		return err
	}
	a.report(ctx, resp)
	return nil
}

// targetOrOwn returns the address given as the only argument, or the
// owner's derived address chosen by pick.
func (a *App) targetOrOwn(ctx context.Context, args []string, pick func(owner address.Address) (address.Address, error)) (address.Address, error) {
	if len(args) > 1 {
		return address.Address{}, errors.New("too many arguments")
	}
	if len(args) == 1 {
		return address.Parse(args[0])
	}

	ks, err := cryptox.Load(a.config.KeystorePath)
	if err != nil {
		return address.Address{}, err
	}
	owner, err := ks.Owner()
	if err != nil {
		return address.Address{}, err
	}
	return pick(owner)
}

func (a *App) show(ctx context.Context, args []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	vault, err := a.targetOrOwn(ctx, args, func(owner address.Address) (address.Address, error) {
		addrs, err := a.client.Addresses(ctx, owner)
		if err != nil {
			return address.Address{}, err
		}
		return addrs.Vault, nil
	})
	if err != nil {
		return err
	}

	resp, err := a.client.GetVault(ctx, vault)
	if err != nil {
		return err
	}

	v := resp.Vault
	state := "locked"
	if v.Unlockable {
		state = "unlocked"
	}
	fmt.Fprintf(a.out, "vault:     %s\nowner:     %s\nholding:   %s\nbalance:   %s\nunlock:    %s (%s)\ndeposit:   %s\nlifecycle: %s\n",
		v.Address, v.Owner, v.Holding, FormatAmount(v.Balance),
		time.Unix(v.UnlockTime, 0).UTC().Format(time.RFC3339), state,
		FormatAmount(v.Deposit), v.LifecycleID)
	for _, e := range resp.Events {
		a.printEvent(e)
	}
	return nil
}

func (a *App) balance(ctx context.Context, args []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	addr, err := a.targetOrOwn(ctx, args, func(owner address.Address) (address.Address, error) {
		return owner, nil
	})
	if err != nil {
		return err
	}

	balance, err := a.client.GetBalance(ctx, addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", addr, FormatAmount(balance))
	return nil
}

func (a *App) printEvent(e api.Event) {
	line := fmt.Sprintf("  #%d %s %s", e.Seq, time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339), e.Kind)
	if e.Amount > 0 {
		line += " " + FormatAmount(e.Amount)
	}
	fmt.Fprintln(a.out, line)
}

func (a *App) printOperation(resp *api.OperationResponse) {
	fmt.Fprintf(a.out, "%s", resp.Event.Kind)
	if resp.Event.Amount > 0 {
		fmt.Fprintf(a.out, " %s", FormatAmount(resp.Event.Amount))
	}
	fmt.Fprintln(a.out)
	if resp.Vault != nil {
		fmt.Fprintf(a.out, "vault:   %s\nholding: %s\n", resp.Vault.Address, FormatAmount(resp.Holding))
	}
	fmt.Fprintf(a.out, "wallet:  %s\n", FormatAmount(resp.OwnerBalance))
}
