package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/alarmlock/internal/api"
	"github.com/dmitrijs2005/alarmlock/internal/client/repositories/receipts"
	"github.com/dmitrijs2005/alarmlock/internal/cryptox"
)

// report prints a committed operation and keeps a receipt of it. A failure
// to write the receipt is only a warning since the operation is committed.
func (a *App) report(ctx context.Context, resp *api.OperationResponse) {
	a.printOperation(resp)
	if a.journal == nil {
		return
	}

	e := resp.Event
	err := a.journal.Add(ctx, receipts.Receipt{
		EventID:     e.ID,
		Seq:         e.Seq,
		Kind:        e.Kind,
		Owner:       e.Owner,
		Vault:       e.Vault,
		LifecycleID: e.LifecycleID,
		Amount:      e.Amount,
		UnlockTime:  e.UnlockTime,
		Timestamp:   e.Timestamp,
		Server:      a.config.ServerEndpointAddr,
		RecordedAt:  a.now(),
	})
	if err != nil {
		fmt.Fprintf(a.errOut, "warning: receipt not saved: %v\n", err)
	}
}

func (a *App) showLog(ctx context.Context, args []string) error {
	fs := newFlagSet("log")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := exactArgs(fs, 0, commands["log"].usage); err != nil {
		return err
	}
	if a.journal == nil {
		return errors.New("journal disabled")
	}

	ks, err := cryptox.Load(a.config.KeystorePath)
	if err != nil {
		return err
	}

	list, err := a.journal.ListByOwner(ctx, ks.Address)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no receipts")
		return nil
	}

	for _, r := range list {
		line := fmt.Sprintf("%s %-16s vault %s", time.Unix(r.Timestamp, 0).UTC().Format(time.RFC3339), r.Kind, r.Vault)
		if r.Amount > 0 {
			line += " " + FormatAmount(r.Amount)
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}
