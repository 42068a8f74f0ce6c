package rights

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/rights/id"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/plugin"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/types"
)

// transition applies op to key and queues the enrollment event.
func (e *Engine) transition(c *call, m *quorum.Machine, op quorum.Op, key quorum.Key, subject string, actor types.Account) error {
	from := m.Status(key)

	var err error
	switch op {
	case quorum.OpRegister:
		err = m.Register(key)
	case quorum.OpApprove:
		err = m.Approve(key)
	case quorum.OpReject:
		err = m.Reject(key)
	case quorum.OpQuit:
		err = m.Quit(key)
	default:
		err = fmt.Errorf("%w: unknown operation %q", ErrInvalidInput, op)
	}
	if err != nil {
		return err
	}

	ev := plugin.EnrollmentEvent{
		Domain:  m.Domain(),
		Subject: subject,
		Key:     key,
		Op:      op,
		From:    from,
		To:      m.Status(key),
		Actor:   actor,
	}
	c.emit(func(ctx context.Context) {
		e.logger.Info("enrollment transition",
			"domain", ev.Domain,
			"subject", ev.Subject,
			"op", ev.Op,
			"from", ev.From.String(),
			"to", ev.To.String(),
		)
		e.plugins.EmitEnrollment(ctx, ev)
	})
	return nil
}

// ──────────────────────────────────────────────────
// Distributors
// ──────────────────────────────────────────────────

// RegisterDistributor submits account for onboarding and escrows the
// enrollment fee, pulled from account through the vault's allowance.
func (e *Engine) RegisterDistributor(ctx context.Context, account types.Account) error {
	if account.IsZero() {
		return ValidationError{Field: "account", Message: "must not be empty"}
	}
	if e.reserved(account) {
		return fmt.Errorf("%w: %s", ErrReservedAccount, account)
	}

	return e.exec(ctx, "register_distributor", func(_ context.Context, c *call) error {
		if err := e.transition(c, e.distributors, quorum.OpRegister, quorum.AccountKey(account), account.String(), account); err != nil {
			return err
		}

		fee := e.enrollmentFee
		if fee.IsZero() {
			return nil
		}
		if err := e.enrollment.Increase(account, fee.Currency, fee.Amount); err != nil {
			return err
		}

		r := &receipt.Receipt{
			Entity:   types.EntityAt(e.clock()),
			ID:       id.NewDepositID(),
			Kind:     receipt.KindDeposit,
			Account:  account,
			Currency: fee.Currency,
			Total:    fee.Amount,
		}
		e.record(r)

		c.transfer("enrollment deposit",
			func(ctx context.Context) error {
				return e.assets.TransferFrom(ctx, fee.Currency, e.vault, account, e.vault, fee.Amount)
			},
			func(ctx context.Context) error {
				return e.assets.Transfer(ctx, fee.Currency, e.vault, account, fee.Amount)
			},
		)
		c.emit(func(ctx context.Context) { e.plugins.EmitDeposit(ctx, r) })
		return nil
	})
}

// ApproveDistributor activates a waiting distributor and releases its
// escrowed deposit to the treasury.
func (e *Engine) ApproveDistributor(ctx context.Context, caller, account types.Account) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	return e.exec(ctx, "approve_distributor", func(_ context.Context, c *call) error {
		if err := e.transition(c, e.distributors, quorum.OpApprove, quorum.AccountKey(account), account.String(), caller); err != nil {
			return err
		}
		for _, entry := range e.escrowOf(account) {
			if err := e.enrollment.Decrease(account, entry.Currency, entry.Amount); err != nil {
				return err
			}
			if err := e.settlement.Increase(e.treasuryAcct, entry.Currency, entry.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

// QuitDistributor withdraws a waiting application. The escrowed deposit
// becomes withdrawable by the applicant.
func (e *Engine) QuitDistributor(ctx context.Context, account types.Account) error {
	return e.exec(ctx, "quit_distributor", func(_ context.Context, c *call) error {
		if err := e.transition(c, e.distributors, quorum.OpQuit, quorum.AccountKey(account), account.String(), account); err != nil {
			return err
		}
		for _, entry := range e.escrowOf(account) {
			if err := e.enrollment.Decrease(account, entry.Currency, entry.Amount); err != nil {
				return err
			}
			if err := e.settlement.Increase(account, entry.Currency, entry.Amount); err != nil {
				return err
			}

			r := &receipt.Receipt{
				Entity:   types.EntityAt(e.clock()),
				ID:       id.NewRefundID(),
				Kind:     receipt.KindRefund,
				Account:  account,
				Currency: entry.Currency,
				Total:    entry.Amount,
			}
			e.record(r)
			c.emit(func(ctx context.Context) { e.plugins.EmitDeposit(ctx, r) })
		}
		return nil
	})
}

// RevokeDistributor blocks an active distributor permanently.
func (e *Engine) RevokeDistributor(ctx context.Context, caller, account types.Account) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	return e.exec(ctx, "revoke_distributor", func(_ context.Context, c *call) error {
		return e.transition(c, e.distributors, quorum.OpReject, quorum.AccountKey(account), account.String(), caller)
	})
}

func (e *Engine) escrowOf(account types.Account) []ledger.Entry {
	var out []ledger.Entry
	for _, entry := range e.enrollment.Entries() {
		if entry.Account == account {
			out = append(out, entry)
		}
	}
	return out
}

// ──────────────────────────────────────────────────
// Policies
// ──────────────────────────────────────────────────

// RegisterPolicy submits an installed policy for audit.
func (e *Engine) RegisterPolicy(ctx context.Context, name string) error {
	return e.exec(ctx, "register_policy", func(_ context.Context, c *call) error {
		if _, err := e.registry.Get(name); err != nil {
			return err
		}
		return e.transition(c, e.policies, quorum.OpRegister, quorum.KeyOf(name), name, e.identity)
	})
}

// InstallPolicy builds a policy, adds it to the registry and submits it for
// audit in one call. Only the audit status and the policy's terms and grants
// are persisted: after a restart the same factory must be passed again with
// WithPolicy, or the policy stays unavailable.
func (e *Engine) InstallPolicy(ctx context.Context, f PolicyFactory) error {
	return e.exec(ctx, "install_policy", func(_ context.Context, c *call) error {
		p := f(e.PolicyEnv())
		if err := e.registry.Register(p); err != nil {
			return err
		}
		return e.transition(c, e.policies, quorum.OpRegister, quorum.KeyOf(p.Name()), p.Name(), e.identity)
	})
}

// ApprovePolicy activates a policy under audit.
func (e *Engine) ApprovePolicy(ctx context.Context, caller types.Account, name string) error {
	return e.auditPolicy(ctx, "approve_policy", quorum.OpApprove, caller, name)
}

// RejectPolicy blocks a policy under audit or already active.
func (e *Engine) RejectPolicy(ctx context.Context, caller types.Account, name string) error {
	return e.auditPolicy(ctx, "reject_policy", quorum.OpReject, caller, name)
}

// QuitPolicy withdraws a policy from audit.
func (e *Engine) QuitPolicy(ctx context.Context, caller types.Account, name string) error {
	return e.auditPolicy(ctx, "quit_policy", quorum.OpQuit, caller, name)
}

func (e *Engine) auditPolicy(ctx context.Context, opName string, op quorum.Op, caller types.Account, name string) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	return e.exec(ctx, opName, func(_ context.Context, c *call) error {
		if _, err := e.registry.Get(name); err != nil {
			return err
		}
		return e.transition(c, e.policies, op, quorum.KeyOf(name), name, caller)
	})
}

// ──────────────────────────────────────────────────
// Content
// ──────────────────────────────────────────────────

// RegisterContent records holder as the owner of contentID and submits it
// for vetting. A configured external registry must agree on the holder.
func (e *Engine) RegisterContent(ctx context.Context, holder types.Account, contentID types.ContentID, payload []byte) error {
	if holder.IsZero() {
		return ValidationError{Field: "holder", Message: "must not be empty"}
	}

	return e.exec(ctx, "register_content", func(_ context.Context, c *call) error {
		if e.external != nil {
			owner, err := e.external.OwnerOf(contentID)
			if err != nil {
				return err
			}
			if owner != holder {
				return fmt.Errorf("%w: %s is held by %s", ErrNotContentHolder, contentID, owner)
			}
		}

		rec, err := e.ownership.Get(contentID)
		switch {
		case errors.Is(err, ownership.ErrUnknownContent):
			if err := e.ownership.Register(contentID, holder, payload); err != nil {
				return err
			}
			rec = ownership.Record{ContentID: contentID, Holder: holder, Payload: payload}
		case err != nil:
			return err
		case rec.Holder != holder:
			return fmt.Errorf("%w: %s is held by %s", ErrNotContentHolder, contentID, rec.Holder)
		}

		if err := e.transition(c, e.contents, quorum.OpRegister, quorum.ContentKey(contentID), contentID.String(), holder); err != nil {
			return err
		}
		c.emit(func(ctx context.Context) { e.plugins.EmitContentRegistered(ctx, rec) })
		return nil
	})
}

// ApproveContent activates content under vetting.
func (e *Engine) ApproveContent(ctx context.Context, caller types.Account, contentID types.ContentID) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.exec(ctx, "approve_content", func(_ context.Context, c *call) error {
		return e.transition(c, e.contents, quorum.OpApprove, quorum.ContentKey(contentID), contentID.String(), caller)
	})
}

// RejectContent blocks content under vetting or already active.
func (e *Engine) RejectContent(ctx context.Context, caller types.Account, contentID types.ContentID) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.exec(ctx, "reject_content", func(_ context.Context, c *call) error {
		return e.transition(c, e.contents, quorum.OpReject, quorum.ContentKey(contentID), contentID.String(), caller)
	})
}

// QuitContent withdraws content from vetting. Only its holder may do so.
func (e *Engine) QuitContent(ctx context.Context, holder types.Account, contentID types.ContentID) error {
	return e.exec(ctx, "quit_content", func(_ context.Context, c *call) error {
		if err := e.checkHolder(holder, contentID); err != nil {
			return err
		}
		return e.transition(c, e.contents, quorum.OpQuit, quorum.ContentKey(contentID), contentID.String(), holder)
	})
}

// DelegateCustody names the distributor that settles contentID. An empty
// custodian clears custody.
func (e *Engine) DelegateCustody(ctx context.Context, holder types.Account, contentID types.ContentID, custodian types.Account) error {
	return e.exec(ctx, "delegate_custody", func(_ context.Context, c *call) error {
		if !custodian.IsZero() {
			if _, err := e.directory.Active(custodian); err != nil {
				return err
			}
		}
		if err := e.ownership.Delegate(contentID, holder, custodian); err != nil {
			return err
		}
		rec, err := e.ownership.Get(contentID)
		if err != nil {
			return err
		}
		c.emit(func(ctx context.Context) { e.plugins.EmitCustodyDelegated(ctx, rec) })
		return nil
	})
}

// reserved reports whether account is one of the engine's own identities.
// Distributor rates share a keyspace with the treasury rates.
func (e *Engine) reserved(account types.Account) bool {
	switch account {
	case e.admin, e.treasuryAcct, e.vault, e.identity:
		return true
	}
	return false
}

func (e *Engine) checkHolder(caller types.Account, contentID types.ContentID) error {
	owner, err := e.owners.OwnerOf(contentID)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %s is held by %s", ErrNotContentHolder, contentID, owner)
	}
	return nil
}
