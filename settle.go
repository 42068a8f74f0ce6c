package rights

import (
	"context"
	"fmt"

	"github.com/xraph/rights/access"
	"github.com/xraph/rights/fees"
	"github.com/xraph/rights/id"
	"github.com/xraph/rights/plugin"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/treasury"
	"github.com/xraph/rights/types"
)

// ──────────────────────────────────────────────────
// Terms
// ──────────────────────────────────────────────────

// SetupPolicy stores caller's terms on an active policy. A non-zero
// contentID must be held by caller.
func (e *Engine) SetupPolicy(ctx context.Context, caller types.Account, name string, contentID types.ContentID, terms policy.Terms) error {
	return e.exec(ctx, "setup_policy", func(ctx context.Context, c *call) error {
		p, err := e.activePolicy(name)
		if err != nil {
			return err
		}
		if contentID != 0 {
			if err := e.checkHolder(caller, contentID); err != nil {
				return err
			}
		}
		if err := p.Setup(ctx, e.identity, caller, contentID, terms); err != nil {
			return err
		}

		ev := plugin.SetupEvent{Policy: name, Holder: caller, ContentID: contentID, Terms: terms}
		c.emit(func(ctx context.Context) { e.plugins.EmitPolicySetup(ctx, ev) })
		return nil
	})
}

func (e *Engine) activePolicy(name string) (policy.Policy, error) {
	p, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if !e.policies.IsActive(quorum.KeyOf(name)) {
		return nil, fmt.Errorf("%w: %s is %s", ErrPolicyNotActive, name, e.PolicyStatus(name))
	}
	return p, nil
}

// ──────────────────────────────────────────────────
// Fees
// ──────────────────────────────────────────────────

// SetTreasuryFee sets the treasury rate for currency and marks it supported.
func (e *Engine) SetTreasuryFee(ctx context.Context, caller types.Account, currency types.Currency, bps uint64) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.exec(ctx, "set_treasury_fee", func(_ context.Context, c *call) error {
		if err := e.treasury.SetFee(currency, bps); err != nil {
			return err
		}
		e.feeChanged(c, e.treasuryAcct, currency, bps)
		return nil
	})
}

// SetTreasuryFeePercent is SetTreasuryFee with a whole-percent rate.
func (e *Engine) SetTreasuryFeePercent(ctx context.Context, caller types.Account, currency types.Currency, percent uint64) error {
	if err := fees.ValidatePercent(percent); err != nil {
		return err
	}
	return e.SetTreasuryFee(ctx, caller, currency, fees.CalcBps(percent))
}

// RemoveTreasuryCurrency stops settling in currency.
func (e *Engine) RemoveTreasuryCurrency(ctx context.Context, caller types.Account, currency types.Currency) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.exec(ctx, "remove_treasury_currency", func(_ context.Context, c *call) error {
		if !e.treasury.IsSupported(currency) {
			return fmt.Errorf("%w: %s", treasury.ErrUnsupportedCurrency, currency)
		}
		e.treasury.RemoveCurrency(currency)
		e.feeChanged(c, e.treasuryAcct, currency, 0)
		return nil
	})
}

// SetDistributorFee sets an active distributor's own rate for currency.
func (e *Engine) SetDistributorFee(ctx context.Context, account types.Account, currency types.Currency, bps uint64) error {
	return e.exec(ctx, "set_distributor_fee", func(_ context.Context, c *call) error {
		if err := e.directory.SetFee(account, currency, bps); err != nil {
			return err
		}
		e.feeChanged(c, account, currency, bps)
		return nil
	})
}

// RemoveDistributorCurrency stops an active distributor settling in currency.
func (e *Engine) RemoveDistributorCurrency(ctx context.Context, account types.Account, currency types.Currency) error {
	return e.exec(ctx, "remove_distributor_currency", func(_ context.Context, c *call) error {
		if err := e.directory.RemoveCurrency(account, currency); err != nil {
			return err
		}
		e.feeChanged(c, account, currency, 0)
		return nil
	})
}

func (e *Engine) feeChanged(c *call, subject types.Account, currency types.Currency, bps uint64) {
	rate := treasury.Rate{Subject: subject, Currency: currency, BPS: bps}
	c.emit(func(ctx context.Context) {
		e.logger.Info("fee changed",
			"subject", subject,
			"currency", currency,
			"bps", bps,
		)
		e.plugins.EmitFeeChanged(ctx, rate)
	})
}

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

// Quote is the price and fee schedule of a prospective settlement.
type Quote struct {
	Policy         string          `json:"policy"`
	ContentID      types.ContentID `json:"content_id"`
	Holder         types.Account   `json:"holder"`
	Custodian      types.Account   `json:"custodian"`
	Units          uint64          `json:"units"`
	Gross          types.Money     `json:"gross"`
	DistributorBPS uint64          `json:"distributor_bps"`
	TreasuryBPS    uint64          `json:"treasury_bps"`
}

// Split divides total according to the quoted rates.
func (q *Quote) Split(total uint64) (fees.Split, error) {
	return fees.SplitOf(total, q.DistributorBPS, q.TreasuryBPS)
}

// Quote prices units of access to contentID under the named policy.
func (e *Engine) Quote(name string, contentID types.ContentID, units uint64) (*Quote, error) {
	q, _, err := e.quote(name, contentID, units)
	return q, err
}

func (e *Engine) quote(name string, contentID types.ContentID, units uint64) (*Quote, policy.Policy, error) {
	p, err := e.activePolicy(name)
	if err != nil {
		return nil, nil, err
	}

	if !e.contents.IsActive(quorum.ContentKey(contentID)) {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrContentNotActive, contentID, e.ContentStatus(contentID))
	}
	rec, err := e.ownership.Get(contentID)
	if err != nil {
		return nil, nil, err
	}
	if rec.Custodian.IsZero() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoCustodian, contentID)
	}
	dist, err := e.directory.Active(rec.Custodian)
	if err != nil {
		return nil, nil, err
	}

	holder, err := e.owners.OwnerOf(contentID)
	if err != nil {
		return nil, nil, err
	}
	gross, err := p.Assess(holder, contentID, units)
	if err != nil {
		return nil, nil, err
	}

	treasuryBps, err := e.treasury.GetFee(gross.Currency)
	if err != nil {
		return nil, nil, err
	}
	distBps, err := dist.GetFeeRate(gross.Currency)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s does not accept %s", ErrDistributorCurrency, dist.Account(), gross.Currency)
	}

	return &Quote{
		Policy:         name,
		ContentID:      contentID,
		Holder:         holder,
		Custodian:      dist.Account(),
		Units:          units,
		Gross:          gross,
		DistributorBPS: distBps,
		TreasuryBPS:    treasuryBps,
	}, p, nil
}

// SettleRequest is a consumer's payment for access.
type SettleRequest struct {
	Policy    string          `json:"policy"`
	Account   types.Account   `json:"account"`
	ContentID types.ContentID `json:"content_id"`
	Units     uint64          `json:"units"`
	// Amount is what the consumer authorizes the vault to pull. Zero means
	// exactly the quoted gross.
	Amount uint64 `json:"amount,omitempty"`
}

// Validate checks the request shape.
func (r SettleRequest) Validate() error {
	var errs MultiError
	if r.Policy == "" {
		errs.Add(ValidationError{Field: "policy", Message: "must not be empty"})
	}
	if r.Account.IsZero() {
		errs.Add(ValidationError{Field: "account", Message: "must not be empty"})
	}
	if r.Units == 0 {
		errs.Add(ValidationError{Field: "units", Message: "must be positive"})
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Settle executes a payment. The policy credits the holder's share, the
// engine credits the custodian and the treasury, then pulls the payment
// into the vault. Any failure leaves every book unchanged.
func (e *Engine) Settle(ctx context.Context, req SettleRequest) (*receipt.Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var r *receipt.Receipt
	err := e.exec(ctx, "settle", func(ctx context.Context, c *call) error {
		q, p, err := e.quote(req.Policy, req.ContentID, req.Units)
		if err != nil {
			return err
		}

		total := req.Amount
		if total == 0 {
			total = q.Gross.Amount
		}
		if total < q.Gross.Amount {
			return fmt.Errorf("%w: authorized %d, gross is %s", policy.ErrInsufficientPayment, total, q.Gross)
		}
		split, err := q.Split(total)
		if err != nil {
			return err
		}
		currency := q.Gross.Currency

		a := policy.Agreement{
			ID:        id.NewAgreementID(),
			Account:   req.Account,
			Holder:    q.Holder,
			ContentID: req.ContentID,
			Currency:  currency,
			Units:     req.Units,
			Total:     split.Total,
			Available: split.Holder,
		}
		if err := p.Exec(ctx, e.identity, a); err != nil {
			return err
		}

		if split.Distributor > 0 {
			if err := e.settlement.Increase(q.Custodian, currency, split.Distributor); err != nil {
				return err
			}
		}
		if split.Treasury > 0 {
			if err := e.settlement.Increase(e.treasuryAcct, currency, split.Treasury); err != nil {
				return err
			}
		}

		r = &receipt.Receipt{
			Entity:         types.EntityAt(e.clock()),
			ID:             id.NewSettlementID(),
			Kind:           receipt.KindSettlement,
			AgreementID:    a.ID,
			Policy:         req.Policy,
			Account:        req.Account,
			Holder:         q.Holder,
			Distributor:    q.Custodian,
			ContentID:      req.ContentID,
			Currency:       currency,
			Units:          req.Units,
			Total:          split.Total,
			DistributorFee: split.Distributor,
			TreasuryFee:    split.Treasury,
			HolderShare:    split.Holder,
		}
		e.record(r)

		c.transfer("settlement payment",
			func(ctx context.Context) error {
				return e.assets.TransferFrom(ctx, currency, e.vault, req.Account, e.vault, total)
			},
			func(ctx context.Context) error {
				return e.assets.Transfer(ctx, currency, e.vault, req.Account, total)
			},
		)
		c.emit(func(ctx context.Context) {
			e.logger.Info("settlement committed",
				"receipt_id", r.ID.String(),
				"policy", r.Policy,
				"account", r.Account,
				"content_id", r.ContentID,
				"total", r.Amount().String(),
			)
			e.plugins.EmitSettled(ctx, r)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Withdraw pays out account's withdrawable balance. A zero amount withdraws
// everything.
func (e *Engine) Withdraw(ctx context.Context, account types.Account, currency types.Currency, amount uint64) (*receipt.Receipt, error) {
	if account.IsZero() {
		return nil, ValidationError{Field: "account", Message: "must not be empty"}
	}

	var r *receipt.Receipt
	err := e.exec(ctx, "withdraw", func(_ context.Context, c *call) error {
		balance := e.settlement.Read(account, currency)
		if balance == 0 {
			return fmt.Errorf("%w: %s has no %s", ErrNothingToWithdraw, account, currency)
		}
		if amount == 0 {
			amount = balance
		}
		if err := e.settlement.Decrease(account, currency, amount); err != nil {
			return err
		}

		r = &receipt.Receipt{
			Entity:   types.EntityAt(e.clock()),
			ID:       id.NewWithdrawalID(),
			Kind:     receipt.KindWithdrawal,
			Account:  account,
			Currency: currency,
			Total:    amount,
		}
		e.record(r)

		c.transfer("withdrawal",
			func(ctx context.Context) error {
				return e.assets.Transfer(ctx, currency, e.vault, account, amount)
			},
			func(ctx context.Context) error {
				return e.assets.TransferFrom(ctx, currency, e.vault, account, e.vault, amount)
			},
		)
		c.emit(func(ctx context.Context) {
			e.logger.Info("withdrawal committed",
				"receipt_id", r.ID.String(),
				"account", account,
				"total", r.Amount().String(),
			)
			e.plugins.EmitWithdrawn(ctx, r)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ──────────────────────────────────────────────────
// Access
// ──────────────────────────────────────────────────

// Access reports whether account may consume contentID under the named
// policy. Blocked or unapproved policies and content deny access.
func (e *Engine) Access(ctx context.Context, account types.Account, name string, contentID types.ContentID) (*access.Result, error) {
	p, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}

	res := &access.Result{Policy: name, Account: account, ContentID: contentID}
	switch {
	case !e.policies.IsActive(quorum.KeyOf(name)):
		res.Reason = "policy is " + e.PolicyStatus(name).String()
	case !e.contents.IsActive(quorum.ContentKey(contentID)):
		res.Reason = "content is " + e.ContentStatus(contentID).String()
	case !p.Comply(account, contentID):
		res.Reason = "no live grant"
	default:
		res.Allowed = true
		if x, ok := p.(policy.Expirer); ok {
			if exp, ok := x.ExpiryOf(account, contentID); ok {
				res.Expiry = &exp
			}
		}
	}

	e.plugins.EmitAccessChecked(ctx, res)
	return res, nil
}

// DisallowAccess removes account from the allow-list holder set up for
// contentID under the named policy. The policy need not be active.
func (e *Engine) DisallowAccess(ctx context.Context, holder types.Account, name string, contentID types.ContentID, account types.Account) error {
	return e.exec(ctx, "disallow_access", func(ctx context.Context, c *call) error {
		p, err := e.registry.Get(name)
		if err != nil {
			return err
		}
		r, ok := p.(policy.Revoker)
		if !ok {
			return fmt.Errorf("%w: %s has no allow-list", ErrInvalidInput, name)
		}
		if err := e.checkHolder(holder, contentID); err != nil {
			return err
		}
		g, err := r.Revoke(ctx, e.identity, holder, contentID, account)
		if err != nil {
			return err
		}
		c.emit(func(ctx context.Context) { e.plugins.EmitAccessRevoked(ctx, g) })
		return nil
	})
}
