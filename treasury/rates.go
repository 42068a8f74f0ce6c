package treasury

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/rights/fees"
	"github.com/xraph/rights/journal"
	"github.com/xraph/rights/types"
)

// ErrUnsupportedCurrency is returned when no rate is set for a currency.
var ErrUnsupportedCurrency = errors.New("treasury: unsupported currency")

// Rate is the fee a subject charges in one currency. Zero means unset.
type Rate struct {
	Subject  types.Account  `json:"subject"`
	Currency types.Currency `json:"currency"`
	BPS      uint64         `json:"bps"`
}

// RateChange records a new rate. A zero BPS removes the row.
type RateChange struct {
	Rate
}

// Kind implements journal.Change.
func (RateChange) Kind() string { return "treasury.rate" }

type rateKey struct {
	subject  types.Account
	currency types.Currency
}

// Rates maps (subject, currency) to a basis-point fee. A subject supports a
// currency exactly when it has a rate for it.
type Rates struct {
	mu      sync.RWMutex
	rates   map[rateKey]uint64
	journal *journal.Journal
}

// NewRates creates an empty rate registry.
func NewRates(j *journal.Journal) *Rates {
	return &Rates{
		rates:   make(map[rateKey]uint64),
		journal: j,
	}
}

// Set stores a rate in [1, fees.MaxBPS].
func (r *Rates) Set(subject types.Account, currency types.Currency, bps uint64) error {
	if err := fees.ValidateBPS(bps); err != nil {
		return err
	}
	if currency.IsZero() {
		return fmt.Errorf("%w: empty currency", ErrUnsupportedCurrency)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(rateKey{subject, currency}, bps)
	return nil
}

// Unset removes a rate, dropping the currency from the subject's allowlist.
func (r *Rates) Unset(subject types.Account, currency types.Currency) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := rateKey{subject, currency}
	if _, ok := r.rates[k]; !ok {
		return
	}
	r.write(k, 0)
}

// Get returns the rate for subject in currency.
func (r *Rates) Get(subject types.Account, currency types.Currency) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bps, ok := r.rates[rateKey{subject, currency}]
	if !ok {
		return 0, fmt.Errorf("%w: %s for %s", ErrUnsupportedCurrency, currency, subject)
	}
	return bps, nil
}

// Supports reports whether subject has a rate for currency.
func (r *Rates) Supports(subject types.Account, currency types.Currency) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rates[rateKey{subject, currency}]
	return ok
}

// Currencies lists the currencies subject supports, sorted.
func (r *Rates) Currencies(subject types.Account) []types.Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.Currency
	for k := range r.rates {
		if k.subject == subject {
			out = append(out, k.currency)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns every rate ordered by subject then currency.
func (r *Rates) All() []Rate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rate, 0, len(r.rates))
	for k, v := range r.rates {
		out = append(out, Rate{Subject: k.subject, Currency: k.currency, BPS: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

// Restore loads persisted rates without recording changes.
func (r *Rates) Restore(rates []Rate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rt := range rates {
		k := rateKey{rt.Subject, rt.Currency}
		if rt.BPS == 0 {
			delete(r.rates, k)
			continue
		}
		r.rates[k] = rt.BPS
	}
}

// write must be called with mu held.
func (r *Rates) write(k rateKey, bps uint64) {
	prev, existed := r.rates[k]
	if bps == 0 {
		delete(r.rates, k)
	} else {
		r.rates[k] = bps
	}

	r.journal.Record(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existed {
			r.rates[k] = prev
		} else {
			delete(r.rates, k)
		}
	}, RateChange{Rate{Subject: k.subject, Currency: k.currency, BPS: bps}})
}
