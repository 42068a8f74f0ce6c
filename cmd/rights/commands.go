package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/xraph/rights"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/receipt"
	"github.com/xraph/rights/store/sqlite"
	"github.com/xraph/rights/types"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(s *sqlite.Store) error {
				if err := s.Migrate(cmd.Context()); err != nil {
					return err
				}
				cfg, _ := ctx.ensureConfig()
				fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", cfg.Database)
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var currencies []string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize enrollments, policies and liabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(e *rights.Engine) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Admin:        %s\n", e.Admin())
				fmt.Fprintf(out, "Treasury:     %s\n", e.Treasury().Account())
				fmt.Fprintf(out, "Vault:        %s\n", e.Vault())
				fmt.Fprintf(out, "Distributors: %d active\n", e.ActiveDistributors())
				fmt.Fprintf(out, "Policies:     %d active\n", e.ActivePolicies())
				fmt.Fprintf(out, "Contents:     %d active\n", e.ActiveContents())

				rows := make([][]string, 0, len(e.Policies()))
				for _, p := range e.Policies() {
					rows = append(rows, []string{p.Name(), e.PolicyStatus(p.Name()).String()})
				}
				fmt.Fprintln(out, renderTable([]string{"POLICY", "STATUS"}, rows, nil))

				if len(currencies) == 0 {
					return nil
				}
				rows = rows[:0]
				for _, c := range currencies {
					currency := types.NewCurrency(c)
					total, err := e.Liabilities(currency)
					if err != nil {
						return err
					}
					rows = append(rows, []string{currency.String(), types.NewMoney(total, currency).FormatMajor()})
				}
				fmt.Fprintln(out, renderTable([]string{"CURRENCY", "LIABILITIES"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&currencies, "currency", nil, "Report liabilities for these currencies")
	return cmd
}

func newBalanceCommand(ctx *commandContext) *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:   "balance <account>",
		Short: "Show an account's withdrawable balance and escrowed deposits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account := types.NewAccount(args[0])
			if account == "" {
				return fmt.Errorf("account must not be empty")
			}
			return ctx.withEngine(cmd, func(e *rights.Engine) error {
				var rows [][]string
				if currency != "" {
					c := types.NewCurrency(currency)
					rows = append(rows,
						[]string{string(ledger.Settlement), c.String(), e.Balance(account, c).FormatMajor()},
						[]string{string(ledger.Enrollment), c.String(), e.Escrow(account, c).FormatMajor()},
					)
				} else {
					for _, entry := range e.Entries() {
						if entry.Account != account {
							continue
						}
						rows = append(rows, []string{
							string(entry.Book),
							entry.Currency.String(),
							types.NewMoney(entry.Amount, entry.Currency).FormatMajor(),
						})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No balances for %s\n", account)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"BOOK", "CURRENCY", "AMOUNT"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "Limit the report to one currency")
	return cmd
}

func newEnrollmentsCommand(ctx *commandContext) *cobra.Command {
	var domain string
	var status string
	var distributors []string

	cmd := &cobra.Command{
		Use:   "enrollments",
		Short: "List distributor, policy and content enrollments",
		RunE: func(cmd *cobra.Command, args []string) error {
			var want *quorum.Status
			if status != "" {
				s, err := quorum.ParseStatus(strings.ToLower(status))
				if err != nil {
					return err
				}
				want = &s
			}

			return ctx.withEngine(cmd, func(e *rights.Engine) error {
				names := subjectNames(e, distributors)

				var rows [][]string
				for _, rec := range e.Enrollments() {
					if domain != "" && string(rec.Domain) != domain {
						continue
					}
					if want != nil && rec.Status != *want {
						continue
					}
					rows = append(rows, []string{string(rec.Domain), subjectName(names, rec), rec.Status.String()})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No enrollments")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"DOMAIN", "SUBJECT", "STATUS"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Filter by domain (distributor, policy, content)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (waiting, active, blocked)")
	cmd.Flags().StringSliceVar(&distributors, "distributor", nil, "Distributor accounts to resolve by name")
	return cmd
}

type subjectKey struct {
	domain quorum.Domain
	key    quorum.Key
}

// subjectNames maps enrollment keys back to readable names. Distributor
// keys are hashes, so only the accounts passed in can be resolved.
func subjectNames(e *rights.Engine, distributors []string) map[subjectKey]string {
	names := make(map[subjectKey]string)
	for _, p := range e.Policies() {
		names[subjectKey{quorum.Policies, quorum.KeyOf(p.Name())}] = p.Name()
	}
	for _, d := range distributors {
		account := types.NewAccount(d)
		names[subjectKey{quorum.Distributors, quorum.AccountKey(account)}] = string(account)
	}
	return names
}

func subjectName(names map[subjectKey]string, rec quorum.Record) string {
	if name, ok := names[subjectKey{rec.Domain, rec.Key}]; ok {
		return name
	}
	if rec.Domain == quorum.Contents {
		return rec.Key.String()
	}
	return "#" + rec.Key.String()
}

func newFeesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fees",
		Short: "List treasury and distributor fee rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(e *rights.Engine) error {
				rates := e.Rates()
				if len(rates) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No fee rates")
					return nil
				}
				rows := make([][]string, 0, len(rates))
				for _, r := range rates {
					rows = append(rows, []string{
						string(r.Subject),
						r.Currency.String(),
						strconv.FormatUint(r.BPS, 10),
						decimal.New(int64(r.BPS), -2).StringFixed(2) + "%",
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"SUBJECT", "CURRENCY", "BPS", "PERCENT"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newReceiptsCommand(ctx *commandContext) *cobra.Command {
	var (
		kind    string
		account string
		limit   int
		offset  int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List settlement, withdrawal and deposit receipts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := receipt.ListOpts{
				Kind:    receipt.Kind(strings.ToLower(kind)),
				Account: types.NewAccount(account),
				Limit:   limit,
				Offset:  offset,
			}
			return ctx.withEngine(cmd, func(e *rights.Engine) error {
				list, err := e.Receipts(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No receipts")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, r := range list {
					rows = append(rows, []string{
						r.ID.String(),
						string(r.Kind),
						string(r.Account),
						r.Amount().String(),
						r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "KIND", "ACCOUNT", "AMOUNT", "CREATED"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind (settlement, withdrawal, deposit, refund)")
	cmd.Flags().StringVar(&account, "account", "", "Filter by party account")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum receipts to list (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Receipts to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newReceiptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt <id>",
		Short: "Show one receipt as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(e *rights.Engine) error {
				r, err := e.Receipt(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				return writeJSON(cmd, r)
			})
		},
	}
}
