package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-invoicing-client/accounting"
	"github.com/goliatone/go-invoicing-client/normalize"
)

func newInvoicesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoices",
		Aliases: []string{"invoice"},
		Short:   "List, inspect and edit invoices",
	}

	cmd.AddCommand(
		newInvoiceListCommand(a),
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one invoice",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				c, err := a.get(cmd.Context())
				if err != nil {
					return err
				}
				invoice, err := c.Accounting().Invoices.Detail(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd, invoice)
			},
		},
		newInvoiceByPersonCommand(a),
		&cobra.Command{
			Use:   "stats",
			Short: "Show the revenue summary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.get(cmd.Context())
				if err != nil {
					return err
				}
				summary, err := c.Accounting().Invoices.Statistics(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, summary)
			},
		},
		newInvoiceSaveCommand(a),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete an invoice",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				c, err := a.get(cmd.Context())
				if err != nil {
					return err
				}
				if err := c.Accounting().Invoices.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted invoice %s\n", id)
				return nil
			},
		},
	)

	return cmd
}

func newInvoiceListCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices, optionally filtered",
		Example: `  invoicing invoices list --buyer 4 --min-price 1000
  invoicing invoices list --product Hosting --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := invoiceFilterFromFlags(cmd)
			if err != nil {
				return err
			}
			c, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			invoices, err := c.Accounting().Invoices.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(cmd, invoices)
		},
	}

	flags := cmd.Flags()
	flags.String("buyer", "", "Buyer person id")
	flags.String("seller", "", "Seller person id")
	flags.String("product", "", "Product name")
	flags.String("min-price", "", "Minimum price")
	flags.String("max-price", "", "Maximum price")
	flags.Int("limit", 0, "Maximum number of invoices")
	return cmd
}

func invoiceFilterFromFlags(cmd *cobra.Command) (accounting.InvoiceFilter, error) {
	var filter accounting.InvoiceFilter
	flags := cmd.Flags()

	var err error
	if filter.BuyerID, err = idFlag(cmd, "buyer"); err != nil {
		return filter, err
	}
	if filter.SellerID, err = idFlag(cmd, "seller"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = decimalFlag(cmd, "min-price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = decimalFlag(cmd, "max-price"); err != nil {
		return filter, err
	}
	filter.Product, _ = flags.GetString("product")
	if flags.Changed("limit") {
		limit, _ := flags.GetInt("limit")
		filter.Limit = &limit
	}
	return filter, nil
}

func newInvoiceByPersonCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "by-person <ico>",
		Short: "List the sales (or purchases) of the person with the given IČO",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := accounting.Sales
			if purchases, _ := cmd.Flags().GetBool("purchases"); purchases {
				dir = accounting.Purchases
			}
			c, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			invoices, err := c.Accounting().Invoices.ByCounterparty(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			return printJSON(cmd, invoices)
		},
	}
	cmd.Flags().Bool("purchases", false, "List invoices where the person is the buyer")
	return cmd
}

// newInvoiceSaveCommand creates an invoice, or updates it when an id is given.
func newInvoiceSaveCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [id]",
		Short: "Create an invoice, or update the invoice with the given id",
		Example: `  invoicing invoices save --number 2024001 --product Hosting --price 1200 --vat 21 --seller 1 --buyer 4 \
    --issued 2024-01-15 --due 2024-01-29`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			invoices := c.Accounting().Invoices

			var (
				id    *normalize.ID
				input normalize.InvoiceInput
			)
			if len(args) == 1 {
				parsed, err := parseID(args[0])
				if err != nil {
					return err
				}
				current, err := invoices.Detail(cmd.Context(), parsed)
				if err != nil {
					return err
				}
				id = &parsed
				input = normalize.InputFromInvoice(*current)
			}

			if err := applyInvoiceFlags(cmd, &input); err != nil {
				return err
			}

			saved, err := invoices.Save(cmd.Context(), id, input)
			if err != nil {
				return err
			}
			return printJSON(cmd, saved)
		},
	}

	flags := cmd.Flags()
	flags.String("number", "", "Invoice number")
	flags.String("issued", "", "Issue date (YYYY-MM-DD)")
	flags.String("due", "", "Due date (YYYY-MM-DD)")
	flags.String("product", "", "Product")
	flags.String("price", "", "Price")
	flags.String("vat", "", "VAT")
	flags.String("note", "", "Note")
	flags.String("seller", "", "Seller person id")
	flags.String("buyer", "", "Buyer person id")
	return cmd
}

func applyInvoiceFlags(cmd *cobra.Command, in *normalize.InvoiceInput) error {
	flags := cmd.Flags()
	set := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	set("number", &in.InvoiceNumber)
	set("issued", &in.Issued)
	set("due", &in.DueDate)
	set("product", &in.Product)
	set("note", &in.Note)

	for name, dst := range map[string]*decimal.Decimal{"price": &in.Price, "vat": &in.VAT} {
		d, err := decimalFlag(cmd, name)
		if err != nil {
			return err
		}
		if d != nil {
			*dst = *d
		}
	}

	for name, dst := range map[string]**normalize.ID{"seller": &in.SellerID, "buyer": &in.BuyerID} {
		id, err := idFlag(cmd, name)
		if err != nil {
			return err
		}
		if id != nil {
			*dst = id
		}
	}
	return nil
}

func idFlag(cmd *cobra.Command, name string) (*normalize.ID, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	raw, _ := cmd.Flags().GetString(name)
	id, err := parseID(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &id, nil
}

func decimalFlag(cmd *cobra.Command, name string) (*decimal.Decimal, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	raw, _ := cmd.Flags().GetString(name)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: invalid amount %q", name, raw)
	}
	return &d, nil
}
