package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-invoicing-client/normalize"
)

func newPersonsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "persons",
		Aliases: []string{"person"},
		Short:   "List, inspect and edit persons",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all persons",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.get(cmd.Context())
				if err != nil {
					return err
				}
				persons, err := c.Accounting().Persons.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, persons)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one person",
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
				person, err := c.Accounting().Persons.Detail(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd, person)
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search persons by name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.get(cmd.Context())
				if err != nil {
					return err
				}
				persons, err := c.Accounting().Persons.Search(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, persons)
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show revenue per person",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.get(cmd.Context())
				if err != nil {
					return err
				}
				rows, err := c.Accounting().Persons.Statistics(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, rows)
			},
		},
		newPersonSaveCommand(a),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a person",
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
				if err := c.Accounting().Persons.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted person %s\n", id)
				return nil
			},
		},
	)

	return cmd
}

// newPersonSaveCommand creates a person, or updates it when an id is given.
// On update only the flags that were set replace the current values.
func newPersonSaveCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [id]",
		Short: "Create a person, or update the person with the given id",
		Example: `  invoicing persons save --name "Acme s.r.o." --ico 12345678 --country domestic
  invoicing persons save 7 --mail billing@acme.example`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.get(cmd.Context())
			if err != nil {
				return err
			}
			persons := c.Accounting().Persons

			var (
				id    *normalize.ID
				input normalize.PersonInput
			)
			if len(args) == 1 {
				parsed, err := parseID(args[0])
				if err != nil {
					return err
				}
				current, err := persons.Detail(cmd.Context(), parsed)
				if err != nil {
					return err
				}
				id = &parsed
				input = normalize.InputFromPerson(*current)
			}

			if err := applyPersonFlags(cmd, &input); err != nil {
				return err
			}

			saved, err := persons.Save(cmd.Context(), id, input)
			if err != nil {
				return err
			}
			return printJSON(cmd, saved)
		},
	}

	flags := cmd.Flags()
	flags.String("name", "", "Name")
	flags.String("ico", "", "Identification number (IČO)")
	flags.String("dic", "", "Tax number (DIČ)")
	flags.String("account", "", "Account number")
	flags.String("bank-code", "", "Bank code")
	flags.String("iban", "", "IBAN")
	flags.String("phone", "", "Telephone")
	flags.String("mail", "", "Email")
	flags.String("street", "", "Street")
	flags.String("zip", "", "ZIP code")
	flags.String("city", "", "City")
	flags.String("country", "", "Country: domestic or foreign")
	flags.String("note", "", "Note")
	return cmd
}

func applyPersonFlags(cmd *cobra.Command, in *normalize.PersonInput) error {
	flags := cmd.Flags()
	set := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	set("name", &in.Name)
	set("ico", &in.IdentificationNumber)
	set("dic", &in.TaxNumber)
	set("account", &in.AccountNumber)
	set("bank-code", &in.BankCode)
	set("iban", &in.IBAN)
	set("phone", &in.Telephone)
	set("mail", &in.Mail)
	set("street", &in.Street)
	set("zip", &in.Zip)
	set("city", &in.City)
	set("note", &in.Note)

	if flags.Changed("country") {
		raw, _ := flags.GetString("country")
		country := normalize.CountryFrom(strings.ToUpper(raw))
		if country == nil {
			return fmt.Errorf("invalid country %q: use domestic or foreign", raw)
		}
		in.Country = country
	}
	return nil
}
