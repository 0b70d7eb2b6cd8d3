package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
)

func init() { //nolint: gochecknoinits
	permissionsCmd.Flags().BoolVar(&permissionsJSON, "json", false, "print as JSON")

	rootCmd.AddCommand(permissionsCmd)
}

var (
	permissionsJSON bool

	permissionsCmd = &cobra.Command{
		Use:   "permissions",
		Short: "Print the permission catalog grouped by category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printCatalog(cmd.OutOrStdout(), permissionsJSON)
		},
	}
)

func printCatalog(w io.Writer, asJSON bool) error {
	defs := auth.Catalog()

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(struct { //nolint:wrapcheck
			Version     int                  `json:"version"`
			Permissions []auth.PermissionDef `json:"permissions"`
		}{auth.CatalogVersion, defs})
	}

	if _, err := fmt.Fprintf(w, "permission catalog version %d\n", auth.CatalogVersion); err != nil {
		return err //nolint:wrapcheck
	}

	category := ""

	for _, d := range defs {
		if c := auth.Category(d.Name); c != category {
			category = c
			if _, err := fmt.Fprintf(w, "\n%s\n", category); err != nil {
				return err //nolint:wrapcheck
			}
		}

		if _, err := fmt.Fprintf(w, "  %-28s %s\n", d.Name, d.Description); err != nil {
			return err //nolint:wrapcheck
		}
	}

	return nil
}
