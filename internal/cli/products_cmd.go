// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/invtui/internal/dashboard"
	"github.com/jeranaias/invtui/internal/logging"
	"github.com/jeranaias/invtui/internal/model"
	"github.com/jeranaias/invtui/internal/util"
)

func newProductsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"inventory"},
		Short:   "List and add inventory products",
	}
	cmd.AddCommand(newProductsListCmd(opts), newProductsAddCmd(opts))
	return cmd
}

func newProductsListCmd(opts *rootOptions) *cobra.Command {
	var (
		jsonOut bool
		search  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered by name or category",
		Example: `  invtui products list
  invtui products list --search phones --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(logging.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, jsonOut, "products list", func() (interface{}, error) {
				inv := dashboard.NewInventoryController(rt.apis().Details, rt.log)
				if err := inv.Load(cmd.Context()); err != nil {
					return nil, fmt.Errorf("Error loading products: %w", err)
				}
				shown, sum := inv.Filter(search)
				if !jsonOut {
					printProducts(out, shown, sum)
				}
				return ProductsData{
					Products: shown,
					Shown:    sum.Shown,
					Total:    sum.Total,
					Units:    sum.Units,
					LowStock: sum.LowStock,
					Value:    sum.Value,
				}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive match on name or category")
	return cmd
}

func printProducts(w io.Writer, products []model.Product, sum dashboard.Summary) {
	fmt.Fprintln(w, RenderConditional(TitleStyle, "Inventory"))
	fmt.Fprintf(w, "%s  %d units  %d low stock  $%.2f\n\n", sum.Showing(), sum.Units, sum.LowStock, sum.Value)
	if len(products) == 0 {
		fmt.Fprintln(w, RenderConditional(DimStyle, "No products match."))
		return
	}

	nameW := fitColumn(62, 12, 32)
	fmt.Fprintln(w, RenderConditional(SectionStyle,
		util.PadRight("NAME", nameW)+"  "+util.PadRight("CATEGORY", 14)+"  "+util.PadRight("STOCK", 6)+"  "+
			util.PadRight("LEVEL", 7)+"  "+util.PadRight("PRICE", 10)+"  UPDATED"))
	fmt.Fprintln(w, RenderSeparator(nameW+60))
	for _, p := range products {
		level := util.PadRight(p.StockStatus().Label(), 7)
		if ColorsEnabled() {
			level = RenderStock(p) + strings.Repeat(" ", max(0, 7-util.StringWidth(p.StockStatus().Label())))
		}
		fmt.Fprintf(w, "%s  %s  %s  %s  %s  %s\n",
			util.PadRight(util.TruncateWidth(p.Name, nameW), nameW),
			util.PadRight(util.TruncateWidth(p.Category, 14), 14),
			util.PadRight(strconv.Itoa(p.Stock), 6),
			level,
			util.PadRight(p.PriceDisplay(), 10),
			p.LastUpdated(),
		)
	}
}

func newProductsAddCmd(opts *rootOptions) *cobra.Command {
	var jsonOut bool
	form := make(map[string]*string, len(model.ProductFields))

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a product",
		Example: `  invtui products add --name "Galaxy S24" --category Smartphones \
    --description "128 GB" --stock 20 --stockMinimum 5 --price 899.50 --image s24.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string, len(form))
			for field, v := range form {
				values[field] = *v
			}
			in, err := model.ParseProductInput(values)
			if err != nil {
				return err
			}

			rt, err := opts.load(logging.ModeCLI)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, jsonOut, "products add", func() (interface{}, error) {
				inv := dashboard.NewInventoryController(rt.apis().Details, rt.log)
				if err := inv.Create(cmd.Context(), in); err != nil {
					return nil, err
				}
				if !jsonOut {
					fmt.Fprintf(out, "%s Created %s (%d products)\n",
						RenderConditional(SuccessStyle, "[OK]"), in.Name, len(inv.Products()))
				}
				return ProductCreatedData{Product: in}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	for _, field := range model.ProductFields {
		form[field] = cmd.Flags().String(field, "", "product "+field)
	}
	return cmd
}
