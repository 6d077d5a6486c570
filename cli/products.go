package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"stockroom/app"
	"stockroom/catalog"
	"stockroom/domain"
)

func init() {
	// list
	var spec domain.FilterSortSpec
	var lOutput string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := service.Products(context.Background(), spec)
			if err != nil {
				return err
			}
			if lOutput == "json" {
				return printJSON(cmd.OutOrStdout(), out)
			}
			return printProducts(cmd.OutOrStdout(), out)
		},
	}
	listCmd.Flags().StringVar(&spec.SearchQuery, "search", "", "match name, type or supplier")
	listCmd.Flags().StringVar(&spec.SortBy, "sort-by", "", "sort field: name|quantity|stock")
	listCmd.Flags().StringVar(&spec.OrderBy, "order", domain.OrderAsc, "sort order: asc|desc")
	listCmd.Flags().StringVar(&spec.City, "city", "", "only products stocked in this city")
	listCmd.Flags().BoolVar(&spec.InStockOnly, "in-stock", false, "only products with stock")
	listCmd.Flags().StringVar(&spec.Locale, "locale", "", "locale used to sort names, e.g. fr")
	listCmd.Flags().StringVar(&lOutput, "output", "", "output format: table|json")
	rootCmd.AddCommand(listCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get product by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := service.Product(context.Background(), domain.ID(args[0]))
			if err != nil {
				if domain.IsProductNotFoundError(err) {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
					return nil
				}
				return err
			}
			if last, ok := p.LastEditor(); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "last edited by warehouseman %d at %s\n", last.EditorID, last.At.Format(time.RFC3339))
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	rootCmd.AddCommand(getCmd)

	// scan
	scanCmd := &cobra.Command{
		Use:   "scan <barcode>",
		Short: "Look a product up by barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok, err := service.ProductByBarcode(context.Background(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "no product with barcode %s, add it with `stockroom add --barcode %s`\n", args[0], args[0])
				return nil
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	rootCmd.AddCommand(scanCmd)

	// add
	var in app.NewProductInput
	var aPrice string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product at your warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			if in.Name == "" && in.Barcode == "" {
				return fmt.Errorf("--name or --barcode required")
			}
			if in.Quantity < 0 {
				return domain.NewInvalidProductError("quantity", "cannot be negative", in.Quantity)
			}
			input := in
			if input.Price, err = parsePrice(aPrice); err != nil {
				return err
			}
			p, err := service.AddProduct(context.Background(), user, input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	addCmd.Flags().StringVar(&in.Name, "name", "", "name")
	addCmd.Flags().StringVar(&in.Type, "type", "", "product type")
	addCmd.Flags().StringVar(&in.Barcode, "barcode", "", "barcode")
	addCmd.Flags().StringVar(&aPrice, "price", "0", "price")
	addCmd.Flags().StringVar(&in.Supplier, "supplier", "", "supplier")
	addCmd.Flags().StringVar(&in.Image, "image", "", "image URL")
	addCmd.Flags().IntVar(&in.Quantity, "quantity", 0, "quantity at your warehouse")
	rootCmd.AddCommand(addCmd)

	// edit
	var eName, eType, eBarcode, ePrice, eSupplier, eImage string
	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit product details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}

			var d domain.ProductDetails
			if cmd.Flags().Changed("name") {
				d.Name = &eName
			}
			if cmd.Flags().Changed("type") {
				d.Type = &eType
			}
			if cmd.Flags().Changed("barcode") {
				d.Barcode = &eBarcode
			}
			if cmd.Flags().Changed("price") {
				price, err := parsePrice(ePrice)
				if err != nil {
					return err
				}
				d.Price = &price
			}
			if cmd.Flags().Changed("supplier") {
				d.Supplier = &eSupplier
			}
			if cmd.Flags().Changed("image") {
				d.Image = &eImage
			}

			p, err := service.EditDetails(context.Background(), user, domain.ID(args[0]), d)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	editCmd.Flags().StringVar(&eName, "name", "", "name")
	editCmd.Flags().StringVar(&eType, "type", "", "product type")
	editCmd.Flags().StringVar(&eBarcode, "barcode", "", "barcode")
	editCmd.Flags().StringVar(&ePrice, "price", "", "price")
	editCmd.Flags().StringVar(&eSupplier, "supplier", "", "supplier")
	editCmd.Flags().StringVar(&eImage, "image", "", "image URL")
	rootCmd.AddCommand(editCmd)

	// delete
	var force bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete %s? (y/N): ", args[0])
				resp, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if resp = strings.TrimSpace(resp); resp != "y" && resp != "Y" {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}
			if err := service.Delete(context.Background(), domain.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
	deleteCmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	rootCmd.AddCommand(deleteCmd)
}

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, domain.NewInvalidProductError("price", "not a number", s)
	}
	return price, nil
}

func printProducts(w io.Writer, products []domain.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBARCODE\tPRICE\tQTY\tWAREHOUSES")
	for _, p := range products {
		names := make([]string, 0, len(p.Stocks))
		for _, s := range p.Stocks {
			names = append(names, fmt.Sprintf("%s:%d", s.Name, s.Quantity))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID, p.Name, p.Barcode, p.Price.StringFixed(2), catalog.TotalQuantity(p), strings.Join(names, ", "))
	}
	return tw.Flush()
}
