package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stockroom/domain"
	"stockroom/sheet"
)

// warehouseOrDefault returns the --warehouse flag, or the logged-in user's
// warehouse when it was not given.
func warehouseOrDefault(cmd *cobra.Command, warehouseID int) (int, error) {
	if cmd.Flags().Changed("warehouse") {
		return warehouseID, nil
	}
	user, err := currentUser()
	if err != nil {
		return 0, fmt.Errorf("--warehouse required: %w", err)
	}
	return user.WarehouseID, nil
}

func init() {
	stockCmd := &cobra.Command{
		Use:   "stock",
		Short: "Change the stock of a product",
	}
	rootCmd.AddCommand(stockCmd)

	// stock set
	var sWarehouse, sQuantity int
	setCmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Set the quantity held at a warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sQuantity < 0 {
				return domain.NewInvalidProductError("quantity", "cannot be negative", sQuantity)
			}
			wid, err := warehouseOrDefault(cmd, sWarehouse)
			if err != nil {
				return err
			}
			p, err := service.UpdateStock(context.Background(), domain.ID(args[0]), wid, sQuantity)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	setCmd.Flags().IntVar(&sWarehouse, "warehouse", 0, "warehouse id (default: yours)")
	setCmd.Flags().IntVar(&sQuantity, "quantity", 0, "new quantity")
	setCmd.MarkFlagRequired("quantity")
	stockCmd.AddCommand(setCmd)

	// stock remove
	var rWarehouse, rAmount int
	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Take an amount out of a warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rAmount < 0 {
				return domain.NewInvalidProductError("amount", "cannot be negative", rAmount)
			}
			wid, err := warehouseOrDefault(cmd, rWarehouse)
			if err != nil {
				return err
			}
			p, err := service.RemoveQuantity(context.Background(), domain.ID(args[0]), wid, rAmount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	removeCmd.Flags().IntVar(&rWarehouse, "warehouse", 0, "warehouse id (default: yours)")
	removeCmd.Flags().IntVar(&rAmount, "amount", 0, "amount to remove")
	removeCmd.MarkFlagRequired("amount")
	stockCmd.AddCommand(removeCmd)

	// stock add
	var aQuantity int
	stockAddCmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add stock at your warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if aQuantity < 0 {
				return domain.NewInvalidProductError("quantity", "cannot be negative", aQuantity)
			}
			user, err := currentUser()
			if err != nil {
				return err
			}
			p, err := service.AddStock(context.Background(), user, domain.ID(args[0]), aQuantity)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	stockAddCmd.Flags().IntVar(&aQuantity, "quantity", 0, "quantity to add")
	stockAddCmd.MarkFlagRequired("quantity")
	stockCmd.AddCommand(stockAddCmd)

	// stock drop
	var dWarehouse int
	dropCmd := &cobra.Command{
		Use:   "drop <id>",
		Short: "Remove a product from a warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wid, err := warehouseOrDefault(cmd, dWarehouse)
			if err != nil {
				return err
			}
			p, err := service.RemoveWarehouse(context.Background(), domain.ID(args[0]), wid)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	dropCmd.Flags().IntVar(&dWarehouse, "warehouse", 0, "warehouse id (default: yours)")
	stockCmd.AddCommand(dropCmd)

	warehouseCmd := &cobra.Command{
		Use:   "warehouse",
		Short: "Warehouses referenced by the catalog",
	}
	rootCmd.AddCommand(warehouseCmd)

	// warehouse list
	var wOutput string
	wListCmd := &cobra.Command{
		Use:   "list",
		Short: "List warehouses",
		RunE: func(cmd *cobra.Command, args []string) error {
			warehouses, err := service.Warehouses(context.Background())
			if err != nil {
				return err
			}
			if wOutput == "json" {
				return printJSON(cmd.OutOrStdout(), warehouses)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCITY")
			for _, w := range warehouses {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", w.ID, w.Name, w.Localisation.City)
			}
			return tw.Flush()
		},
	}
	wListCmd.Flags().StringVar(&wOutput, "output", "", "output format: table|json")
	warehouseCmd.AddCommand(wListCmd)

	// warehouse stock
	wStockCmd := &cobra.Command{
		Use:   "stock <warehouse-id>",
		Short: "What a warehouse holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid warehouse id %q", args[0])
			}
			items, err := service.WarehouseStock(context.Background(), wid)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	warehouseCmd.AddCommand(wStockCmd)

	// warehouse add
	var waID, waQuantity int
	var waName, waCity string
	wAddCmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Stock a product at another warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if waQuantity < 0 {
				return domain.NewInvalidProductError("quantity", "cannot be negative", waQuantity)
			}
			p, err := service.AddWarehouse(context.Background(), domain.ID(args[0]), waID, waName, waCity, waQuantity)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	wAddCmd.Flags().IntVar(&waID, "id", 0, "warehouse id (default: a new one)")
	wAddCmd.Flags().StringVar(&waName, "name", "", "warehouse name")
	wAddCmd.Flags().StringVar(&waCity, "city", "", "warehouse city")
	wAddCmd.Flags().IntVar(&waQuantity, "quantity", 0, "quantity")
	warehouseCmd.AddCommand(wAddCmd)

	// stats
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Catalog statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := service.Statistics(context.Background())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	rootCmd.AddCommand(statsCmd)

	// sheet
	var sheetFile string
	sheetCmd := &cobra.Command{
		Use:   "sheet <id>",
		Short: "Render the printable product sheet as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := service.Product(context.Background(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			if sheetFile == "" {
				return sheet.Render(cmd.OutOrStdout(), p)
			}
			f, err := os.Create(sheetFile)
			if err != nil {
				return err
			}
			if err := sheet.Render(f, p); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	sheetCmd.Flags().StringVar(&sheetFile, "file", "", "output file (default: stdout)")
	rootCmd.AddCommand(sheetCmd)
}
