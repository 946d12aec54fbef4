package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"grocery-storefront/internal/cartstore"
	"grocery-storefront/internal/domain"

	"github.com/spf13/cobra"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show or change the current cart",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current cart",
	Args:  cobra.NoArgs,
	RunE:  runCartShow,
}

var cartAddCmd = &cobra.Command{
	Use:   "add PRODUCT_ID QUANTITY",
	Short: "Add a product to the cart",
	Args:  cobra.ExactArgs(2),
	RunE:  runCartAdd,
}

var cartSetCmd = &cobra.Command{
	Use:   "set LINE_ID QUANTITY",
	Short: "Set the quantity of a cart line",
	Args:  cobra.ExactArgs(2),
	RunE:  runCartSet,
}

var cartIncCmd = &cobra.Command{
	Use:   "inc LINE_ID",
	Short: "Increase a line's quantity by one",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartStep(+1),
}

var cartDecCmd = &cobra.Command{
	Use:   "dec LINE_ID",
	Short: "Decrease a line's quantity by one, stopping at 1",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartStep(-1),
}

var cartRmCmd = &cobra.Command{
	Use:     "rm LINE_ID",
	Aliases: []string{"remove"},
	Short:   "Remove a line from the cart",
	Args:    cobra.ExactArgs(1),
	RunE:    runCartRemove,
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every line from the cart",
	Args:  cobra.NoArgs,
	RunE:  runCartClear,
}

func init() {
	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartSetCmd, cartIncCmd, cartDecCmd, cartRmCmd, cartClearCmd)
}

func runCartShow(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store *cartstore.Store) error {
		_, err := store.RefreshCart(ctx)
		return err
	})
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	productID, err := parseID(args[0], "product id")
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, store *cartstore.Store) error {
		_, err := store.AddToCart(ctx, domain.Product{ID: productID}, qty)
		return err
	})
}

func runCartSet(cmd *cobra.Command, args []string) error {
	lineID, err := parseID(args[0], "line id")
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, store *cartstore.Store) error {
		_, err := store.UpdateCartItem(ctx, lineID, qty)
		return err
	})
}

func runCartStep(delta int) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		lineID, err := parseID(args[0], "line id")
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, store *cartstore.Store) error {
			// The stepper works from the current snapshot.
			if _, err := store.RefreshCart(ctx); err != nil {
				return err
			}
			var err error
			if delta > 0 {
				_, err = store.IncrementItem(ctx, lineID)
			} else {
				_, err = store.DecrementItem(ctx, lineID)
			}
			return err
		})
	}
}

func runCartRemove(cmd *cobra.Command, args []string) error {
	lineID, err := parseID(args[0], "line id")
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, store *cartstore.Store) error {
		_, err := store.RemoveFromCart(ctx, lineID)
		return err
	})
}

func runCartClear(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store *cartstore.Store) error {
		_, err := store.ClearCart(ctx)
		return err
	})
}

// withStore runs op against a fresh store and prints the resulting cart. On
// failure the store's banner message is returned as the error.
func withStore(cmd *cobra.Command, op func(context.Context, *cartstore.Store) error) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := op(ctx, store); err != nil {
		if msg := store.State().Error; msg != "" {
			return errors.New(msg)
		}
		return err
	}
	printCart(cmd.OutOrStdout(), store.State().Cart, store.CartSummary())
	return nil
}

func printCart(out io.Writer, cart *domain.Cart, summary domain.CartSummary) {
	if cart == nil || len(cart.Items) == 0 {
		fmt.Fprintln(out, "Cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tUNIT\tQTY")
	for _, l := range cart.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", l.ID, l.Product.Name, l.Product.Unit, l.Quantity)
	}
	tw.Flush()
	fmt.Fprintf(out, "%d products, %d items\n", summary.TotalItems, summary.TotalQuantity)
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}
	return id, nil
}

func parseQuantity(raw string) (int, error) {
	q, err := strconv.Atoi(raw)
	if err != nil || q < 1 {
		return 0, fmt.Errorf("quantity must be a whole number of at least 1, got %q", raw)
	}
	return q, nil
}
