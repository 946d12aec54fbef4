package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/search"

	"github.com/spf13/cobra"
)

var (
	searchCategory string
	searchInStock  bool
	searchPage     int
	searchPageSize int
)

var searchCmd = &cobra.Command{
	Use:   "search [TERM...]",
	Short: "List products, optionally matching a search term",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Category slug filter")
	searchCmd.Flags().BoolVar(&searchInStock, "in-stock", false, "Only products in stock")
	searchCmd.Flags().IntVar(&searchPage, "page", 1, "Result page")
	searchCmd.Flags().IntVar(&searchPageSize, "page-size", 20, "Results per page")
}

func runSearch(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	filters := search.Filters{Category: searchCategory, Page: searchPage}
	if cmd.Flags().Changed("in-stock") {
		inStock := searchInStock
		filters.InStock = &inStock
	}
	ctrl := search.NewController(client, nil,
		search.WithLogger(logger.Named("search")),
		search.WithFetchTimeout(timeout),
		search.WithPageSize(searchPageSize),
		search.WithFilters(filters),
	)
	defer ctrl.Close()

	var res search.Result
	term := strings.Join(args, " ")
	if strings.TrimSpace(term) == "" {
		res = ctrl.Refresh(ctx)
	} else {
		res = ctrl.AcceptSuggestion(ctx, term)
		if searchPage > 1 {
			res = ctrl.SetPage(ctx, searchPage)
		}
	}
	if res.Err != nil {
		return errors.New(domain.UserMessage(res.Err))
	}
	printProducts(cmd.OutOrStdout(), res)
	return nil
}

func printProducts(out io.Writer, res search.Result) {
	if res.Page == nil || len(res.Page.Results) == 0 {
		fmt.Fprintln(out, "No products found.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUNIT\tCATEGORY\tSTOCK")
	for _, p := range res.Page.Results {
		category := ""
		if p.Category != nil {
			category = p.Category.Name
		}
		stock := strconv.Itoa(p.StockQuantity)
		if !p.InStock() {
			stock = "out"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Unit, category, stock)
	}
	tw.Flush()
	fmt.Fprintf(out, "page %d, %d of %d results\n", res.Query.Page, len(res.Page.Results), res.Page.Count)
}
