package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"carshare/internal/app/dto"
	"carshare/internal/domain/pricing"
)

type quoteOptions struct {
	price          string
	start          string
	end            string
	currency       string
	serviceFeeRate float64
	insuranceRate  float64
	insurance      string
	asJSON         bool
}

func newRootCmd(now func() time.Time) *cobra.Command {
	root := &cobra.Command{
		Use:           "quotectl",
		Short:         "Price car rentals offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newQuoteCmd(now))
	return root
}

func newQuoteCmd(now func() time.Time) *cobra.Command {
	var opts quoteOptions
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute the price breakdown of a rental",
		Example: "  quotectl quote --price 50 --start 2025-11-01 --end 2025-11-05\n" +
			"  quotectl quote --price 50 --start 2025-11-01 --end 2025-11-05 --insurance 25 --json",
		Args: cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			return pricing.NewCalculator(pricing.DefaultRates, opts.currency).Validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := pricing.QuoteRequest{
				PricePerDay: opts.price,
				StartDate:   opts.start,
				EndDate:     opts.end,
				Insurance:   opts.insurance,
			}
			if cmd.Flags().Changed("service-fee-rate") {
				req.ServiceFeeRate = &opts.serviceFeeRate
			}
			if cmd.Flags().Changed("insurance-rate") {
				req.InsuranceRate = &opts.insuranceRate
			}
			q, err := pricing.NewCalculator(pricing.DefaultRates, opts.currency).Compute(req, now())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), q)
			}
			return writeTable(cmd.OutOrStdout(), q)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.price, "price", "", "price per day, e.g. 49.99")
	f.StringVar(&opts.start, "start", "", "start date (YYYY-MM-DD or RFC 3339)")
	f.StringVar(&opts.end, "end", "", "end date, exclusive")
	f.StringVar(&opts.currency, "currency", pricing.DefaultCurrency, "ISO 4217 currency code")
	f.Float64Var(&opts.serviceFeeRate, "service-fee-rate", pricing.DefaultRates.ServiceFee.Fraction(), "service fee as a fraction of the subtotal")
	f.Float64Var(&opts.insuranceRate, "insurance-rate", pricing.DefaultRates.Insurance.Fraction(), "insurance as a fraction of the subtotal")
	f.StringVar(&opts.insurance, "insurance", "", "flat insurance amount, replaces --insurance-rate")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func writeJSON(w io.Writer, q pricing.Quote) error {
	out := dto.MapQuote(q, true)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		dto.Quote
		Available *bool `json:"available,omitempty"`
	}{Quote: out})
}

func writeTable(w io.Writer, q pricing.Quote) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Days\t%d\n", q.TotalDays)
	fmt.Fprintf(tw, "Price per day\t%s\n", q.PricePerDay)
	fmt.Fprintf(tw, "Subtotal\t%s\n", q.Subtotal)
	fmt.Fprintf(tw, "Service fee (%s)\t%s\n", q.ServiceFeeRate, q.ServiceFee)
	if q.FlatInsurance {
		fmt.Fprintf(tw, "Insurance (flat)\t%s\n", q.Insurance)
	} else {
		fmt.Fprintf(tw, "Insurance (%s)\t%s\n", q.InsuranceRate, q.Insurance)
	}
	fmt.Fprintf(tw, "Total\t%s\n", q.Total)
	return tw.Flush()
}
