package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/plotinfo/internal/domain/plot"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// PlotList is the result of a plot lookup.
type PlotList struct {
	Plots []plot.Record `json:"plots"`
}

func (l PlotList) TableHeaders() []string {
	return []string{"#", "EGRID", "Label", "Details"}
}

func (l PlotList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Plots))
	for i, p := range l.Plots {
		details := make([]string, 0, len(p.Fields))
		for _, f := range p.Fields {
			details = append(details, f.Key+": "+f.Value)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			color.CyanString(p.EGRID),
			truncateString(p.Label, 40),
			truncateString(strings.Join(details, "; "), 60),
		})
	}
	return rows
}

// NewLookupCmd creates the lookup command with its point and egrid
// subcommands.
func NewLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Find plots by coordinate or EGRID",
	}
	cmd.AddCommand(newLookupPointCmd(), newLookupEGRIDCmd())
	return cmd
}

func newLookupPointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "point <x> <y>",
		Short: "List the plots at a coordinate in the service projection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, errX := strconv.ParseFloat(args[0], 64)
			y, errY := strconv.ParseFloat(args[1], 64)
			if errX != nil || errY != nil {
				return errors.InvalidParam("x and y must be numbers")
			}
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := operationContext(cmd, cc)
			defer cancel()

			plots, err := cc.App.Service.PlotsAtPoint(ctx, x, y)
			if err != nil {
				return err
			}
			if len(plots) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("No plots at %s, %s", args[0], args[1]))
				return nil
			}
			return PrintResult(cmd, PlotList{Plots: plots})
		},
	}
}

func newLookupEGRIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "egrid <egrid>",
		Short: "Show the plot with an EGRID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := operationContext(cmd, cc)
			defer cancel()

			plots, err := cc.App.Service.PlotsByEGRID(ctx, args[0])
			if err != nil {
				return err
			}
			if len(plots) == 0 {
				return errors.NotFound("no plot with EGRID " + args[0])
			}
			return PrintResult(cmd, PlotList{Plots: plots})
		},
	}
}
