package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/plotinfo/pkg/errors"
)

// QueryRow is one info query resolved for a plot.
type QueryRow struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	PDFURL string `json:"pdf_url,omitempty"`
}

// QueryList lists the info queries of a plot.
type QueryList struct {
	EGRID   string     `json:"egrid"`
	Queries []QueryRow `json:"queries"`
}

func (l QueryList) TableHeaders() []string {
	return []string{"Key", "Title", "URL", "PDF"}
}

func (l QueryList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Queries))
	for _, q := range l.Queries {
		rows = append(rows, []string{q.Key, q.Title, q.URL, q.PDFURL})
	}
	return rows
}

// NewQueriesCmd creates the queries command. With a query key it prints the
// raw query response instead of the list.
func NewQueriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queries <egrid> [key]",
		Short: "List the info queries of a plot or fetch one of them",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			mc := cc.App.MachineConfig()
			egrid := args[0]

			if len(args) == 1 {
				list := QueryList{EGRID: egrid}
				for _, q := range mc.Queries.All() {
					list.Queries = append(list.Queries, QueryRow{
						Key:    q.Key,
						Title:  q.Title,
						URL:    q.QueryURL(mc.ServiceURL, egrid),
						PDFURL: q.PDFURL(mc.ServiceURL, egrid),
					})
				}
				return PrintResult(cmd, list)
			}

			q, ok := mc.Queries.Get(args[1])
			if !ok {
				return errors.NotFound("unknown query " + args[1])
			}
			ctx, cancel := operationContext(cmd, cc)
			defer cancel()
			payload, err := cc.App.Service.FetchQuery(ctx, q.QueryURL(mc.ServiceURL, egrid))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(payload.Data)
			return err
		},
	}
}
