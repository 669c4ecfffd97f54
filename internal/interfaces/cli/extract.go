package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/plotinfo/internal/application/extractview"
	"github.com/turtacn/plotinfo/internal/application/plotinfo"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/domain/oereb"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// ExtractSummary lists the sections and themes of an extract.
type ExtractSummary struct {
	EGRID    string                           `json:"egrid"`
	Sections []extractview.SectionSummary     `json:"sections"`
	Themes   map[extractview.Section][]string `json:"themes"`
	General  extractview.GeneralInfo          `json:"general_information"`
}

func (s ExtractSummary) TableHeaders() []string {
	return []string{"Section", "Count", "Themes"}
}

func (s ExtractSummary) TableRows() [][]string {
	rows := make([][]string, 0, len(s.Sections))
	for _, sec := range s.Sections {
		count := ""
		if sec.Name != extractview.SectionGeneral {
			count = strconv.Itoa(sec.Count)
		}
		name := string(sec.Name)
		if sec.Name == extractview.SectionConcerned {
			name = color.RedString(name)
		}
		rows = append(rows, []string{name, count, truncateString(strings.Join(s.Themes[sec.Name], ", "), 70)})
	}
	return rows
}

// ThemeDetail is the aggregated view of one concerned theme and the overlay
// layers it adds to the map.
type ThemeDetail struct {
	Theme  oereb.ThemeView `json:"theme"`
	Layers []mapview.Layer `json:"layers"`
}

func (d ThemeDetail) TableHeaders() []string {
	return []string{"Subtheme", "Type", "Share", "Percent"}
}

func (d ThemeDetail) TableRows() [][]string {
	var rows [][]string
	for _, st := range d.Theme.Subthemes {
		name := st.Name
		if name == "" {
			name = d.Theme.Title
		}
		if st.Placeholder {
			rows = append(rows, []string{name, color.YellowString("no data"), "-", "-"})
			continue
		}
		for _, sym := range st.Symbols {
			rows = append(rows, []string{
				truncateString(name, 30),
				truncateString(sym.Information, 50),
				sym.ShareCell(),
				sym.PercentCell(),
			})
		}
	}
	return rows
}

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	var (
		theme   string
		session string
	)
	cmd := &cobra.Command{
		Use:   "extract <egrid>",
		Short: "Load and summarize the restriction extract of a plot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := operationContext(cmd, cc)
			defer cancel()

			egrid := args[0]
			run := newToolRun(cmd, cc, session)
			if err := run.dispatch(ctx, plotinfo.Activated{}, plotinfo.IdentifierRequested{EGRID: egrid}); err != nil {
				return err
			}

			view, err := extractOf(run.Session.Snapshot())
			if err != nil {
				return err
			}

			if theme == "" {
				summary := ExtractSummary{
					EGRID:    egrid,
					Sections: view.Sections(),
					Themes:   make(map[extractview.Section][]string),
					General:  view.GeneralInformation(),
				}
				for _, s := range extractview.Sections {
					if titles := view.OtherThemes(s); len(titles) > 0 {
						summary.Themes[s] = titles
					}
				}
				return PrintResult(cmd, summary)
			}

			if err := run.dispatch(ctx, plotinfo.ExtractThemeToggled{Code: theme}); err != nil {
				return err
			}
			view, err = extractOf(run.Session.Snapshot())
			if err != nil {
				return err
			}
			detail := ThemeDetail{Theme: view.Theme(theme), Layers: view.Layers()}
			if detail.Theme.IsEmpty() {
				return errors.NotFound("theme not concerned").WithDetail(theme)
			}
			if cc.Verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "session %s: %d overlay layers\n", run.ID, len(detail.Layers))
			}
			return PrintResult(cmd, detail)
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "expand a concerned theme by code")
	cmd.Flags().StringVar(&session, "session", "", "session id used for published map effects (default: random)")
	return cmd
}

// extractOf returns the extract view of a settled session state.
func extractOf(s plotinfo.State) (extractview.View, error) {
	r := s.Result
	switch {
	case r == nil:
		return extractview.View{}, errors.NotFound("no plot found")
	case r.Failed:
		return extractview.View{}, errors.New(errors.ErrCodeQueryFailed, r.FailureReason)
	case r.ExtractError != "":
		return extractview.View{}, errors.New(errors.ErrCodeMalformedDocument, r.ExtractError)
	case r.Extract == nil:
		return extractview.View{}, errors.NotFound("query result is not an extract").WithDetail(r.QueryKey)
	}
	return *r.Extract, nil
}
