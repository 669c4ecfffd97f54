package cli

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/turtacn/plotinfo/internal/application/plotinfo"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// savedDocument is the outcome of a pdf download.
type savedDocument struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
}

func (d savedDocument) String() string {
	return d.Filename + " -> " + d.Location
}

// recordingSaver remembers what the wrapped saver stored.
type recordingSaver struct {
	plotinfo.DocumentSaver
	mu    sync.Mutex
	saved []savedDocument
}

func (r *recordingSaver) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	loc, err := r.DocumentSaver.Save(ctx, name, contentType, data)
	if err == nil {
		r.mu.Lock()
		r.saved = append(r.saved, savedDocument{Filename: name, Location: loc})
		r.mu.Unlock()
	}
	return loc, err
}

// NewPDFCmd creates the pdf command. It runs a session through lookup and
// the PDF request of the query, so failures surface as the session's
// notifications.
func NewPDFCmd() *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "pdf <egrid> <query-key>",
		Short: "Download the PDF of an info query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			egrid, key := args[0], args[1]
			q, ok := cc.App.MachineConfig().Queries.Get(key)
			if !ok {
				return errors.NotFound("unknown query " + key)
			}
			if !q.HasPDF() {
				return errors.NotFound("query offers no PDF").WithDetail(key)
			}
			if cc.App.Saver == nil {
				return errors.New(errors.ErrCodeServiceUnavailable, "no document store configured")
			}

			ctx, cancel := operationContext(cmd, cc)
			defer cancel()
			saver := &recordingSaver{DocumentSaver: cc.App.Saver}
			run := newToolRun(cmd, cc, session, plotinfo.WithDocumentSaver(saver))
			err = run.dispatch(ctx,
				plotinfo.Activated{},
				plotinfo.IdentifierRequested{EGRID: egrid, QueryKey: key},
				plotinfo.PDFRequested{Key: key},
			)
			if err != nil {
				return err
			}
			if len(saver.saved) == 0 {
				return errors.NotFound("no plot with EGRID " + egrid)
			}
			return PrintResult(cmd, saver.saved[0])
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id used for published map effects (default: random)")
	return cmd
}
