package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/turtacn/plotinfo/internal/application/plotinfo"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
)

// notices collects session notifications and echoes them to stderr.
type notices struct {
	mu     sync.Mutex
	cmd    *cobra.Command
	errors []string
}

func (n *notices) Notify(_ context.Context, level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if level == plotinfo.LevelError {
		n.errors = append(n.errors, message)
		fmt.Fprintln(n.cmd.ErrOrStderr(), color.RedString(message))
		return
	}
	fmt.Fprintln(n.cmd.ErrOrStderr(), message)
}

func (n *notices) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.errors) == 0 {
		return nil
	}
	return fmt.Errorf("%s", n.errors[len(n.errors)-1])
}

// toolRun is a synchronous session whose map effects land in a Recorder and,
// when Kafka is enabled, on the effect topic under ID.
type toolRun struct {
	ID       string
	Session  *plotinfo.Session
	Recorder *mapview.Recorder
	Notices  *notices
}

func newToolRun(cmd *cobra.Command, cc *CLIContext, id string, opts ...plotinfo.SessionOption) *toolRun {
	if id == "" {
		id = uuid.NewString()
	}
	run := &toolRun{ID: id, Recorder: mapview.NewRecorder(), Notices: &notices{cmd: cmd}}
	opts = append([]plotinfo.SessionOption{
		plotinfo.WithSynchronousIO(),
		plotinfo.WithNotifier(run.Notices),
	}, opts...)
	run.Session = cc.App.NewSession(cc.App.Map(id, run.Recorder), opts...)
	return run
}

// dispatch applies events in order and stops at the first notified error.
func (r *toolRun) dispatch(ctx context.Context, events ...plotinfo.Event) error {
	for _, ev := range events {
		if err := r.Session.Dispatch(ctx, ev); err != nil {
			return err
		}
		if err := r.Notices.Err(); err != nil {
			return err
		}
	}
	return nil
}
