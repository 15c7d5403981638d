package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/petrijr/raven"
	"github.com/petrijr/raven/pkg/api"
)

// deliveryWaiter is an observer that reports the outcome of the first
// delivered or failed event.
type deliveryWaiter struct {
	api.NoopObserver
	done chan error
}

func newDeliveryWaiter() *deliveryWaiter {
	return &deliveryWaiter{done: make(chan error, 1)}
}

func (d *deliveryWaiter) OnEventSent(ctx context.Context, ev *api.Event, _ time.Duration) {
	d.report(nil)
}

func (d *deliveryWaiter) OnEventFailed(ctx context.Context, ev *api.Event, err error, _ time.Duration) {
	d.report(err)
}

func (d *deliveryWaiter) report(err error) {
	select {
	case d.done <- err:
	default:
	}
}

func (d *deliveryWaiter) wait(ctx context.Context) error {
	select {
	case err := <-d.done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("no delivery outcome: %w", ctx.Err())
	}
}

type sendResult struct {
	EventID string `json:"event_id" yaml:"event_id"`
	Level   string `json:"level" yaml:"level"`
	Logger  string `json:"logger" yaml:"logger"`
	Message string `json:"message" yaml:"message"`
	Status  string `json:"status" yaml:"status"`
}

// newClient builds a client from the current config with a waiter attached.
func (a *app) newClient(waiter *deliveryWaiter) (*raven.Client, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	logger, err := a.logger(cfg)
	if err != nil {
		return nil, err
	}
	return raven.NewFromConfig(cfg,
		raven.WithLogger(logger),
		raven.WithObserver(api.NewCompositeObserver(api.NewLoggingObserver(logger), waiter)),
	)
}

func newSendCommand(a *app) *cobra.Command {
	var (
		level   string
		logger  string
		culprit string
		tags    map[string]string
		wait    time.Duration
	)

	c := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send a single event and wait for the outcome",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, ok := api.ParseLevel(level)
			if !ok {
				return fmt.Errorf("unknown level %q", level)
			}

			waiter := newDeliveryWaiter()
			client, err := a.newClient(waiter)
			if err != nil {
				return err
			}

			opts := client.Settings().EventOptions()
			opts.Culprit = culprit
			opts.Fingerprint = api.DefaultFingerprint(logger, lvl, culprit)
			ev := api.NewEvent(logger, lvl, strings.Join(args, " "), opts)
			for k, v := range tags {
				ev.PushTag(k, v)
			}
			client.LogEvent(ev)

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			sendErr := waiter.wait(ctx)

			res := sendResult{
				EventID: ev.EventID,
				Level:   string(ev.Level),
				Logger:  ev.Logger,
				Message: ev.Message,
				Status:  "sent",
			}
			if sendErr != nil {
				res.Status = "failed"
			}
			if err := a.render(res, func(t *tablewriter.Table) error {
				t.Header("Field", "Value")
				return appendRows(t, [][]string{
					{"Event ID", res.EventID},
					{"Level", res.Level},
					{"Logger", res.Logger},
					{"Message", res.Message},
					{"Status", res.Status},
				})
			}); err != nil {
				return err
			}
			return sendErr
		},
	}

	f := c.Flags()
	f.StringVarP(&level, "level", "l", string(api.LevelError), "event level: fatal, error, warning, info, debug")
	f.StringVar(&logger, "logger", "ravenctl", "logger name")
	f.StringVar(&culprit, "culprit", "", "culprit, usually \"file: line\"")
	f.StringToStringVarP(&tags, "tag", "t", nil, "tag as key=value (repeatable)")
	f.DurationVar(&wait, "wait", 10*time.Second, "how long to wait for the delivery outcome")
	return c
}
