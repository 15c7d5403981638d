package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/petrijr/raven"
)

var errNoPanic = errors.New("panic handler did not run")

type panicResult struct {
	Message  string `json:"message" yaml:"message"`
	Location string `json:"location" yaml:"location"`
	Frames   int    `json:"frames" yaml:"frames"`
	Status   string `json:"status" yaml:"status"`
}

func newPanicCommand(a *app) *cobra.Command {
	var wait time.Duration

	c := &cobra.Command{
		Use:   "panic [MESSAGE]",
		Short: "Panic inside a guarded goroutine and report it as a fatal event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := "ravenctl test panic"
			if len(args) == 1 {
				msg = args[0]
			}

			waiter := newDeliveryWaiter()
			client, err := a.newClient(waiter)
			if err != nil {
				return err
			}

			infos := make(chan *raven.PanicInfo, 1)
			client.RegisterPanicHandler(func(info *raven.PanicInfo) {
				infos <- info
			})
			defer client.UnregisterPanicHandler()

			raven.Go(func() {
				panic(msg)
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			var info *raven.PanicInfo
			select {
			case info = <-infos:
			case <-ctx.Done():
				return errNoPanic
			}
			sendErr := waiter.wait(ctx)

			res := panicResult{
				Message:  info.Message,
				Location: info.Location,
				Frames:   len(info.Frames),
				Status:   "sent",
			}
			if sendErr != nil {
				res.Status = "failed"
			}
			if err := a.render(res, func(t *tablewriter.Table) error {
				t.Header("Field", "Value")
				return appendRows(t, [][]string{
					{"Message", res.Message},
					{"Location", res.Location},
					{"Frames", itoa(res.Frames)},
					{"Status", res.Status},
				})
			}); err != nil {
				return err
			}
			return sendErr
		},
	}
	c.Flags().DurationVar(&wait, "wait", 10*time.Second, "how long to wait for the delivery outcome")
	return c
}
