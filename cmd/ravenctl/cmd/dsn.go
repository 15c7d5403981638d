package cmd

import (
	"errors"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/petrijr/raven/pkg/api"
)

type dsnInfo struct {
	Scheme     string `json:"scheme" yaml:"scheme"`
	Key        string `json:"key" yaml:"key"`
	Secret     string `json:"secret" yaml:"secret"`
	Host       string `json:"host" yaml:"host"`
	ProjectID  string `json:"project_id" yaml:"project_id"`
	StoreURL   string `json:"store_url" yaml:"store_url"`
	AuthHeader string `json:"auth_header,omitempty" yaml:"auth_header,omitempty"`
}

func newDSNCommand(a *app) *cobra.Command {
	var (
		showSecret bool
		showHeader bool
	)

	c := &cobra.Command{
		Use:   "dsn [DSN]",
		Short: "Parse a DSN and show the resulting credential",
		Long:  `Parses the DSN given as argument, or the configured one, and prints its parts, the store endpoint and optionally the X-Sentry-Auth header. Output defaults to yaml.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := a.v.GetString("dsn")
			if len(args) == 1 {
				raw = args[0]
			}
			if raw == "" {
				return errors.New("no DSN given")
			}

			cred, err := api.ParseDSN(raw)
			if err != nil {
				return err
			}

			info := dsnInfo{
				Scheme:    cred.Scheme,
				Key:       cred.Key,
				Secret:    "********",
				Host:      cred.Host,
				ProjectID: cred.ProjectID,
				StoreURL:  cred.StoreURL(),
			}
			if showSecret {
				info.Secret = cred.Secret
			}
			if showHeader {
				info.AuthHeader = cred.AuthHeader(time.Now())
			}

			if !cmd.Flags().Changed("output") && !cmd.Root().PersistentFlags().Changed("output") {
				a.output = "yaml"
			}
			return a.render(info, func(t *tablewriter.Table) error {
				t.Header("Field", "Value")
				return appendRows(t, [][]string{
					{"Scheme", info.Scheme},
					{"Key", info.Key},
					{"Secret", info.Secret},
					{"Host", info.Host},
					{"Project", info.ProjectID},
					{"Store URL", info.StoreURL},
				})
			})
		},
	}
	c.Flags().BoolVar(&showSecret, "show-secret", false, "print the secret instead of a mask")
	c.Flags().BoolVar(&showHeader, "auth-header", false, "include the X-Sentry-Auth header value")
	return c
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
