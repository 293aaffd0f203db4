package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
)

func newPortsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports, Zigbee coordinators first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serialport.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "No serial ports found.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PORT\tUSB ID\tADAPTER")
			for _, p := range ports {
				id := ""
				if p.USB {
					id = p.VID + ":" + p.PID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, id, p.Adapter)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nSuggested: %s\n", serialport.Suggest(ports, c.settings.SerialPort))
			return nil
		},
	}
}
