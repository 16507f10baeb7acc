package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/owners-club/internal/registry"
	"github.com/sakif/owners-club/internal/service"
)

var (
	listStatus string
	listSearch string
)

// membersCmd inspects the registry.
var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Inspect registered members",
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List members, newest first",
	Long: `List members with the same filters as the admin console.

Examples:
  clubctl members list --status private
  clubctl members list --search sam`,
	Args: cobra.NoArgs,
	RunE: runMembersList,
}

func init() {
	membersListCmd.Flags().StringVar(&listStatus, "status", "all", "all, public, private or featured")
	membersListCmd.Flags().StringVar(&listSearch, "search", "", "Match display name, Instagram handle or country")
}

func runMembersList(cmd *cobra.Command, _ []string) error {
	status, ok := registry.ParseStatus(listStatus)
	if !ok {
		return fmt.Errorf("unknown status %q", listStatus)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewOwnerService(db.Owners(), newLogger(cmd.ErrOrStderr()))
	view, err := svc.AdminView(cmd.Context(),
		registry.Criteria{Status: status, Search: listSearch},
		registry.ViewContext{Viewer: registry.Viewer{IsAdmin: true}},
		nil,
	)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME\tCAR\tLOCATION\tPUBLIC\tFEATURED\tBADGES")
	for _, o := range view.Records {
		fmt.Fprintf(tw, "%s\t%s\t%d %s %s\t%s\t%t\t%t\t%d\n",
			o.Username, o.DisplayName, o.Year, o.Colour, o.Transmission,
			registry.Location(o), o.PublicProfile, o.Featured, len(o.Badges))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d members\n", len(view.Records), view.Total)
	return nil
}
