package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/service"
)

// settingsCmd reads and writes the editable site content.
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change site settings",
	Long: `Read or change the key/value site settings shown on public pages.

Available subcommands:
  get - Print one setting, or all of them
  set - Change a setting`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, or every setting",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long:  "Change a setting. Known keys:\n  " + strings.Join(model.SettingKeys, "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewSettingsService(db.Settings(), newLogger(cmd.ErrOrStderr()))
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		value, err := svc.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
		return nil
	}

	all, err := svc.All(cmd.Context())
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s=%s\n", k, all[k])
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewSettingsService(db.Settings(), newLogger(cmd.ErrOrStderr()))
	if err := svc.Set(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
	return nil
}
