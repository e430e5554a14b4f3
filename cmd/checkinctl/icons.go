package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// iconFile is the seed-icons input:
//
//	icons:
//	  opening: "🎉"
//	  lunch: "🍕"
type iconFile struct {
	Icons map[string]string `yaml:"icons"`
}

func seedIconsCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "seed-icons [file.yaml]",
		Short: "Load the event -> icon map into extra/icons",
		Long: `Load the event icon map from a YAML file.

Only events present in the map are accepted for check-in when strict event validation is on.
Without --replace the file is merged over the current map.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var f iconFile
			if err := yaml.Unmarshal(raw, &f); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if len(f.Icons) == 0 {
				return fmt.Errorf("%s: no icons defined", args[0])
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			merged := f.Icons
			if !replace {
				current, err := a.Icons.All(ctx)
				if err != nil {
					return err
				}
				merged = make(map[string]string, len(current)+len(f.Icons))
				for k, v := range current {
					merged[k] = v
				}
				for k, v := range f.Icons {
					merged[k] = v
				}
			}
			if err := a.Icons.Replace(ctx, merged); err != nil {
				return err
			}

			names := make([]string, 0, len(merged))
			for k := range merged {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, merged[k])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace the whole map instead of merging")
	return cmd
}
