package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prism/internal/cfg"
	"prism/internal/fixture"
)

var cfgCmd = &cobra.Command{
	Use:   "cfg [flags] <fixture.json>",
	Short: "Dump the control-flow graph of a symbol body",
	Long:  `Lower a symbol body from a compilation fixture and print its basic blocks, branches and exception regions`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCfg,
}

func init() {
	cfgCmd.Flags().String("symbol", "", "symbol whose body to lower (default: first symbol with a body)")
	cfgCmd.Flags().Int("decl", 0, "declaration index for symbols with several bodies")
}

func runCfg(cmd *cobra.Command, args []string) error {
	symbolName, err := cmd.Flags().GetString("symbol")
	if err != nil {
		return fmt.Errorf("failed to get symbol flag: %w", err)
	}
	declIndex, err := cmd.Flags().GetInt("decl")
	if err != nil {
		return fmt.Errorf("failed to get decl flag: %w", err)
	}

	comp, err := fixture.Load(args[0])
	if err != nil {
		return err
	}

	for _, sym := range comp.Symbols {
		if symbolName != "" && sym.Name != symbolName {
			continue
		}
		body := sym.Body(declIndex)
		if body == nil {
			if symbolName != "" {
				return fmt.Errorf("symbol %q has no body at declaration %d", sym.Name, declIndex)
			}
			continue
		}
		g, err := cfg.Build(body)
		if err != nil {
			return fmt.Errorf("failed to build flow graph for %q: %w", sym.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", sym.Name)
		cfg.Dump(cmd.OutOrStdout(), g)
		return nil
	}
	if symbolName != "" {
		return fmt.Errorf("symbol %q not found in %s", symbolName, args[0])
	}
	return fmt.Errorf("no symbol with a body in %s", args[0])
}
