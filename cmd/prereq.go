package cmd

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/openswoop/syllabank/pkg/prereq"
)

var (
	completed  []string
	inProgress []string
	dumpTree   bool
	asJSON     bool
)

// prereqCmd represents the prereq command
var prereqCmd = &cobra.Command{
	Use:   "prereq <text>",
	Short: "Parse prerequisite text and optionally check it",
	Long: `Parses a prerequisite description such as
"(CIS 1057 or CIS 1068) and MATH 1041 (min grade C)" into its requirement
tree. With --completed or --in-progress the requirement is also evaluated
against those courses.`,
	Example: `  syllabank prereq "CIS 1057 and MATH 1041" --completed "CIS 1057" --in-progress "MATH 1041"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		tree, err := prereq.ParseDiagnose(text)
		out := cmd.OutOrStdout()
		if err != nil {
			fmt.Fprintf(out, "warning: fell back to listing every course (%v)\n", err)
		}

		switch {
		case asJSON:
			data, err := prereq.MarshalNode(tree)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		case dumpTree:
			spew.Fdump(out, tree)
		default:
			if tree == nil {
				fmt.Fprintln(out, "No requirement")
			} else {
				fmt.Fprintln(out, "Requirement:", prereq.Stringify(tree))
				fmt.Fprintln(out, "Courses:    ", strings.Join(prereq.Flatten(tree), ", "))
			}
		}

		if cmd.Flags().Changed("completed") || cmd.Flags().Changed("in-progress") {
			verdict := "not satisfied"
			if prereq.Check(tree, completed, inProgress) {
				verdict = "satisfied"
			}
			fmt.Fprintln(out, "Status:     ", verdict)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prereqCmd)

	prereqCmd.Flags().StringSliceVar(&completed, "completed", nil, "Completed course codes")
	prereqCmd.Flags().StringSliceVar(&inProgress, "in-progress", nil, "Course codes currently in progress")
	prereqCmd.Flags().BoolVar(&dumpTree, "dump", false, "Dump the parsed tree")
	prereqCmd.Flags().BoolVar(&asJSON, "json", false, "Print the tree as JSON")
}
