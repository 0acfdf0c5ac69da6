package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Work with workspace projects",
}

// projectListCmd represents the project list command
var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectList,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
}

func runProjectList(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	projects, err := app.workspaceClient(cmd.Context()).ListProjects(cmd.Context())
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		authPrintln("No projects found.")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"KEY", "NAME", "ID"})
	for _, project := range projects {
		t.AppendRow(table.Row{project.Key, project.Name, project.ID})
	}
	t.Render()
	return nil
}
