package cmd

import (
	"fmt"
	"os"

	"trellis/internal/workspace"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Issue-specific flags
var (
	issueProject     string
	issueTitle       string
	issueDescription string
)

// issueCmd represents the issue command group
var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Work with workspace issues",
}

// issueListCmd represents the issue list command
var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Long: `List issues in the workspace.

Examples:
  trellis issue list                   # All issues you can see
  trellis issue list --project <id>    # Issues in one project`,
	RunE: runIssueList,
}

// issueCreateCmd represents the issue create command
var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an issue",
	Long: `Create an issue in a project.

Examples:
  trellis issue create --project <id> --title "Fix login loop"`,
	RunE: runIssueCreate,
}

func init() {
	rootCmd.AddCommand(issueCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueCreateCmd)

	issueCmd.PersistentFlags().StringVar(&issueProject, "project", "", "Project ID")

	issueCreateCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueCreateCmd.Flags().StringVar(&issueDescription, "description", "", "Issue description")
	issueCreateCmd.MarkFlagRequired("title")
}

func runIssueList(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	issues, err := app.workspaceClient(cmd.Context()).ListIssues(cmd.Context(), issueProject)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		authPrintln("No issues found.")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"KEY", "TITLE", "STATE", "CREATED"})
	for _, issue := range issues {
		t.AppendRow(table.Row{issue.Key, issue.Title, formatIssueState(issue.State), issue.CreatedAt.Format("2006-01-02")})
	}
	t.Render()
	return nil
}

func runIssueCreate(cmd *cobra.Command, args []string) error {
	if issueProject == "" {
		return fmt.Errorf("--project is required for issue create")
	}

	app, err := buildApp()
	if err != nil {
		return err
	}

	issue, err := app.workspaceClient(cmd.Context()).CreateIssue(cmd.Context(), workspace.CreateIssueRequest{
		ProjectID:   issueProject,
		Title:       issueTitle,
		Description: issueDescription,
	})
	if err != nil {
		return err
	}

	authPrint("Created %s: %s\n", text.FgGreen.Sprint(issue.Key), issue.Title)
	if issue.URL != "" {
		authPrint("  %s\n", issue.URL)
	}
	return nil
}

// newTable creates a table writer with the standard styling.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

// formatIssueState colors an issue state for table output.
func formatIssueState(state string) string {
	switch state {
	case "open":
		return text.FgGreen.Sprint(state)
	case "done", "closed":
		return text.FgHiBlack.Sprint(state)
	default:
		return state
	}
}
