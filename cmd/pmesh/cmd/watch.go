package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/promptmesh/pkg/models"
)

var watchKind string

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Follow an already-submitted job",
	Long: `Attach a polling session to an existing job id and follow it to a
terminal state. The kind selects which renderer displays the results.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchKind, "kind", string(models.KindEvaluation),
		"job kind: evaluation, comparison or evolution")
}

func runWatch(cmd *cobra.Command, args []string) error {
	kind := models.JobKind(watchKind)
	switch kind {
	case models.KindEvaluation, models.KindComparison, models.KindEvolution:
	default:
		return fmt.Errorf("unknown job kind %q", watchKind)
	}

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	fmt.Printf("Following job %s (press Ctrl+C to stop)...\n\n", args[0])
	return runSession(app.submitter.Watch(kind, args[0]))
}
