package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/export"
	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
)

const timestampLayout = "2006-01-02 15:04"

func newSubjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List catalog subjects",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			subjects, err := e.service.Subjects(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-16s  %-24s  %-6s  %s\n", "ID", "Name", "Active", "Topics")
			fmt.Fprintln(out, strings.Repeat("─", 60))
			for _, s := range subjects {
				fmt.Fprintf(out, "%-16s  %-24s  %-6s  %d\n", s.ID, s.Name, yesNo(s.Active), len(s.Topics))
			}
			return nil
		},
	}
}

func newExamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exams",
		Short: "List upcoming exams",
		RunE: func(cmd *cobra.Command, args []string) error {
			frameFlag, _ := cmd.Flags().GetString("frame")
			subjectID, _ := cmd.Flags().GetString("subject")
			frame, err := catalog.ParseTimeFrame(frameFlag)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			exams, err := e.service.Exams(cmd.Context(), frame, subjectID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(exams) == 0 {
				fmt.Fprintln(out, "No upcoming exams.")
				return nil
			}
			for _, ex := range exams {
				fmt.Fprintf(out, "%-16s  %-16s  %s  %-8s  %s\n",
					ex.ID, ex.SubjectID, ex.Date.Local().Format(timestampLayout), ex.Importance.Label(), ex.Title)
			}
			return nil
		},
	}
	cmd.Flags().String("frame", "all", "Time frame: today, week, month or all")
	cmd.Flags().String("subject", "", "Only exams of this subject")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <subject-id>",
		Short: "Generate a new plan for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, _ := cmd.Flags().GetString("exam")
			startFlag, _ := cmd.Flags().GetString("start")
			endFlag, _ := cmd.Flags().GetString("end")
			start, err := parseDate(startFlag)
			if err != nil {
				return err
			}
			end, err := parseDate(endFlag)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.service.CreatePlan(cmd.Context(), planner.CreatePlanRequest{
				SubjectID: args[0],
				ExamID:    examID,
				Start:     start,
				End:       end,
			})
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), p, time.Now())
			return nil
		},
	}
	cmd.Flags().String("exam", "", "Exam to prepare for; its date ends the plan")
	cmd.Flags().String("start", "", "Start date (default now)")
	cmd.Flags().String("end", "", "End date (default exam date or 14 days after start)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the current plan of every subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			plans, err := e.repo.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(plans) == 0 {
				fmt.Fprintln(out, "No plans yet.")
				return nil
			}
			now := time.Now()
			for _, p := range plans {
				v := plan.DeriveViews(p, now)
				fmt.Fprintf(out, "%s  %-16s  %3.0f%%  %d upcoming\n", p.ID, p.Subject.ID, v.Progress*100, len(v.Upcoming))
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <subject-id>",
		Short: "Show the current plan of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.service.CurrentPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("subject %s has no plan; run generate first", args[0])
			}
			printPlan(cmd.OutOrStdout(), *p, time.Now())
			return nil
		},
	}
}

func newCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <plan-id> <session-id>",
		Short: "Record a finished session and adapt the plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			correct, _ := cmd.Flags().GetInt("correct")
			total, _ := cmd.Flags().GetInt("total")
			minutes, _ := cmd.Flags().GetInt("minutes")
			difficulty, _ := cmd.Flags().GetString("difficulty")
			feedback, _ := cmd.Flags().GetString("feedback")

			perf := plan.SessionPerformance{
				CorrectAnswers: correct,
				TotalQuestions: total,
				TimeSpent:      time.Duration(minutes) * time.Minute,
				Difficulty:     plan.Difficulty(difficulty),
				Feedback:       feedback,
			}
			if err := perf.Validate(); err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.service.CompleteSession(cmd.Context(), args[0], args[1], perf, "")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if n := len(p.AdaptationHistory); n > 0 {
				fmt.Fprintln(out, p.AdaptationHistory[n-1].Description)
			}
			printPlan(out, p, time.Now())
			return nil
		},
	}
	cmd.Flags().Int("correct", 0, "Correct answers")
	cmd.Flags().Int("total", 0, "Total questions")
	cmd.Flags().Int("minutes", 0, "Minutes spent")
	cmd.Flags().String("difficulty", "", "Perceived difficulty: easy, medium or hard")
	cmd.Flags().String("feedback", "", "Free-text feedback")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <plan-id>",
		Short: "Write a plan to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.service.GetPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = "plan-" + p.ID + ".xlsx"
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := export.WriteXLSX(f, p, time.Now()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file (default plan-<id>.xlsx)")
	return cmd
}

func printPlan(out io.Writer, p plan.LearningPlan, now time.Time) {
	v := plan.DeriveViews(p, now)
	fmt.Fprintf(out, "Plan %s for %s\n", p.ID, p.Subject.Name)
	fmt.Fprintf(out, "%s → %s", p.StartDate.Local().Format(timestampLayout), p.EndDate.Local().Format(timestampLayout))
	if p.Exam != nil {
		fmt.Fprintf(out, " (exam: %s)", p.Exam.Title)
	}
	fmt.Fprintf(out, "\nProgress: %.0f%%\n\n", v.Progress*100)

	for _, s := range p.Sessions {
		mark := " "
		if s.IsCompleted {
			mark = "✓"
		}
		topics := make([]string, len(s.Topics))
		for i, t := range s.Topics {
			topics[i] = t.Name
		}
		fmt.Fprintf(out, "[%s] %s  %s  %3d min  %s\n",
			mark, s.ID, s.Date.Local().Format(timestampLayout), int(s.Duration/time.Minute), strings.Join(topics, ", "))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
