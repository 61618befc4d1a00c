// Package export renders learning plans as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-planner/internal/plan"
)

const (
	SessionsSheet = "Sessions"
	HistorySheet  = "Adaptations"
	SummarySheet  = "Summary"

	dateTimeLayout = "2006-01-02 15:04"
)

var sessionHeader = []any{"Date", "Duration (min)", "Topics", "Exercises", "Completed", "Correct", "Total", "Accuracy"}

var historyHeader = []any{"Date", "Reason", "Description"}

// WriteXLSX writes p as an XLSX workbook with a summary, one row per session
// and one row per adaptation. now decides the progress shown in the summary.
func WriteXLSX(w io.Writer, p plan.LearningPlan, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SessionsSheet, HistorySheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeSummary(f, p, now, bold); err != nil {
		return err
	}
	if err := writeSessions(f, p, bold); err != nil {
		return err
	}
	if err := writeHistory(f, p, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, p plan.LearningPlan, now time.Time, bold int) error {
	views := plan.DeriveViews(p, now)
	rows := [][]any{
		{"Plan", p.ID},
		{"Subject", p.Subject.Name},
		{"Start", p.StartDate.Format(dateTimeLayout)},
		{"End", p.EndDate.Format(dateTimeLayout)},
		{"Sessions", len(p.Sessions)},
		{"Upcoming", len(views.Upcoming)},
		{"Progress", views.Progress},
	}
	if p.Exam != nil {
		rows = append(rows,
			[]any{"Exam", p.Exam.Title},
			[]any{"Exam date", p.Exam.Date.Format(dateTimeLayout)},
			[]any{"Importance", p.Exam.Importance.Label()},
		)
	}
	if err := setRows(f, SummarySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	return f.SetColWidth(SummarySheet, "A", "B", 22)
}

func writeSessions(f *excelize.File, p plan.LearningPlan, bold int) error {
	rows := [][]any{sessionHeader}
	for _, s := range p.Sessions {
		topics := make([]string, len(s.Topics))
		for i, t := range s.Topics {
			topics[i] = t.Name
		}
		exercises := make([]string, len(s.Exercises))
		for i, ex := range s.Exercises {
			exercises[i] = fmt.Sprintf("%s (%s)", ex.Title, ex.Difficulty.Label())
		}

		row := []any{
			s.Date.Format(dateTimeLayout),
			int(s.Duration / time.Minute),
			strings.Join(topics, ", "),
			strings.Join(exercises, ", "),
			yesNo(s.IsCompleted),
		}
		if s.Performance != nil {
			row = append(row, s.Performance.CorrectAnswers, s.Performance.TotalQuestions, s.Performance.Accuracy())
		}
		rows = append(rows, row)
	}
	if err := setRows(f, SessionsSheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SessionsSheet, "A1", "H1", bold); err != nil {
		return fmt.Errorf("style sessions: %w", err)
	}
	return f.SetColWidth(SessionsSheet, "A", "D", 24)
}

func writeHistory(f *excelize.File, p plan.LearningPlan, bold int) error {
	rows := [][]any{historyHeader}
	for _, a := range p.AdaptationHistory {
		rows = append(rows, []any{a.Date.Format(dateTimeLayout), a.Reason.Label(), a.Description})
	}
	if err := setRows(f, HistorySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(HistorySheet, "A1", "C1", bold); err != nil {
		return fmt.Errorf("style history: %w", err)
	}
	return f.SetColWidth(HistorySheet, "C", "C", 60)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
