// Package report renders an analysis, its questions, and the collected
// answers into an XLSX workbook for sharing outside the tool.
package report

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/rfp-insight/internal/model"
)

var titler = cases.Title(language.English)

// Input bundles everything one workbook covers.
type Input struct {
	Analysis  *model.AnalysisRecord
	Questions []model.Question
	AIAnswers []model.AIAnswer
	Responses []model.UserResponse
	Summary   *model.AnalysisSummary
}

// Build assembles the workbook: a summary sheet and a Q&A sheet.
func Build(in Input) (*xlsx.File, error) {
	if in.Analysis == nil {
		return nil, eris.New("report: analysis is required")
	}

	f := xlsx.NewFile()
	if err := addSummarySheet(f, in); err != nil {
		return nil, err
	}
	if err := addQASheet(f, in); err != nil {
		return nil, err
	}
	return f, nil
}

// Write builds the workbook and saves it to path.
func Write(in Input, path string) error {
	f, err := Build(in)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save workbook")
	}
	return nil
}

func addSummarySheet(f *xlsx.File, in Input) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addKV := func(key, value string) {
		row := sheet.AddRow()
		row.AddCell().Value = key
		row.AddCell().Value = value
	}

	rec := in.Analysis
	addKV("Analysis ID", rec.ID)
	if rec.HasProject() {
		addKV("Project ID", *rec.ProjectID)
	}
	addKV("Status", string(rec.Status))
	addKV("Model", rec.Model)
	addKV("Confidence", fmt.Sprintf("%.2f", rec.ConfidenceScore))
	if rec.Degraded {
		addKV("Degraded", rec.DegradedReason)
	}
	addKV("Overview", rec.Sections.Overview)

	sections := []struct {
		label string
		items []string
	}{
		{"Functional Requirements", rec.Sections.FunctionalRequirements},
		{"Non-Functional Requirements", rec.Sections.NonFunctionalRequirements},
		{"Technical Specs", rec.Sections.TechnicalSpecs},
		{"Business Requirements", rec.Sections.BusinessRequirements},
		{"Keywords", rec.Sections.Keywords},
		{"Risk Factors", rec.Sections.RiskFactors},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		addKV(s.label, strings.Join(s.items, "; "))
	}

	if sum := in.Summary; sum != nil {
		sheet.AddRow()
		addKV("Total Questions", fmt.Sprintf("%d", sum.Stats.TotalQuestions))
		addKV("Answered Questions", fmt.Sprintf("%d", sum.Stats.AnsweredQuestions))
		addKV("Completion", fmt.Sprintf("%.1f%%", sum.Stats.CompletionPercentage))
		addKV("Next Steps Ready", strings.Join(readyLabels(sum.Readiness), "; "))
		for i, insight := range sum.ConsolidatedInsights {
			addKV(fmt.Sprintf("Insight %d", i+1), insight)
		}
	}

	if sec := rec.Secondary; sec != nil && !sec.Degraded {
		sheet.AddRow()
		for i, insight := range sec.MarketInsights {
			addKV(fmt.Sprintf("Market Insight %d", i+1), insight)
		}
		for i, insight := range sec.PersonaInsights {
			addKV(fmt.Sprintf("Persona Insight %d", i+1), insight)
		}
	}

	return nil
}

func addQASheet(f *xlsx.File, in Input) error {
	sheet, err := f.AddSheet("Questions & Answers")
	if err != nil {
		return eris.Wrap(err, "report: add qa sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"#", "Question", "Category", "Priority", "AI Suggestion", "Final Answer", "Answered By"} {
		header.AddCell().Value = h
	}

	aiByQuestion := make(map[string]model.AIAnswer, len(in.AIAnswers))
	for _, a := range in.AIAnswers {
		aiByQuestion[a.QuestionID] = a
	}
	respByQuestion := make(map[string]model.UserResponse, len(in.Responses))
	for _, r := range in.Responses {
		if r.IsFinal {
			respByQuestion[r.QuestionID] = r
		}
	}

	for _, q := range in.Questions {
		row := sheet.AddRow()
		row.AddCell().Value = fmt.Sprintf("%d", q.OrderIndex)
		row.AddCell().Value = q.Text
		row.AddCell().Value = categoryLabel(q.Category)
		row.AddCell().Value = string(q.Priority)
		if a, ok := aiByQuestion[q.ID]; ok {
			row.AddCell().Value = a.Text
		} else {
			row.AddCell().Value = ""
		}
		if r, ok := respByQuestion[q.ID]; ok {
			row.AddCell().Value = r.FinalAnswer
			row.AddCell().Value = responseLabel(r.Type)
		}
	}

	return nil
}

// categoryLabel renders a snake_case category as a heading.
func categoryLabel(category string) string {
	return titler.String(strings.ReplaceAll(category, "_", " "))
}

func responseLabel(t model.ResponseType) string {
	switch t {
	case model.ResponseAISelected:
		return "AI"
	case model.ResponseUserAuthored:
		return "User"
	case model.ResponseMixed:
		return "AI + User"
	default:
		return string(t)
	}
}

func readyLabels(r model.Readiness) []string {
	steps := r.ReadySteps()
	labels := make([]string, len(steps))
	for i, s := range steps {
		labels[i] = categoryLabel(s)
	}
	return labels
}
