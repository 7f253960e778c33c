// Package prompt assembles the evaluation requests sent to the completion
// endpoint. The rubric instructions live in prompts/rubric_v7.md and are the
// only copy of the rubric text in the repository.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"text/template/parse"
)

//go:embed prompts/rubric_v7.md
var rubricText string

var (
	ErrUnusedSlot   = errors.New("template slot not referenced")
	ErrUnknownSlot  = errors.New("template references undeclared slot")
	ErrEmptyContent = errors.New("plan and report content are both empty")
)

// Template is a named text template whose slots are fixed at construction.
// Values are interpolated as-is; nothing is escaped.
type Template struct {
	name  string
	slots []string
	tmpl  *template.Template
}

// NewTemplate parses body and checks that it references exactly the declared
// slots, each written as {{.Slot}}.
func NewTemplate(name, body string, slots ...string) (*Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	used := map[string]bool{}
	if t.Tree != nil {
		collectFields(t.Tree.Root, used)
	}
	declared := make(map[string]bool, len(slots))
	for _, s := range slots {
		declared[s] = true
		if !used[s] {
			return nil, fmt.Errorf("%s: %w: %s", name, ErrUnusedSlot, s)
		}
	}
	for s := range used {
		if !declared[s] {
			return nil, fmt.Errorf("%s: %w: %s", name, ErrUnknownSlot, s)
		}
	}
	return &Template{name: name, slots: slots, tmpl: t}, nil
}

func mustTemplate(name, body string, slots ...string) *Template {
	t, err := NewTemplate(name, body, slots...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Name() string    { return t.name }
func (t *Template) Slots() []string { return append([]string(nil), t.slots...) }

// Render fills every slot from values. A missing slot is an error.
func (t *Template) Render(values map[string]any) (string, error) {
	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, values); err != nil {
		return "", fmt.Errorf("render %s: %w", t.name, err)
	}
	return sb.String(), nil
}

func collectFields(node parse.Node, used map[string]bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			collectFields(c, used)
		}
	case *parse.ActionNode:
		collectFields(n.Pipe, used)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			for _, arg := range cmd.Args {
				collectFields(arg, used)
			}
		}
	case *parse.FieldNode:
		if len(n.Ident) > 0 {
			used[n.Ident[0]] = true
		}
	case *parse.IfNode:
		collectFields(n.Pipe, used)
		collectFields(n.List, used)
		collectFields(n.ElseList, used)
	case *parse.RangeNode:
		collectFields(n.Pipe, used)
		collectFields(n.List, used)
		collectFields(n.ElseList, used)
	case *parse.WithNode:
		collectFields(n.Pipe, used)
		collectFields(n.List, used)
		collectFields(n.ElseList, used)
	}
}

var planSection = mustTemplate("plan", `[계획서 요약]
활동 목표: {{.Goal}}
활동 계획: {{.PlanText}}
팀원 수: {{.MemberCount}}명

[결과보고서 요약]
(결과보고서 없음 - 계획서만 제출됨)`, "Goal", "PlanText", "MemberCount")

var reportSection = mustTemplate("report", `[계획서 요약]
활동 목표: {{.Goal}}
팀원 수: {{.MemberCount}}명
(계획서는 별도 제출되었거나 기본 정보만 있음)

[결과보고서 요약]
활동 내용: {{.Content}}
활동 소감: {{.Reflection}}
팀원 수: {{.MemberCount}}명`, "Goal", "MemberCount", "Content", "Reflection")

type PlanInput struct {
	Goal        string
	PlanText    string
	MemberCount int
}

type ReportInput struct {
	Goal        string
	Content     string
	Reflection  string
	MemberCount int
}

// System returns the rubric instructions on their own, for endpoints that
// take a separate system instruction.
func System() string {
	return strings.TrimRight(rubricText, "\n")
}

// PlanPrompt returns the rubric followed by the plan-only summary section.
func PlanPrompt(in PlanInput) string {
	return withRubric(planSection, map[string]any{
		"Goal":        in.Goal,
		"PlanText":    in.PlanText,
		"MemberCount": in.MemberCount,
	})
}

// ReportPrompt returns the rubric followed by the report summary section.
func ReportPrompt(in ReportInput) string {
	return withRubric(reportSection, map[string]any{
		"Goal":        in.Goal,
		"Content":     in.Content,
		"Reflection":  in.Reflection,
		"MemberCount": in.MemberCount,
	})
}

func withRubric(t *Template, values map[string]any) string {
	section, err := t.Render(values)
	if err != nil {
		// every slot is supplied by the typed callers above
		panic(err)
	}
	return System() + "\n\n" + section
}

// PairContent builds the user content for a plan/report document pair.
// An empty side is left out entirely.
func PairContent(planText, reportText string) (string, error) {
	var sb strings.Builder
	if planText != "" {
		sb.WriteString("[계획서]\n")
		sb.WriteString(planText)
		sb.WriteString("\n\n")
	}
	if reportText != "" {
		sb.WriteString("[결과보고서]\n")
		sb.WriteString(reportText)
		sb.WriteString("\n\n")
	}
	if sb.Len() == 0 {
		return "", ErrEmptyContent
	}
	return sb.String(), nil
}
