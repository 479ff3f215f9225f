package responder

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/profile-assistant/backend/internal/analysis/intent"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/profile"
)

// Defaults substituted when the profile lacks an optional field.
const (
	DefaultRole        = "Software Developer"
	DefaultCompany     = "a technology company"
	DefaultProjectName = "Portfolio Project"
	DefaultProjectInfo = "Details available on request."
	DefaultLink        = "Available on request"
	DefaultEmail       = "Available on request"
	DefaultLocation    = "Remote"
	DefaultTitle       = "Software Developer"
	DefaultSkills      = "Available on request"
	DefaultDegree      = "Bachelor's in Computer Science"
	DefaultSchool      = "Stanford University"
	DefaultEduYear     = "2015-2019"
)

var intentEmoji = map[intent.Label]string{
	intent.Greeting:     "👋",
	intent.Gratitude:    "🙏",
	intent.Help:         "🤖",
	intent.Experience:   "💼",
	intent.Skills:       "⚡",
	intent.Projects:     "🚀",
	intent.Contact:      "📧",
	intent.Availability: "✅",
	intent.Technologies: "🔧",
	intent.About:        "👤",
	intent.Education:    "🎓",
	intent.SmallTalk:    "⏰",
	intent.Fallback:     "🤔",
}

// Emoji returns the fixed annotation for label.
func Emoji(label intent.Label) string {
	return intentEmoji[label]
}

// RandomSource picks an index in [0, n). rand.Intn satisfies it.
type RandomSource func(n int) int

// Response is the generated bot reply.
type Response struct {
	Text   string       `json:"text"`
	Emoji  string       `json:"emoji,omitempty"`
	Intent intent.Label `json:"intent"`
}

// Generator turns user input into a templated reply.
type Generator struct {
	templates *TemplateStore
	random    RandomSource
}

// Option 配置 Generator。
type Option func(*Generator)

// WithRandomSource pins variant selection, mainly for tests.
func WithRandomSource(src RandomSource) Option {
	return func(g *Generator) {
		if src != nil {
			g.random = src
		}
	}
}

// NewGenerator builds a generator over the given templates.
func NewGenerator(templates *TemplateStore, opts ...Option) *Generator {
	if templates == nil {
		templates = NewTemplateStore()
	}
	g := &Generator{templates: templates, random: rand.Intn}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate classifies input and renders the matching template for the
// personality. When rendering fails the raw template text is returned along
// with the error so callers still have something to show.
func (g *Generator) Generate(ctx context.Context, input string, personality chat.Personality, kb profile.Profile) (Response, error) {
	label := intent.Classify(input)
	resp := Response{Emoji: intentEmoji[label], Intent: label}

	variants, ok := g.templates.Lookup(personality, label)
	if !ok || len(variants) == 0 {
		variants, _ = g.templates.Lookup(personality, intent.Fallback)
		resp.Intent = intent.Fallback
		resp.Emoji = intentEmoji[intent.Fallback]
	}

	tpl := variants[0]
	if len(variants) > 1 {
		tpl = variants[g.pick(len(variants))]
	}

	text, err := render(ctx, tpl, templateVars(kb, input))
	if err != nil {
		resp.Text = tpl
		return resp, fmt.Errorf("render %s template: %w", resp.Intent, err)
	}
	resp.Text = text
	return resp, nil
}

// Variants renders every variant for label, in declaration order.
func (g *Generator) Variants(ctx context.Context, input string, personality chat.Personality, kb profile.Profile, label intent.Label) ([]string, error) {
	variants, ok := g.templates.Lookup(personality, label)
	if !ok {
		return nil, fmt.Errorf("no templates for intent %s", label)
	}
	vars := templateVars(kb, input)
	out := make([]string, 0, len(variants))
	for _, tpl := range variants {
		text, err := render(ctx, tpl, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

func (g *Generator) pick(n int) int {
	idx := g.random(n)
	if idx < 0 || idx >= n {
		return 0
	}
	return idx
}

func render(ctx context.Context, tpl string, vars map[string]any) (string, error) {
	messages, err := prompt.FromMessages(schema.FString, schema.SystemMessage(tpl)).Format(ctx, vars)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 || messages[0] == nil {
		return "", fmt.Errorf("template produced no output")
	}
	return messages[0].Content, nil
}

func templateVars(kb profile.Profile, input string) map[string]any {
	vars := map[string]any{
		"input":            input,
		"name":             orDefault(kb.Name, "your assistant"),
		"first_name":       orDefault(kb.FirstName(), "the owner"),
		"title":            orDefault(kb.Title, DefaultTitle),
		"location":         orDefault(kb.Location, DefaultLocation),
		"description":      kb.Description,
		"website":          orDefault(kb.Website, DefaultLink),
		"experience_count": strconv.Itoa(len(kb.Experience)),
		"skill_names":      orDefault(strings.Join(kb.SkillNames(), ", "), DefaultSkills),
		"email":            orDefault(kb.Contact.Email, DefaultEmail),
	}

	for i := 0; i < 3; i++ {
		role, company := DefaultRole, DefaultCompany
		if i < len(kb.Experience) {
			role = orDefault(kb.Experience[i].Role, DefaultRole)
			company = orDefault(kb.Experience[i].Company, DefaultCompany)
		}
		vars[fmt.Sprintf("exp%d_role", i+1)] = role
		vars[fmt.Sprintf("exp%d_company", i+1)] = company

		title, desc := DefaultProjectName, DefaultProjectInfo
		if i < len(kb.Projects) {
			title = orDefault(kb.Projects[i].Title, DefaultProjectName)
			desc = orDefault(kb.Projects[i].Description, DefaultProjectInfo)
		}
		vars[fmt.Sprintf("proj%d_title", i+1)] = title
		vars[fmt.Sprintf("proj%d_description", i+1)] = desc
	}

	linkedin, _ := kb.SocialHref("linkedin")
	github, _ := kb.SocialHref("github")
	vars["linkedin"] = orDefault(linkedin, DefaultLink)
	vars["github"] = orDefault(github, DefaultLink)

	degree, school, year := DefaultDegree, DefaultSchool, DefaultEduYear
	if len(kb.Education) > 0 {
		edu := kb.Education[0]
		degree = orDefault(edu.Degree, DefaultDegree)
		school = orDefault(edu.School, DefaultSchool)
		year = orDefault(edu.Year, DefaultEduYear)
	}
	vars["degree"] = degree
	vars["school"] = school
	vars["education_year"] = year

	return vars
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
