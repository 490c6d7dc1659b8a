// Package prompt holds the prompt templates sent to the remote model. Every
// template is a named constant rendered by Build, so prompts can be tested
// without calling the model.
package prompt

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
)

// Version is bumped whenever any template changes
const Version = "2025-10-01.3"

type Kind string

const (
	KindValidateIdea  Kind = "validate_idea"
	KindFirstMessage  Kind = "first_message"
	KindRefine        Kind = "refine"
	KindOffTopicCheck Kind = "off_topic_check"
	KindWrinkleEval   Kind = "wrinkle_eval"
	KindSuggestions   Kind = "suggestions"
	KindSalty         Kind = "salty"
)

var (
	ErrUnknownKind = goerr.New("unknown prompt kind")

	//go:embed templates/*.md
	templateFS embed.FS

	templates = template.Must(template.New("").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
	}).ParseFS(templateFS, "templates/*.md"))
)

// Turn is a conversation turn as rendered into prompts
type Turn struct {
	Role    string
	Content string
}

// Context carries every value a template may reference. Unused fields are
// ignored by templates that do not need them.
type Context struct {
	Message          string
	Idea             string
	History          []Turn
	ResponseMode     string
	Question         string
	PreviousAnswers  []string
	BotResponse      string
	BaseResponse     string
	PersistenceLevel int
	WrinklePoints    int
}

// Kinds returns all known prompt kinds
func Kinds() []Kind {
	return []Kind{
		KindValidateIdea,
		KindFirstMessage,
		KindRefine,
		KindOffTopicCheck,
		KindWrinkleEval,
		KindSuggestions,
		KindSalty,
	}
}

// Build renders the template of kind with ctx
func Build(kind Kind, ctx Context) (string, error) {
	tmpl := templates.Lookup(string(kind) + ".md")
	if tmpl == nil {
		return "", goerr.Wrap(ErrUnknownKind, "no template", goerr.V("kind", kind))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", goerr.Wrap(err, "failed to execute prompt template", goerr.V("kind", kind))
	}

	return strings.TrimSpace(buf.String()), nil
}
