// Package scoring turns a completed questionnaire into a qualification verdict.
//
// Every answer carries a weight of 1 (weak fit) or 2 (strong fit). A lead
// qualifies while the number of weak answers stays at or below the
// threshold, which is 3 for the production battery.
package scoring

import (
	"fmt"
	"strings"

	"diagnostico_backend/platform/apperr"
)

const (
	// WeightLow marks an answer that signals a weak fit.
	WeightLow = 1
	// WeightHigh marks an answer that signals a strong fit.
	WeightHigh = 2

	// DefaultMaxLowScore is the inclusive limit of weak answers for a qualifying lead.
	DefaultMaxLowScore = 3

	LabelQualifies    = "Sí califica"
	LabelNotQualifies = "No hay cupo"
)

// Texts shown to the submitter once the verdict is known.
const (
	TitleQualifies      = "¡Felicidades! Calificas para una asesoría sin costo."
	MessageQualifies    = "Te hemos enviado un correo con los siguientes pasos para agendar una primera sesión."
	TitleNotQualifies   = "Lo sentimos, por ahora sin cupo"
	MessageNotQualifies = "Por el momento nos encontramos sin cupo para la asesoría. Te hemos enviado información a tu correo."
)

// DefaultQuestions is the production question battery, in display order.
var DefaultQuestions = []string{
	"industria",
	"erp",
	"personas",
	"paises",
	"lineas",
	"satisfaccion",
	"pro_tecnologia",
}

// Answer is one submitted response.
type Answer struct {
	QuestionID    string
	SelectedValue string
	ScoreWeight   int
	FreeText      string
}

// Verdict is the outcome of scoring one submission.
type Verdict struct {
	LowScoreCount int
	Qualifies     bool
	Label         string
	Title         string
	Message       string
}

// Engine scores answer sets against a fixed battery.
type Engine struct {
	questions   []string
	known       map[string]struct{}
	maxLowScore int
}

// NewEngine builds an engine for the given battery. An empty battery falls back
// to DefaultQuestions and a non-positive threshold to DefaultMaxLowScore.
func NewEngine(questions []string, maxLowScore int) *Engine {
	if len(questions) == 0 {
		questions = DefaultQuestions
	}
	if maxLowScore <= 0 {
		maxLowScore = DefaultMaxLowScore
	}

	known := make(map[string]struct{}, len(questions))
	ordered := make([]string, 0, len(questions))
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := known[q]; dup {
			continue
		}
		known[q] = struct{}{}
		ordered = append(ordered, q)
	}

	return &Engine{questions: ordered, known: known, maxLowScore: maxLowScore}
}

// Questions returns the battery in display order.
func (e *Engine) Questions() []string {
	out := make([]string, len(e.questions))
	copy(out, e.questions)
	return out
}

// Evaluate scores a complete answer set. It is pure: the same answers always
// produce the same verdict.
func (e *Engine) Evaluate(answers []Answer) (Verdict, error) {
	seen := make(map[string]struct{}, len(answers))
	low := 0

	for _, a := range answers {
		id := strings.TrimSpace(a.QuestionID)
		if id == "" {
			return Verdict{}, invalid("answer without question id")
		}
		if _, ok := e.known[id]; !ok {
			return Verdict{}, invalid(fmt.Sprintf("unknown question %q", id))
		}
		if _, dup := seen[id]; dup {
			return Verdict{}, invalid(fmt.Sprintf("question %q answered more than once", id))
		}
		seen[id] = struct{}{}

		switch a.ScoreWeight {
		case WeightLow:
			low++
		case WeightHigh:
		default:
			return Verdict{}, invalid(fmt.Sprintf("question %q has weight %d, expected 1 or 2", id, a.ScoreWeight))
		}
	}

	var missing []string
	for _, q := range e.questions {
		if _, ok := seen[q]; !ok {
			missing = append(missing, q)
		}
	}
	if len(missing) > 0 {
		return Verdict{}, invalid("incomplete questionnaire").WithDetails(map[string]any{"missing": missing})
	}

	return e.verdictFor(low), nil
}

// FromLowScoreCount applies the threshold to a count computed elsewhere.
func (e *Engine) FromLowScoreCount(count int) (Verdict, error) {
	if count < 0 || count > len(e.questions) {
		return Verdict{}, invalid(fmt.Sprintf("low score count %d out of range", count))
	}
	return e.verdictFor(count), nil
}

// FromQualifies builds a verdict when only the caller's decision is known.
// LowScoreCount is -1 because the count is unknown.
func FromQualifies(qualifies bool) Verdict {
	return newVerdict(-1, qualifies)
}

// Presentation returns the title and message shown to the submitter.
func Presentation(qualifies bool) (title, message string) {
	if qualifies {
		return TitleQualifies, MessageQualifies
	}
	return TitleNotQualifies, MessageNotQualifies
}

func (e *Engine) verdictFor(low int) Verdict {
	return newVerdict(low, low <= e.maxLowScore)
}

func newVerdict(low int, qualifies bool) Verdict {
	title, message := Presentation(qualifies)
	return Verdict{
		LowScoreCount: low,
		Qualifies:     qualifies,
		Label:         labelFor(qualifies),
		Title:         title,
		Message:       message,
	}
}

func labelFor(qualifies bool) string {
	if qualifies {
		return LabelQualifies
	}
	return LabelNotQualifies
}

func invalid(msg string) *apperr.Error {
	return apperr.Validation(msg).WithOp("scoring.Evaluate")
}
