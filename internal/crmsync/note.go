package crmsync

import (
	"fmt"
	"sort"
	"strings"

	"diagnostico_backend/internal/routing"
	"diagnostico_backend/internal/scoring"
)

// NoteInput carries everything the sales team sees on the deal note.
type NoteInput struct {
	Name         string
	Company      string
	Email        string
	CountryCode  string
	CountryInput string
	Verdict      scoring.Verdict
	ResultText   string
	UTM          map[string]string
	Answers      []scoring.Answer
}

// FormatNote renders the note body as plain text, one fact per line.
func FormatNote(in NoteInput) string {
	var b strings.Builder

	b.WriteString("Formulario diagnóstico\n")
	fmt.Fprintf(&b, "• Nombre: %s\n", orDash(in.Name))
	fmt.Fprintf(&b, "• Empresa: %s\n", orDash(in.Company))
	fmt.Fprintf(&b, "• Email: %s\n", orDash(in.Email))
	fmt.Fprintf(&b, "• País: %s\n", countryLine(in.CountryCode, in.CountryInput))

	result := "❌ No califica"
	if in.Verdict.Qualifies {
		result = "✅ Sí califica"
	}
	fmt.Fprintf(&b, "• Resultado: %s\n", result)

	evaluation := in.ResultText
	if evaluation == "" {
		evaluation = in.Verdict.Label
	}
	fmt.Fprintf(&b, "• Evaluación: %s\n", orDash(evaluation))

	if in.Verdict.LowScoreCount >= 0 {
		fmt.Fprintf(&b, "• # de respuestas score=1: %d\n", in.Verdict.LowScoreCount)
	}

	if len(in.UTM) > 0 {
		keys := make([]string, 0, len(in.UTM))
		for k := range in.UTM {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\nUTM:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, in.UTM[k])
		}
	}

	b.WriteString("\nRespuestas:\n")
	if len(in.Answers) == 0 {
		b.WriteString("(sin respuestas)\n")
	}
	for _, a := range in.Answers {
		fmt.Fprintf(&b, "- %s: %s", a.QuestionID, orDash(a.SelectedValue))
		if text := strings.TrimSpace(a.FreeText); text != "" {
			fmt.Fprintf(&b, " (%s)", text)
		}
		fmt.Fprintf(&b, " [score %d]\n", a.ScoreWeight)
	}

	return strings.TrimRight(b.String(), "\n")
}

func countryLine(code, input string) string {
	name, ok := routing.Names[code]
	if !ok {
		name = code
	}
	line := fmt.Sprintf("%s (%s)", name, code)

	input = strings.TrimSpace(input)
	if input != "" && routing.Fold(input) != routing.Fold(name) && !strings.EqualFold(input, code) {
		line += fmt.Sprintf(" [indicado: %s]", input)
	}
	return line
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
