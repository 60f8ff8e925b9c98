package intake

import (
	"strings"

	"diagnostico_backend/internal/scoring"
	"diagnostico_backend/platform/sanitize"
)

// Submission is a sanitized questionnaire ready for the pipeline.
type Submission struct {
	Name        string `validate:"required"`
	Company     string
	Email       string `validate:"required,email,max=254"`
	Country     string
	Answers     []scoring.Answer
	UTM         map[string]string
	Score1Count *int
	Qualifies   *bool
	ResultText  string

	CaptchaToken string
	RemoteIP     string
	// Origin is the public origin the form was served from, used for email asset links.
	Origin string
}

// NewSubmission converts the wire payload, stripping markup from free text.
func NewSubmission(req SubmitRequest) Submission {
	sub := Submission{
		Name:         sanitize.Text(req.Name),
		Company:      sanitize.Text(req.Company),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Country:      sanitize.Text(req.Country),
		Score1Count:  req.Score1Count,
		Qualifies:    req.Qualifies,
		ResultText:   sanitize.Text(req.ResultText),
		CaptchaToken: strings.TrimSpace(req.RecaptchaToken),
	}

	if req.Answers == nil {
		return sub
	}

	if len(req.Answers.UTMs) > 0 {
		sub.UTM = make(map[string]string, len(req.Answers.UTMs))
		for k, v := range req.Answers.UTMs {
			k = sanitize.Text(k)
			v = sanitize.Text(v)
			if k != "" && v != "" {
				sub.UTM[k] = v
			}
		}
	}

	for _, item := range req.Answers.Items {
		sub.Answers = append(sub.Answers, scoring.Answer{
			QuestionID:    strings.TrimSpace(item.QuestionID),
			SelectedValue: sanitize.Text(item.SelectedValue),
			ScoreWeight:   item.ScoreWeight,
			FreeText:      sanitize.Text(item.FreeText),
		})
	}
	return sub
}

// answerValue returns the free text when given, otherwise the selected option.
func (s Submission) answerValue(questionID string) string {
	for _, a := range s.Answers {
		if a.QuestionID != questionID {
			continue
		}
		if a.FreeText != "" {
			return a.FreeText
		}
		return a.SelectedValue
	}
	return ""
}
