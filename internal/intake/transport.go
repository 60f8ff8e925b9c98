package intake

import "diagnostico_backend/internal/scoring"

// SubmitRequest is the inbound questionnaire payload.
type SubmitRequest struct {
	Name           string      `json:"name"`
	Company        string      `json:"company"`
	Email          string      `json:"email"`
	Country        string      `json:"country"`
	Answers        *AnswersDTO `json:"answers"`
	Score1Count    *int        `json:"score1Count"`
	Qualifies      *bool       `json:"qualifies"`
	ResultText     string      `json:"resultText"`
	RecaptchaToken string      `json:"recaptchaToken"`
}

// AnswersDTO groups the answer items with the campaign parameters captured by the form.
type AnswersDTO struct {
	UTMs  map[string]string `json:"utms"`
	Items []AnswerDTO       `json:"items"`
}

// AnswerDTO is one answered question.
type AnswerDTO struct {
	QuestionID    string `json:"questionId"`
	SelectedValue string `json:"selectedValue"`
	ScoreWeight   int    `json:"scoreWeight"`
	FreeText      string `json:"freeText"`
}

// VerdictDTO describes the qualification result.
type VerdictDTO struct {
	Qualifies     bool   `json:"qualifies"`
	Label         string `json:"label"`
	Title         string `json:"title"`
	LowScoreCount *int   `json:"lowScoreCount,omitempty"`
}

// SubmitResponse is returned on success.
type SubmitResponse struct {
	OK          bool        `json:"ok"`
	Message     string      `json:"message,omitempty"`
	DealID      int64       `json:"dealId,omitempty"`
	DealCreated bool        `json:"dealCreated"`
	Verdict     *VerdictDTO `json:"verdict,omitempty"`
}

func toVerdictDTO(v scoring.Verdict) *VerdictDTO {
	out := &VerdictDTO{Qualifies: v.Qualifies, Label: v.Label, Title: v.Title}
	if v.LowScoreCount >= 0 {
		count := v.LowScoreCount
		out.LowScoreCount = &count
	}
	return out
}
