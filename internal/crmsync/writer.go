package crmsync

import (
	"context"
	"strings"

	"diagnostico_backend/internal/pipedrive"
	"diagnostico_backend/internal/routing"
	"diagnostico_backend/platform/logger"
)

// DealTitlePrefix starts every deal title; the submitter's name follows.
const DealTitlePrefix = "Diagnóstico – "

// DealInput is what a deal is built from.
type DealInput struct {
	Name     string
	PersonID int64
	OrgID    int64
	Target   routing.Target
	Industry string
	ERP      string
}

// Title is the deal title shown in the CRM.
func (d DealInput) Title() string {
	return DealTitlePrefix + strings.TrimSpace(d.Name)
}

// Writer creates deals and notes.
type Writer struct {
	crm           CRM
	industryField string
	erpField      string
	log           *logger.Logger
}

// NewWriter creates a writer. industryField and erpField are Pipedrive custom
// field keys; empty keys are not sent.
func NewWriter(crm CRM, industryField, erpField string, log *logger.Logger) *Writer {
	return &Writer{crm: crm, industryField: industryField, erpField: erpField, log: log}
}

// CreateDeal creates the deal exactly once. It is never retried because a
// timed out create may still have succeeded remotely.
func (w *Writer) CreateDeal(ctx context.Context, in DealInput) (int64, error) {
	fields := map[string]any{
		"title":       in.Title(),
		"pipeline_id": in.Target.PipelineID,
		"stage_id":    in.Target.StageID,
		"value":       0,
		"currency":    in.Target.Currency,
	}
	if in.PersonID != 0 {
		fields["person_id"] = in.PersonID
	}
	if in.OrgID != 0 {
		fields["org_id"] = in.OrgID
	}
	if w.industryField != "" && in.Industry != "" {
		fields[w.industryField] = in.Industry
	}
	if w.erpField != "" && in.ERP != "" {
		fields[w.erpField] = in.ERP
	}

	id, err := w.crm.Create(ctx, pipedrive.EntityDeal, fields)
	if err != nil {
		return 0, &DealWriteError{Title: in.Title(), Err: err}
	}

	w.log.Info("created crm deal",
		"deal_id", id,
		"pipeline_id", in.Target.PipelineID,
		"stage_id", in.Target.StageID,
		"country", in.Target.CountryCode,
	)
	return id, nil
}

// AttachNote writes the submission summary onto the deal and its parties.
func (w *Writer) AttachNote(ctx context.Context, dealID, personID, orgID int64, in NoteInput) error {
	_, err := w.crm.CreateNote(ctx, pipedrive.Note{
		Content:  FormatNote(in),
		DealID:   dealID,
		PersonID: personID,
		OrgID:    orgID,
	})
	if err != nil {
		return &NoteWriteError{DealID: dealID, Err: err}
	}
	return nil
}
