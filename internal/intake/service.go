// Package intake runs a questionnaire submission through scoring, routing,
// CRM synchronization and notification, and exposes it over HTTP.
package intake

import (
	"context"
	"errors"
	"time"

	"diagnostico_backend/internal/captcha"
	"diagnostico_backend/internal/crmsync"
	"diagnostico_backend/internal/ledger"
	"diagnostico_backend/internal/notification"
	"diagnostico_backend/internal/routing"
	"diagnostico_backend/internal/scoring"
	"diagnostico_backend/platform/apperr"
	"diagnostico_backend/platform/logger"
	"diagnostico_backend/platform/validator"

	"github.com/google/uuid"
)

// State is a step of the submission pipeline.
type State string

const (
	StateValidating        State = "validating"
	StateScoring           State = "scoring"
	StateRouting           State = "routing"
	StateResolvingEntities State = "resolving_entities"
	StateWritingDeal       State = "writing_deal"
	StateWritingNote       State = "writing_note"
	StateNotifying         State = "notifying"
	StateDone              State = "done"
)

// Degraded step names, as logged and counted.
const (
	stepPerson       = "person"
	stepOrganization = "organization"
	stepNote         = "note"
	stepNotification = "notification"
	stepLedger       = "ledger"
)

// Router resolves a country value to its CRM destination.
type Router interface {
	Resolve(value string) routing.Target
}

// EntityResolver finds or creates the contact and company.
type EntityResolver interface {
	ResolveEntities(ctx context.Context, name, email, company string) crmsync.Entities
}

// DealWriter creates the deal and its note.
type DealWriter interface {
	CreateDeal(ctx context.Context, in crmsync.DealInput) (int64, error)
	AttachNote(ctx context.Context, dealID, personID, orgID int64, in crmsync.NoteInput) error
}

// Notifier sends the confirmation email.
type Notifier interface {
	Dispatch(ctx context.Context, to notification.Recipient, verdict scoring.Verdict, origin string) error
}

// Result is a completed submission.
type Result struct {
	SubmissionID uuid.UUID
	DealID       int64
	Verdict      scoring.Verdict
	Target       routing.Target
	Degraded     []string
}

// Deps are the collaborators of the orchestrator. Captcha, Ledger and
// Metrics are optional.
type Deps struct {
	Scorer    *scoring.Engine
	Router    Router
	Resolver  EntityResolver
	Writer    DealWriter
	Notifier  Notifier
	Validator *validator.Validator
	Captcha   captcha.Verifier
	Ledger    ledger.Recorder
	Metrics   *Metrics
	Log       *logger.Logger
}

// Options tune validation and timing.
type Options struct {
	RequireCorporateEmail bool
	// Timeout bounds the whole pipeline once it is detached from the request.
	Timeout time.Duration
}

// Orchestrator drives one submission through the pipeline states. Only
// validation and the deal write can fail a submission; every other step
// degrades and the pipeline moves on.
type Orchestrator struct {
	deps Deps
	opts Options
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	if deps.Captcha == nil {
		deps.Captcha = captcha.Disabled{}
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.NoopRecorder{}
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// run carries the state of one submission between steps.
type run struct {
	id       uuid.UUID
	sub      Submission
	verdict  scoring.Verdict
	target   routing.Target
	entities crmsync.Entities
	dealID   int64
	degraded []string
}

// Submit processes sub. The caller's cancellation is ignored once the
// pipeline starts so a dropped connection cannot leave the CRM half written.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (Result, error) {
	started := time.Now()
	r := &run{id: uuid.New(), sub: sub}

	ctx = context.WithoutCancel(ctx)
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, logger.SubmissionIDKey, r.id.String())
	log := o.deps.Log.WithContext(ctx)

	state := StateValidating
	for state != StateDone {
		next, err := o.step(ctx, state, r)
		if err != nil {
			outcome := outcomeInvalid
			if state == StateWritingDeal {
				outcome = outcomeDealFailed
			}
			log.Warn("submission failed", "state", string(state), "kind", apperr.GetKind(err).String(), "error", err)
			o.deps.Metrics.observeOutcome(outcome, time.Since(started))
			return Result{SubmissionID: r.id, Verdict: r.verdict, Target: r.target, Degraded: r.degraded}, err
		}
		log.Debug("submission state", "from", string(state), "to", string(next))
		state = next
	}

	o.deps.Metrics.observeOutcome(outcomeOK, time.Since(started))
	log.Info("submission completed",
		"deal_id", r.dealID,
		"qualifies", r.verdict.Qualifies,
		"country", r.target.CountryCode,
		"degraded", r.degraded,
	)

	return Result{
		SubmissionID: r.id,
		DealID:       r.dealID,
		Verdict:      r.verdict,
		Target:       r.target,
		Degraded:     r.degraded,
	}, nil
}

func (o *Orchestrator) step(ctx context.Context, state State, r *run) (State, error) {
	switch state {
	case StateValidating:
		return StateScoring, o.validate(ctx, r.sub)
	case StateScoring:
		return StateRouting, o.score(ctx, r)
	case StateRouting:
		o.route(ctx, r)
		return StateResolvingEntities, nil
	case StateResolvingEntities:
		o.resolve(ctx, r)
		return StateWritingDeal, nil
	case StateWritingDeal:
		return StateWritingNote, o.writeDeal(ctx, r)
	case StateWritingNote:
		o.writeNote(ctx, r)
		return StateNotifying, nil
	case StateNotifying:
		o.notify(ctx, r)
		o.record(ctx, r, ledger.OutcomeDealCreated)
		return StateDone, nil
	default:
		return StateDone, apperr.Internal("unknown pipeline state").WithOp(string(state))
	}
}

func (o *Orchestrator) validate(ctx context.Context, sub Submission) error {
	if err := o.deps.Validator.Struct(sub); err != nil {
		if validator.MissingRequired(err) {
			return validationError(msgMissingFields)
		}
		return validationError(msgInvalidEmail)
	}
	if o.opts.RequireCorporateEmail {
		if err := o.deps.Validator.Var(sub.Email, validator.TagCorporateEmail); err != nil {
			return validationError(msgCorporate)
		}
	}
	// Forms that do not embed the widget send no token and are not challenged.
	if sub.CaptchaToken == "" {
		return nil
	}
	if err := o.deps.Captcha.Verify(ctx, sub.CaptchaToken, sub.RemoteIP); err != nil {
		if errors.Is(err, captcha.ErrRejected) {
			return validationError(msgCaptcha)
		}
		// An unreachable verifier should not lose a lead.
		o.deps.Log.WithContext(ctx).Warn("captcha verification unavailable", "error", err)
	}
	return nil
}

func (o *Orchestrator) score(ctx context.Context, r *run) error {
	sub := r.sub
	var (
		verdict scoring.Verdict
		err     error
	)

	switch {
	case len(sub.Answers) > 0:
		verdict, err = o.deps.Scorer.Evaluate(sub.Answers)
		if err == nil && sub.Qualifies != nil && *sub.Qualifies != verdict.Qualifies {
			o.deps.Log.WithContext(ctx).Warn("client verdict disagrees with server score",
				"client_qualifies", *sub.Qualifies,
				"server_qualifies", verdict.Qualifies,
				"low_score_count", verdict.LowScoreCount,
			)
		}
	case sub.Score1Count != nil:
		verdict, err = o.deps.Scorer.FromLowScoreCount(*sub.Score1Count)
	case sub.Qualifies != nil:
		verdict = scoring.FromQualifies(*sub.Qualifies)
	default:
		err = validationError(msgNoAnswers)
	}
	if err != nil {
		return err
	}

	r.verdict = verdict
	o.deps.Metrics.observeVerdict(verdict.Qualifies)
	return nil
}

func (o *Orchestrator) route(ctx context.Context, r *run) {
	r.target = o.deps.Router.Resolve(r.sub.Country)
	if r.target.Degraded {
		o.deps.Log.WithContext(ctx).Info("country routed to fallback",
			"input", r.sub.Country,
			"country", r.target.CountryCode,
			"pipeline_id", r.target.PipelineID,
		)
	}
}

func (o *Orchestrator) resolve(ctx context.Context, r *run) {
	r.entities = o.deps.Resolver.ResolveEntities(ctx, r.sub.Name, r.sub.Email, r.sub.Company)
	if r.entities.PersonErr != nil {
		o.degrade(ctx, r, stepPerson, r.sub.Email, r.entities.PersonErr)
	}
	if r.entities.OrgErr != nil {
		o.degrade(ctx, r, stepOrganization, r.sub.Company, r.entities.OrgErr)
	}
}

func (o *Orchestrator) writeDeal(ctx context.Context, r *run) error {
	id, err := o.deps.Writer.CreateDeal(ctx, crmsync.DealInput{
		Name:     r.sub.Name,
		PersonID: r.entities.PersonID,
		OrgID:    r.entities.OrgID,
		Target:   r.target,
		Industry: r.sub.answerValue("industria"),
		ERP:      r.sub.answerValue("erp"),
	})
	if err != nil {
		o.record(ctx, r, ledger.OutcomeDealFailed)
		return apperr.Wrap(apperr.KindInternal, msgDealFailed, err).WithOp("intake.WriteDeal")
	}
	r.dealID = id
	return nil
}

func (o *Orchestrator) writeNote(ctx context.Context, r *run) {
	err := o.deps.Writer.AttachNote(ctx, r.dealID, r.entities.PersonID, r.entities.OrgID, crmsync.NoteInput{
		Name:         r.sub.Name,
		Company:      r.sub.Company,
		Email:        r.sub.Email,
		CountryCode:  r.target.CountryCode,
		CountryInput: r.sub.Country,
		Verdict:      r.verdict,
		ResultText:   r.sub.ResultText,
		UTM:          r.sub.UTM,
		Answers:      r.sub.Answers,
	})
	if err != nil {
		o.degrade(ctx, r, stepNote, r.sub.Email, err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, r *run) {
	to := notification.Recipient{Name: r.sub.Name, Email: r.sub.Email}
	if err := o.deps.Notifier.Dispatch(ctx, to, r.verdict, r.sub.Origin); err != nil {
		o.degrade(ctx, r, stepNotification, r.sub.Email, &NotificationError{Email: r.sub.Email, Err: err})
	}
}

// record writes the ledger row. A ledger failure is only logged.
func (o *Orchestrator) record(ctx context.Context, r *run, outcome string) {
	err := o.deps.Ledger.Record(ctx, ledger.Entry{
		ID:            r.id,
		Email:         r.sub.Email,
		Company:       r.sub.Company,
		CountryCode:   r.target.CountryCode,
		PipelineID:    r.target.PipelineID,
		StageID:       r.target.StageID,
		LowScoreCount: r.verdict.LowScoreCount,
		Qualifies:     r.verdict.Qualifies,
		PersonID:      r.entities.PersonID,
		OrgID:         r.entities.OrgID,
		DealID:        r.dealID,
		Outcome:       outcome,
		Degraded:      r.degraded,
	})
	if err != nil {
		o.deps.Metrics.observeDegraded(stepLedger)
		o.deps.Log.WithContext(ctx).DatabaseError("ledger.Record", err)
	}
}

func (o *Orchestrator) degrade(ctx context.Context, r *run, step, key string, err error) {
	r.degraded = append(r.degraded, step)
	o.deps.Metrics.observeDegraded(step)
	o.deps.Log.WithContext(ctx).StepDegraded(step, key, err)
}
