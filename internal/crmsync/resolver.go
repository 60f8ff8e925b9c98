// Package crmsync mirrors a qualified submission into the CRM: it finds or
// creates the contact and company, creates the deal, and attaches the note.
package crmsync

import (
	"context"
	"strings"
	"time"

	"diagnostico_backend/internal/pipedrive"
	"diagnostico_backend/platform/logger"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

const (
	entityPerson       = "person"
	entityOrganization = "organization"

	defaultSearchBackoff = 200 * time.Millisecond
)

// CRM is the subset of the Pipedrive client used here.
type CRM interface {
	Search(ctx context.Context, entity pipedrive.Entity, term string) (int64, bool, error)
	Create(ctx context.Context, entity pipedrive.Entity, fields map[string]any) (int64, error)
	CreateNote(ctx context.Context, note pipedrive.Note) (int64, error)
}

// Entities is the outcome of resolving both parties of a submission.
// A zero id means the entity is absent: either skipped or failed.
type Entities struct {
	PersonID  int64
	OrgID     int64
	PersonErr error
	OrgErr    error
}

// Resolver performs find-or-create by natural key. Searches are retried on
// transient failures; creates never are.
type Resolver struct {
	crm     CRM
	retries uint64
	backoff time.Duration
	log     *logger.Logger
}

// NewResolver returns a resolver that retries each search up to retries extra times.
func NewResolver(crm CRM, retries uint64, log *logger.Logger) *Resolver {
	return &Resolver{crm: crm, retries: retries, backoff: defaultSearchBackoff, log: log}
}

// WithBackoff overrides the base delay between search attempts.
func (r *Resolver) WithBackoff(d time.Duration) *Resolver {
	r.backoff = d
	return r
}

// ResolveEntities resolves the person and the organization concurrently.
// One failing never cancels the other.
func (r *Resolver) ResolveEntities(ctx context.Context, name, email, company string) Entities {
	var out Entities
	var g errgroup.Group

	g.Go(func() error {
		out.PersonID, out.PersonErr = r.ResolvePerson(ctx, name, email)
		return nil
	})
	g.Go(func() error {
		out.OrgID, out.OrgErr = r.ResolveOrganization(ctx, company)
		return nil
	})
	_ = g.Wait()

	return out
}

// ResolvePerson returns the id of the person owning email, creating one only
// after a search confirmed there is none.
func (r *Resolver) ResolvePerson(ctx context.Context, name, email string) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	id, found, err := r.search(ctx, pipedrive.EntityPerson, email)
	if err != nil {
		return 0, &EntityResolutionError{Entity: entityPerson, Key: email, Op: "search", Err: err}
	}
	if found {
		r.log.Debug("reusing crm person", "person_id", id)
		return id, nil
	}

	displayName := strings.TrimSpace(name)
	if displayName == "" {
		displayName = email
	}

	id, err = r.crm.Create(ctx, pipedrive.EntityPerson, map[string]any{
		"name": displayName,
		"email": []map[string]any{
			{"value": email, "primary": true, "label": "work"},
		},
	})
	if err != nil {
		return 0, &EntityResolutionError{Entity: entityPerson, Key: email, Op: "create", Err: err}
	}
	r.log.Info("created crm person", "person_id", id)
	return id, nil
}

// ResolveOrganization works like ResolvePerson keyed by exact name. A blank
// company is skipped and returns 0 with no error.
func (r *Resolver) ResolveOrganization(ctx context.Context, company string) (int64, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return 0, nil
	}

	id, found, err := r.search(ctx, pipedrive.EntityOrganization, company)
	if err != nil {
		return 0, &EntityResolutionError{Entity: entityOrganization, Key: company, Op: "search", Err: err}
	}
	if found {
		r.log.Debug("reusing crm organization", "org_id", id)
		return id, nil
	}

	id, err = r.crm.Create(ctx, pipedrive.EntityOrganization, map[string]any{"name": company})
	if err != nil {
		return 0, &EntityResolutionError{Entity: entityOrganization, Key: company, Op: "create", Err: err}
	}
	r.log.Info("created crm organization", "org_id", id)
	return id, nil
}

func (r *Resolver) search(ctx context.Context, entity pipedrive.Entity, term string) (int64, bool, error) {
	var (
		id    int64
		found bool
	)

	backoff := retry.WithMaxRetries(r.retries, retry.NewExponential(r.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		id, found, err = r.crm.Search(ctx, entity, term)
		if err != nil && pipedrive.IsRetryable(err) {
			r.log.Debug("retrying crm search", "entity", string(entity), "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return id, found, nil
}
