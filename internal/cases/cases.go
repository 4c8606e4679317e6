// Package cases provides domain-scoped CRUD over loan/withdrawal case
// records. Every call goes through the authenticated request client, so the
// record system enforces domain separation on its side.
package cases

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dxcis/loanwd/internal/client"
	"github.com/dxcis/loanwd/internal/servicenow"
)

// Table is the scoped case table.
const Table = servicenow.AppScope + "_case"

// Case is a loan or withdrawal case record. Fields are strings end to end;
// the table API serves display values as text.
type Case struct {
	SysID            string `json:"sys_id,omitempty"`
	Number           string `json:"number,omitempty"`
	Type             string `json:"type,omitempty"`
	State            string `json:"state,omitempty"`
	PolicyNumber     string `json:"policy_number,omitempty"`
	Amount           string `json:"amount,omitempty"`
	ShortDescription string `json:"short_description,omitempty"`
	OpenedAt         string `json:"opened_at,omitempty"`
}

// Service exposes case operations on top of an authenticated client.
type Service struct {
	api *client.Client
}

// NewService returns a case service bound to the given client.
func NewService(api *client.Client) *Service {
	return &Service{api: api}
}

// List returns cases matching the encoded query, newest first. A zero limit
// leaves the server default in place.
func (s *Service) List(ctx context.Context, query string, limit int) ([]Case, error) {
	params := url.Values{}
	params.Set("sysparm_display_value", "true")
	if query != "" {
		params.Set("sysparm_query", query)
	}
	if limit > 0 {
		params.Set("sysparm_limit", strconv.Itoa(limit))
	}

	var envelope servicenow.ResultEnvelope[[]Case]
	path := servicenow.TablePath(Table) + "?" + params.Encode()
	if err := s.api.Get(ctx, path, &envelope); err != nil {
		return nil, err
	}
	return envelope.Result, nil
}

// Get returns a single case by sys_id.
func (s *Service) Get(ctx context.Context, sysID string) (Case, error) {
	var envelope servicenow.ResultEnvelope[Case]
	if err := s.api.Get(ctx, s.recordPath(sysID), &envelope); err != nil {
		return Case{}, err
	}
	return envelope.Result, nil
}

// Create inserts a case and returns the stored record.
func (s *Service) Create(ctx context.Context, c Case) (Case, error) {
	var envelope servicenow.ResultEnvelope[Case]
	if err := s.api.Post(ctx, servicenow.TablePath(Table), c, &envelope); err != nil {
		return Case{}, err
	}
	return envelope.Result, nil
}

// Update applies a partial update to a case and returns the stored record.
func (s *Service) Update(ctx context.Context, sysID string, fields map[string]any) (Case, error) {
	var envelope servicenow.ResultEnvelope[Case]
	if err := s.api.Patch(ctx, s.recordPath(sysID), fields, &envelope); err != nil {
		return Case{}, err
	}
	return envelope.Result, nil
}

// Delete removes a case. No body is returned on success.
func (s *Service) Delete(ctx context.Context, sysID string) error {
	return s.api.Delete(ctx, s.recordPath(sysID))
}

func (s *Service) recordPath(sysID string) string {
	return fmt.Sprintf("%s/%s", servicenow.TablePath(Table), sysID)
}
