// Package hasura implements runlog.Logger against a Hasura GraphQL endpoint.
package hasura

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	graphql "github.com/hasura/go-graphql-client"

	"github.com/banshee-data/sweep-logger/internal/httputil"
	"github.com/banshee-data/sweep-logger/internal/monitoring"
	"github.com/banshee-data/sweep-logger/internal/runlog"
	"github.com/banshee-data/sweep-logger/internal/sweep"
)

// AdminSecretHeader carries the Hasura admin secret.
const AdminSecretHeader = "x-hasura-admin-secret"

const insertSweepMutation = `
mutation insert_new_sweep($grid_index: Int, $remaining_runs: Int, $metadata: jsonb, $parameter_choices: [parameter_choices_insert_input!]!) {
  insert_sweep_one(object: {grid_index: $grid_index, remaining_runs: $remaining_runs, metadata: $metadata, parameter_choices: {data: $parameter_choices}}) {
    id
  }
}`

// The field name is checked against runlog.ValidateField before formatting.
const incrementSweepMutation = `
mutation increment_sweep($sweep_id: Int!, $delta: Int!) {
  update_sweep(where: {id: {_eq: $sweep_id}}, _inc: {%[1]s: $delta}) {
    returning {
      %[1]s
    }
  }
}`

const addRunToSweepMutation = `
mutation add_run_to_sweep($metadata: jsonb = {}, $sweep_id: Int!, $charts: [chart_insert_input!] = []) {
  insert_run_one(object: {charts: {data: $charts}, metadata: $metadata, sweep_id: $sweep_id}) {
    id
    sweep {
      parameter_choices {
        Key
        choice
      }
    }
  }
  update_sweep(where: {id: {_eq: $sweep_id}}, _inc: {grid_index: 1}) {
    returning {
      grid_index
    }
  }
}`

const insertRunMutation = `
mutation insert_run($metadata: jsonb = {}, $charts: [chart_insert_input!] = []) {
  insert_run_one(object: {charts: {data: $charts}, metadata: $metadata}) {
    id
  }
}`

const updateMetadataMutation = `
mutation update_metadata($id: Int!, $metadata: jsonb!) {
  update_run(where: {id: {_eq: $id}}, _append: {metadata: $metadata}) {
    affected_rows
  }
}`

const runParametersQuery = `
query GetParameters($id: Int!) {
  run_by_pk(id: $id) {
    metadata(path: "parameters")
  }
}`

// Config configures a Logger.
type Config struct {
	Endpoint    string
	AdminSecret string
	// HTTPClient defaults to an httputil.NewClient with the default transport.
	HTTPClient *http.Client
}

// Logger talks to Hasura over GraphQL.
type Logger struct {
	client *graphql.Client
}

// New returns a Logger for cfg.Endpoint.
func New(cfg Config) (*Logger, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("graphql endpoint is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = httputil.NewClient(nil)
	}
	client := graphql.NewClient(cfg.Endpoint, hc)
	if cfg.AdminSecret != "" {
		secret := cfg.AdminSecret
		client = client.WithRequestModifier(func(r *http.Request) {
			r.Header.Set(AdminSecretHeader, secret)
		})
	}
	return &Logger{client: client}, nil
}

func (l *Logger) exec(ctx context.Context, op, query string, vars map[string]any, out any) error {
	monitoring.Debugf("graphql %s %v", op, vars)
	data, err := l.client.ExecRaw(ctx, query, vars)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

type parameterChoiceInput struct {
	Key    string `json:"Key"`
	Choice string `json:"choice"`
}

// CreateSweep inserts the sweep with its parameter choices.
func (l *Logger) CreateSweep(ctx context.Context, req runlog.CreateSweepRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	choices := make([]parameterChoiceInput, len(req.Choices))
	for i, c := range req.Choices {
		enc, err := encodeChoice(c.Choice)
		if err != nil {
			return 0, fmt.Errorf("parameter %q: %w", c.Key, err)
		}
		choices[i] = parameterChoiceInput{Key: c.Key, Choice: enc}
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	var resp struct {
		InsertSweepOne *struct {
			ID int64 `json:"id"`
		} `json:"insert_sweep_one"`
	}
	err := l.exec(ctx, "insert_new_sweep", insertSweepMutation, map[string]any{
		"grid_index":        req.InitialGridIndex(),
		"remaining_runs":    req.RemainingRuns,
		"metadata":          metadata,
		"parameter_choices": choices,
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", runlog.ErrRegistrar, err)
	}
	if resp.InsertSweepOne == nil {
		return 0, fmt.Errorf("%w: insert_sweep_one returned null", runlog.ErrRegistrar)
	}
	return resp.InsertSweepOne.ID, nil
}

// IncrementSweep applies an _inc mutation and returns the new value.
func (l *Logger) IncrementSweep(ctx context.Context, sweepID int64, field string, delta int64) (*int64, error) {
	if err := runlog.ValidateField(field); err != nil {
		return nil, err
	}
	var resp struct {
		UpdateSweep *struct {
			Returning []map[string]*int64 `json:"returning"`
		} `json:"update_sweep"`
	}
	err := l.exec(ctx, "increment_sweep", fmt.Sprintf(incrementSweepMutation, field), map[string]any{
		"sweep_id": sweepID,
		"delta":    delta,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.UpdateSweep == nil || len(resp.UpdateSweep.Returning) == 0 {
		return nil, fmt.Errorf("sweep %d: %w", sweepID, runlog.ErrNotFound)
	}
	return resp.UpdateSweep.Returning[0][field], nil
}

type chartInput struct {
	Spec json.RawMessage `json:"spec"`
}

// CreateRun inserts a run, joining it to a sweep when req.SweepID is set.
func (l *Logger) CreateRun(ctx context.Context, req runlog.CreateRunRequest) (runlog.Run, error) {
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	charts := make([]chartInput, len(req.Charts))
	for i, c := range req.Charts {
		charts[i] = chartInput{Spec: c}
	}
	vars := map[string]any{"metadata": metadata, "charts": charts}

	if req.SweepID == nil {
		var resp struct {
			InsertRunOne *struct {
				ID int64 `json:"id"`
			} `json:"insert_run_one"`
		}
		if err := l.exec(ctx, "insert_run", insertRunMutation, vars, &resp); err != nil {
			return runlog.Run{}, err
		}
		if resp.InsertRunOne == nil {
			return runlog.Run{}, errors.New("insert_run: insert_run_one returned null")
		}
		return runlog.Run{ID: resp.InsertRunOne.ID}, nil
	}

	vars["sweep_id"] = *req.SweepID
	var resp struct {
		InsertRunOne *struct {
			ID    int64 `json:"id"`
			Sweep *struct {
				ParameterChoices []struct {
					Key    string          `json:"Key"`
					Choice json.RawMessage `json:"choice"`
				} `json:"parameter_choices"`
			} `json:"sweep"`
		} `json:"insert_run_one"`
		UpdateSweep *struct {
			Returning []struct {
				GridIndex *int64 `json:"grid_index"`
			} `json:"returning"`
		} `json:"update_sweep"`
	}
	if err := l.exec(ctx, "add_run_to_sweep", addRunToSweepMutation, vars, &resp); err != nil {
		return runlog.Run{}, err
	}
	if resp.InsertRunOne == nil || resp.InsertRunOne.Sweep == nil ||
		resp.UpdateSweep == nil || len(resp.UpdateSweep.Returning) == 0 {
		return runlog.Run{}, fmt.Errorf("sweep %d: %w", *req.SweepID, runlog.ErrNotFound)
	}

	rs := &runlog.RunSweep{
		ID:        *req.SweepID,
		GridIndex: resp.UpdateSweep.Returning[0].GridIndex,
		Method:    sweep.Random,
	}
	if rs.GridIndex != nil {
		rs.Method = sweep.Grid
	}
	for _, pc := range resp.InsertRunOne.Sweep.ParameterChoices {
		spec, err := decodeChoice(pc.Choice)
		if err != nil {
			return runlog.Run{}, fmt.Errorf("parameter %q: %w", pc.Key, err)
		}
		rs.Choices = append(rs.Choices, sweep.ParamChoice{Key: pc.Key, Choice: spec})
	}
	return runlog.Run{ID: resp.InsertRunOne.ID, Sweep: rs}, nil
}

// UpdateMetadata appends patch to the run's metadata.
func (l *Logger) UpdateMetadata(ctx context.Context, runID int64, patch map[string]any) error {
	var resp struct {
		UpdateRun *struct {
			AffectedRows int `json:"affected_rows"`
		} `json:"update_run"`
	}
	err := l.exec(ctx, "update_metadata", updateMetadataMutation, map[string]any{
		"id":       runID,
		"metadata": patch,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.UpdateRun == nil || resp.UpdateRun.AffectedRows == 0 {
		return fmt.Errorf("run %d: %w", runID, runlog.ErrNotFound)
	}
	return nil
}

// RunParameters fetches metadata.parameters of a run.
func (l *Logger) RunParameters(ctx context.Context, runID int64) (map[string]any, error) {
	var resp struct {
		RunByPK *struct {
			Metadata json.RawMessage `json:"metadata"`
		} `json:"run_by_pk"`
	}
	if err := l.exec(ctx, "GetParameters", runParametersQuery, map[string]any{"id": runID}, &resp); err != nil {
		return nil, err
	}
	if resp.RunByPK == nil {
		return nil, fmt.Errorf("run %d: %w", runID, runlog.ErrNotFound)
	}
	return runlog.DecodeParameters(resp.RunByPK.Metadata)
}

// Close releases nothing; the HTTP client is shared.
func (l *Logger) Close() error {
	return nil
}

var _ runlog.Logger = (*Logger)(nil)
