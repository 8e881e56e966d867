package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the pgx-backed Store adapter. It is the kernel's only
// concrete implementation of Store used outside of tests; schema is managed
// externally via golang-migrate (see migrations/).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a connection pool against dsn. Callers own the
// returned pool's lifecycle via Close.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func (s *PostgresStore) CreateProject(ctx context.Context, p *Project) error {
	settings, err := marshalJSON(p.Settings)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO projects (id, name, tags, settings, created_at) VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.Name, p.Tags, settings, p.CreatedAt)
	return err
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, name, tags, settings, created_at FROM projects WHERE id=$1`, id)
	var p Project
	var settings []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Tags, &settings, &p.CreatedAt); err != nil {
		return nil, translateNoRows(err)
	}
	if err := json.Unmarshal(settings, &p.Settings); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, r *Run) error {
	meta, err := marshalJSON(r.Meta)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, project_id, query_text, mode, purpose, parent_run_id, status, meta, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.ID, r.ProjectID, r.QueryText, r.Mode, r.Purpose, r.ParentRunID, r.Status, meta, r.CreatedAt)
	return err
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project_id, query_text, mode, purpose, parent_run_id, status, meta, created_at
		 FROM runs WHERE id=$1`, id)
	var r Run
	var meta []byte
	if err := row.Scan(&r.ID, &r.ProjectID, &r.QueryText, &r.Mode, &r.Purpose, &r.ParentRunID, &r.Status, &meta, &r.CreatedAt); err != nil {
		return nil, translateNoRows(err)
	}
	if err := json.Unmarshal(meta, &r.Meta); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, id, status string) error {
	_, err := s.pool.Exec(ctx, `UPDATE runs SET status=$2 WHERE id=$1`, id, status)
	return err
}

func (s *PostgresStore) ListActiveRuns(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM runs WHERE status IN ('running','waiting_approval','paused')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) UpdateRunMetaAndMode(ctx context.Context, id string, meta map[string]any, mode, purpose string) error {
	b, err := marshalJSON(meta)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `UPDATE runs SET meta=$2, mode=$3, purpose=$4 WHERE id=$1`, id, b, mode, purpose)
	return err
}

func (s *PostgresStore) CreatePlanSteps(ctx context.Context, steps []*PlanStep) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, st := range steps {
		inputs, err := marshalJSON(st.Inputs)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO plan_steps (id, run_id, step_index, kind, skill_name, inputs, depends_on, status,
			 success_criteria, danger_flags, requires_approval, artifacts_expected)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			st.ID, st.RunID, st.StepIndex, st.Kind, st.SkillName, inputs, st.DependsOn, st.Status,
			st.SuccessCriteria, st.DangerFlags, st.RequiresApproval, st.ArtifactsExpected)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListPlanSteps(ctx context.Context, runID string) ([]*PlanStep, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, step_index, kind, skill_name, inputs, depends_on, status,
		 success_criteria, danger_flags, requires_approval, artifacts_expected
		 FROM plan_steps WHERE run_id=$1 ORDER BY step_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PlanStep
	for rows.Next() {
		var st PlanStep
		var inputs []byte
		if err := rows.Scan(&st.ID, &st.RunID, &st.StepIndex, &st.Kind, &st.SkillName, &inputs,
			&st.DependsOn, &st.Status, &st.SuccessCriteria, &st.DangerFlags, &st.RequiresApproval,
			&st.ArtifactsExpected); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(inputs, &st.Inputs); err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdatePlanStepStatus(ctx context.Context, id, status string) error {
	_, err := s.pool.Exec(ctx, `UPDATE plan_steps SET status=$2 WHERE id=$1`, id, status)
	return err
}

func (s *PostgresStore) CreateTask(ctx context.Context, t *Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, run_id, step_id, attempt, status) VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.RunID, t.StepID, t.Attempt, t.Status)
	return err
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, run_id, step_id, attempt, status FROM tasks WHERE id=$1`, id)
	var t Task
	if err := row.Scan(&t.ID, &t.RunID, &t.StepID, &t.Attempt, &t.Status); err != nil {
		return nil, translateNoRows(err)
	}
	return &t, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, runID string) ([]*Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, run_id, step_id, attempt, status FROM tasks WHERE run_id=$1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.RunID, &t.StepID, &t.Attempt, &t.Status); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, id, status string) error {
	_, err := s.pool.Exec(ctx, `UPDATE tasks SET status=$2 WHERE id=$1`, id, status)
	return err
}

func (s *PostgresStore) ActiveTaskForStep(ctx context.Context, runID, stepID string) (*Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, run_id, step_id, attempt, status FROM tasks
		 WHERE run_id=$1 AND step_id=$2 AND status IN ('created','running','waiting_approval')
		 ORDER BY attempt DESC LIMIT 1`, runID, stepID)
	var t Task
	if err := row.Scan(&t.ID, &t.RunID, &t.StepID, &t.Attempt, &t.Status); err != nil {
		return nil, translateNoRows(err)
	}
	return &t, nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *Event) (*Event, error) {
	payload, err := marshalJSON(e.Payload)
	if err != nil {
		return nil, err
	}
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO events (run_id, task_id, step_id, type, message, payload, level, ts)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		e.RunID, e.TaskID, e.StepID, e.Type, e.Message, payload, e.Level, e.TS)
	if err := row.Scan(&e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, runID string, limit int) ([]*Event, error) {
	return s.ListEventsSince(ctx, runID, 0, limit)
}

func (s *PostgresStore) ListEventsSince(ctx context.Context, runID string, afterID int64, limit int) ([]*Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, task_id, step_id, type, message, payload, level, ts
		 FROM events WHERE run_id=$1 AND id > $2 ORDER BY id ASC LIMIT $3`,
		runID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Event
	for rows.Next() {
		var e Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.TaskID, &e.StepID, &e.Type, &e.Message, &payload, &e.Level, &e.TS); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateApproval(ctx context.Context, a *Approval) error {
	actions, err := marshalJSON(a.ProposedActions)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO approvals (id, run_id, task_id, scope, title, description, proposed_actions, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.RunID, a.TaskID, a.Scope, a.Title, a.Description, actions, a.Status)
	return err
}

func (s *PostgresStore) GetApproval(ctx context.Context, id string) (*Approval, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, run_id, task_id, scope, title, description, proposed_actions, status, decision, decided_by, decided_at
		 FROM approvals WHERE id=$1`, id)
	return scanApproval(row)
}

func (s *PostgresStore) ListApprovals(ctx context.Context, runID string) ([]*Approval, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, task_id, scope, title, description, proposed_actions, status, decision, decided_by, decided_at
		 FROM approvals WHERE run_id=$1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Approval
	for rows.Next() {
		a, err := scanApprovalRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateApprovalStatus is a no-op when the approval is already terminal —
// deciding a terminal approval twice must never overwrite the first decision
// (spec.md §3 invariant, §8 idempotence property).
func (s *PostgresStore) UpdateApprovalStatus(ctx context.Context, id, status, decision, decidedBy string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE approvals SET status=$2, decision=$3, decided_by=$4, decided_at=now()
		 WHERE id=$1 AND status='pending'`,
		id, status, decision, decidedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrApprovalTerminal
	}
	return nil
}

func (s *PostgresStore) ExpirePendingApprovalsForRun(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE approvals SET status='expired', decided_at=now() WHERE run_id=$1 AND status='pending'`, runID)
	return err
}

func (s *PostgresStore) ReapOrphanedRunningTasks(ctx context.Context, activeRunIDs []string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status='failed' WHERE status='running' AND NOT (run_id = ANY($1))`,
		activeRunIDs)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) InsertSources(ctx context.Context, runID string, sources []*Source) error {
	for _, src := range sources {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO sources (id, run_id, url, title, domain, snippet, retrieved_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 ON CONFLICT (run_id, url) DO NOTHING`,
			src.ID, runID, src.URL, src.Title, src.Domain, src.Snippet, src.RetrievedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ListSources(ctx context.Context, runID string) ([]*Source, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, url, title, domain, snippet, retrieved_at FROM sources WHERE run_id=$1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Source
	for rows.Next() {
		var sr Source
		if err := rows.Scan(&sr.ID, &sr.RunID, &sr.URL, &sr.Title, &sr.Domain, &sr.Snippet, &sr.RetrievedAt); err != nil {
			return nil, err
		}
		out = append(out, &sr)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertFacts(ctx context.Context, runID string, facts []*Fact) error {
	for _, f := range facts {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO facts (id, run_id, content, source) VALUES ($1,$2,$3,$4)`,
			f.ID, runID, f.Content, f.Source); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ListFacts(ctx context.Context, runID string) ([]*Fact, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, run_id, content, source FROM facts WHERE run_id=$1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.ID, &f.RunID, &f.Content, &f.Source); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertArtifacts(ctx context.Context, runID string, artifacts []*Artifact) error {
	for _, a := range artifacts {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO artifacts (id, run_id, kind, content_uri, created_at) VALUES ($1,$2,$3,$4,$5)
			 ON CONFLICT (run_id, content_uri) DO NOTHING`,
			a.ID, runID, a.Kind, a.ContentURI, a.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ListArtifacts(ctx context.Context, runID string) ([]*Artifact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, kind, content_uri, created_at FROM artifacts WHERE run_id=$1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.RunID, &a.Kind, &a.ContentURI, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListConflicts(ctx context.Context, runID string) ([]*Conflict, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, description, open FROM conflicts WHERE run_id=$1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Conflict
	for rows.Next() {
		var c Conflict
		if err := rows.Scan(&c.ID, &c.RunID, &c.Description, &c.Open); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateConflict(ctx context.Context, c *Conflict) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conflicts (id, run_id, description, open) VALUES ($1,$2,$3,true)`,
		c.ID, c.RunID, c.Description)
	return err
}

func (s *PostgresStore) ResolveConflict(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE conflicts SET open=false WHERE id=$1`, id)
	return err
}

func (s *PostgresStore) CreateUserMemory(ctx context.Context, title, content string, tags []string, source string, meta MemoryMeta) (*UserMemory, error) {
	if len(content) > maxUserMemoryContentChars {
		return nil, ErrContentTooLong
	}
	metaJSON, err := marshalJSON(meta)
	if err != nil {
		return nil, err
	}
	um := &UserMemory{Title: title, Content: content, Tags: tags, Source: source, Meta: meta, CreatedAt: time.Now().UTC()}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO user_memories (title, content, tags, source, meta, created_at, is_deleted)
		 VALUES ($1,$2,$3,$4,$5,$6,false) RETURNING id`,
		title, content, tags, source, metaJSON, um.CreatedAt)
	if err := row.Scan(&um.ID); err != nil {
		return nil, err
	}
	return um, nil
}

// maxUserMemoryContentChars bounds UserMemory.Content; kept in sync with
// config.MemoryConfig.MaxContentChars by callers that pass a configured cap
// in before constructing the store (the Store interface itself has no
// dependency on pkg/config to avoid an import cycle).
const maxUserMemoryContentChars = 20000

func (s *PostgresStore) ListUserMemories(ctx context.Context, limit int) ([]*UserMemory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, tags, pinned, source, meta, created_at, is_deleted
		 FROM user_memories WHERE is_deleted=false ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserMemories(rows)
}

func (s *PostgresStore) SearchUserMemories(ctx context.Context, query string, limit int) ([]*UserMemory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, tags, pinned, source, meta, created_at, is_deleted
		 FROM user_memories WHERE is_deleted=false AND (content ILIKE $1 OR title ILIKE $1)
		 ORDER BY created_at DESC LIMIT $2`, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserMemories(rows)
}

func (s *PostgresStore) DeleteUserMemory(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE user_memories SET is_deleted=true WHERE id=$1`, id)
	return err
}

func (s *PostgresStore) GetSessionTokenHash(ctx context.Context) (*SessionTokenHash, error) {
	row := s.pool.QueryRow(ctx, `SELECT token_hash, salt FROM session_token_hash LIMIT 1`)
	var h SessionTokenHash
	if err := row.Scan(&h.TokenHash, &h.Salt); err != nil {
		return nil, translateNoRows(err)
	}
	return &h, nil
}

func (s *PostgresStore) SetSessionTokenHash(ctx context.Context, hash SessionTokenHash) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_token_hash (id, token_hash, salt) VALUES (1,$1,$2)
		 ON CONFLICT (id) DO UPDATE SET token_hash=excluded.token_hash, salt=excluded.salt`,
		hash.TokenHash, hash.Salt)
	return err
}
