package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/haasonsaas/aidis/internal/errs"
	"github.com/haasonsaas/aidis/pkg/models"
)

// DecisionStore persists technical decisions.
type DecisionStore struct {
	gw *Gateway
}

// NewDecisionStore creates a decision store on the gateway.
func NewDecisionStore(gw *Gateway) *DecisionStore {
	return &DecisionStore{gw: gw}
}

const decisionColumns = `id, project_id, decision_type, title, description, rationale, impact_level,
	alternatives, problem_statement, affected_components, tags,
	outcome_status, outcome_notes, lessons_learned, decision_date, created_at, updated_at`

// Create inserts a new decision.
func (s *DecisionStore) Create(ctx context.Context, decision *models.Decision) error {
	if decision == nil {
		return errs.E(errs.KindInvalidParams, "decision is required")
	}
	if decision.ID == "" {
		decision.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if decision.CreatedAt.IsZero() {
		decision.CreatedAt = now
	}
	decision.UpdatedAt = now
	if decision.DecisionDate.IsZero() {
		decision.DecisionDate = now
	}
	if decision.OutcomeStatus == "" {
		decision.OutcomeStatus = models.OutcomeUnknown
	}

	alternatives, err := json.Marshal(decision.AlternativesConsidered)
	if err != nil {
		return errs.Wrap(errs.KindInvalidParams, err, "marshal alternatives")
	}

	_, err = s.gw.db.ExecContext(ctx,
		`INSERT INTO decisions (`+decisionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		decision.ID,
		decision.ProjectID,
		string(decision.Type),
		decision.Title,
		decision.Description,
		decision.Rationale,
		string(decision.ImpactLevel),
		alternatives,
		decision.ProblemStatement,
		pq.Array(decision.AffectedComponents),
		pq.Array(decision.Tags),
		string(decision.OutcomeStatus),
		decision.OutcomeNotes,
		decision.LessonsLearned,
		decision.DecisionDate,
		decision.CreatedAt,
		decision.UpdatedAt,
	)
	if err != nil {
		return MapError(err, "create decision")
	}
	return nil
}

// Get retrieves a decision by ID within a project.
func (s *DecisionStore) Get(ctx context.Context, decisionID, projectID string) (*models.Decision, error) {
	row := s.gw.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE id = $1 AND project_id = $2`,
		decisionID, projectID)
	decision, err := scanDecision(row)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.E(errs.KindNotFound, "decision %q not found", decisionID)
		}
		return nil, err
	}
	return decision, nil
}

// DecisionFilter restricts a decision search.
type DecisionFilter struct {
	ProjectID string
	Query     string
	Type      models.DecisionType
	Impact    models.ImpactLevel
	Status    models.OutcomeStatus
	Tags      []string
	Limit     int
}

// Search returns decisions matching the filter, newest first. The free-text
// query matches title, description, rationale and problem statement.
func (s *DecisionStore) Search(ctx context.Context, filter DecisionFilter) ([]*models.Decision, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	args := []any{filter.ProjectID}
	where := []string{"project_id = $1"}

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := strconv.Itoa(len(args))
		where = append(where,
			`(title ILIKE $`+n+` OR description ILIKE $`+n+` OR rationale ILIKE $`+n+` OR problem_statement ILIKE $`+n+`)`)
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, `decision_type = $`+strconv.Itoa(len(args)))
	}
	if filter.Impact != "" {
		args = append(args, string(filter.Impact))
		where = append(where, `impact_level = $`+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, `outcome_status = $`+strconv.Itoa(len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		where = append(where, `tags && $`+strconv.Itoa(len(args)))
	}

	args = append(args, filter.Limit)
	stmt := `SELECT ` + decisionColumns + ` FROM decisions
		 WHERE ` + strings.Join(where, " AND ") + `
		 ORDER BY decision_date DESC
		 LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.gw.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, MapError(err, "search decisions")
	}
	defer rows.Close()

	decisions := []*models.Decision{}
	for rows.Next() {
		decision, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, decision)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "search decisions")
	}
	return decisions, nil
}

// UpdateOutcome mutates only the outcome fields of a decision. Empty
// arguments leave their column unchanged.
func (s *DecisionStore) UpdateOutcome(ctx context.Context, decisionID, projectID string, status models.OutcomeStatus, notes, lessons string) error {
	res, err := s.gw.db.ExecContext(ctx,
		`UPDATE decisions SET
			outcome_status = COALESCE(NULLIF($1, ''), outcome_status),
			outcome_notes = COALESCE(NULLIF($2, ''), outcome_notes),
			lessons_learned = COALESCE(NULLIF($3, ''), lessons_learned),
			updated_at = $4
		 WHERE id = $5 AND project_id = $6`,
		string(status), notes, lessons, time.Now().UTC(), decisionID, projectID)
	if err != nil {
		return MapError(err, "update decision outcome")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return MapError(err, "update decision rows affected")
	}
	if rows == 0 {
		return errs.E(errs.KindNotFound, "decision %q not found", decisionID)
	}
	return nil
}

// Stats summarizes a project's decisions.
func (s *DecisionStore) Stats(ctx context.Context, projectID string) (*models.DecisionStats, error) {
	stats := &models.DecisionStats{
		ByType:   map[models.DecisionType]int{},
		ByStatus: map[models.OutcomeStatus]int{},
		ByImpact: map[models.ImpactLevel]int{},
	}

	rows, err := s.gw.db.QueryContext(ctx,
		`SELECT decision_type, impact_level, outcome_status, count(*)
		 FROM decisions WHERE project_id = $1
		 GROUP BY decision_type, impact_level, outcome_status`,
		projectID)
	if err != nil {
		return nil, MapError(err, "decision stats")
	}
	defer rows.Close()

	for rows.Next() {
		var decisionType, impact, status string
		var count int
		if err := rows.Scan(&decisionType, &impact, &status, &count); err != nil {
			return nil, MapError(err, "scan decision stats")
		}
		stats.TotalDecisions += count
		stats.ByType[models.DecisionType(decisionType)] += count
		stats.ByImpact[models.ImpactLevel(impact)] += count
		stats.ByStatus[models.OutcomeStatus(status)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "decision stats")
	}

	successful := stats.ByStatus[models.OutcomeSuccessful]
	concluded := successful + stats.ByStatus[models.OutcomeFailed] + stats.ByStatus[models.OutcomeMixed]
	if concluded > 0 {
		stats.SuccessRate = float64(successful) / float64(concluded) * 100
	}
	return stats, nil
}

// Delete removes a decision within a project.
func (s *DecisionStore) Delete(ctx context.Context, decisionID, projectID string) error {
	res, err := s.gw.db.ExecContext(ctx,
		`DELETE FROM decisions WHERE id = $1 AND project_id = $2`,
		decisionID, projectID)
	if err != nil {
		return MapError(err, "delete decision")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return MapError(err, "delete decision rows affected")
	}
	if rows == 0 {
		return errs.E(errs.KindNotFound, "decision %q not found", decisionID)
	}
	return nil
}

func scanDecision(row rowScanner) (*models.Decision, error) {
	var decision models.Decision
	var decisionType, impact, status string
	var alternativesBytes []byte
	var components, tags []string

	if err := row.Scan(
		&decision.ID,
		&decision.ProjectID,
		&decisionType,
		&decision.Title,
		&decision.Description,
		&decision.Rationale,
		&impact,
		&alternativesBytes,
		&decision.ProblemStatement,
		pq.Array(&components),
		pq.Array(&tags),
		&status,
		&decision.OutcomeNotes,
		&decision.LessonsLearned,
		&decision.DecisionDate,
		&decision.CreatedAt,
		&decision.UpdatedAt,
	); err != nil {
		return nil, MapError(err, "scan decision")
	}

	decision.Type = models.DecisionType(decisionType)
	decision.ImpactLevel = models.ImpactLevel(impact)
	decision.OutcomeStatus = models.OutcomeStatus(status)
	decision.AffectedComponents = components
	decision.Tags = tags
	if len(alternativesBytes) > 0 {
		if err := json.Unmarshal(alternativesBytes, &decision.AlternativesConsidered); err != nil {
			return nil, errs.Wrap(errs.KindInternal, err, "unmarshal alternatives")
		}
	}
	return &decision, nil
}
