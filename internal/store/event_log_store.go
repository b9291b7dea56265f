package store

import "context"

// EventLogStore records the per-event outcome of every webhook delivery,
// accepted or rejected. Write-once; the front door writes it best-effort.
type EventLogStore struct {
	db DB
}

type EventLogInput struct {
	ID           string
	Platform     string
	ConfigID     string
	SourceLeadID string
	Outcome      string
	Detail       string
}

func NewEventLogStore(db DB) *EventLogStore {
	return &EventLogStore{db: db}
}

func (s *EventLogStore) Record(ctx context.Context, input EventLogInput) error {
	query := `
		INSERT INTO webhook_events (id, platform, config_id, source_lead_id, outcome, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		input.ID, input.Platform, input.ConfigID, input.SourceLeadID, input.Outcome, input.Detail,
	)
	return err
}

func (s *EventLogStore) List(ctx context.Context, platform string, limit, offset int) ([]map[string]any, error) {
	type row struct {
		ID           string `db:"id"`
		Platform     string `db:"platform"`
		ConfigID     string `db:"config_id"`
		SourceLeadID string `db:"source_lead_id"`
		Outcome      string `db:"outcome"`
		Detail       string `db:"detail"`
		CreatedAt    any    `db:"created_at"`
	}
	var rows []row
	query := `
		SELECT id, platform, config_id, source_lead_id, outcome, detail, created_at
		FROM webhook_events
	`
	args := []any{}
	if platform != "" {
		query += " WHERE platform = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, platform, limit, offset)
	} else {
		query += " ORDER BY created_at DESC LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"id":             r.ID,
			"platform":       r.Platform,
			"config_id":      r.ConfigID,
			"source_lead_id": r.SourceLeadID,
			"outcome":        r.Outcome,
			"detail":         r.Detail,
			"created_at":     r.CreatedAt,
		})
	}
	return out, nil
}
