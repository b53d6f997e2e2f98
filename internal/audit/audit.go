package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"edrs-docstore/internal/auth"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ActorType represents the type of entity performing an action
type ActorType string

const (
	ActorTypeUser      ActorType = "user"
	ActorTypeAnonymous ActorType = "anonymous"
)

// ResourceType represents the type of resource being acted upon
type ResourceType string

const (
	ResourceTypeDocument ResourceType = "document"
	ResourceTypeStorage  ResourceType = "storage"
)

// Action represents the action being performed
type Action string

const (
	ActionUpload Action = "upload"
	ActionRead   Action = "read"
	ActionList   Action = "list"
	ActionSign   Action = "sign"
	ActionBrowse Action = "browse"
	ActionStats  Action = "stats"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

const writeTimeout = 2 * time.Second

var writeFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "edrs_audit_write_failures_total",
	Help: "Audit events that could not be persisted.",
})

// Event represents an audit event
type Event struct {
	ID           uuid.UUID
	EventType    string
	ActorType    ActorType
	ActorID      *int64
	ResourceType ResourceType
	ResourceID   *uuid.UUID
	StorageKey   string
	Action       Action
	Status       Status
	IPAddress    string
	UserAgent    string
	RequestID    string
	Metadata     map[string]any
	ErrorMessage string
	CreatedAt    time.Time
}

// Target names what an event is about. ResourceID is nil for key-addressed requests.
type Target struct {
	Type       ResourceType
	ResourceID *uuid.UUID
	StorageKey string
}

// DB is the subset of pgxpool.Pool the logger needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Logger handles audit logging
type Logger struct {
	db      DB
	pending sync.WaitGroup
}

// NewLogger creates a new audit logger
func NewLogger(db DB) *Logger {
	return &Logger{db: db}
}

// Log records an audit event
func (l *Logger) Log(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var metadataJSON []byte
	var err error
	if event.Metadata != nil {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, actor_type, actor_id, resource_type, resource_id, storage_key,
			action, status, ip_address, user_agent, request_id, metadata, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = l.db.Exec(ctx, query,
		event.ID,
		event.EventType,
		event.ActorType,
		event.ActorID,
		event.ResourceType,
		event.ResourceID,
		event.StorageKey,
		event.Action,
		event.Status,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		metadataJSON,
		event.ErrorMessage,
		event.CreatedAt,
	)

	return err
}

// Record writes an event built from the request asynchronously. The request never waits
// on the audit table.
func (l *Logger) Record(c echo.Context, target Target, action Action, status Status, metadata map[string]any) {
	l.dispatch(c, newEvent(c, target, action, status, metadata))
}

// RecordError records a failed or denied action with the error text attached.
func (l *Logger) RecordError(c echo.Context, target Target, action Action, status Status, err error) {
	event := newEvent(c, target, action, status, map[string]any{"error": err.Error()})
	event.ErrorMessage = err.Error()
	l.dispatch(c, event)
}

// Wait blocks until pending writes finish or ctx is done.
func (l *Logger) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Logger) dispatch(c echo.Context, event *Event) {
	out := c.Logger().Output()

	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := l.Log(ctx, event); err != nil {
			writeFailures.Inc()
			fmt.Fprintf(out, "audit log failed: %v\n", err)
		}
	}()
}

func newEvent(c echo.Context, target Target, action Action, status Status, metadata map[string]any) *Event {
	event := &Event{
		EventType:    string(action) + "_" + string(target.Type),
		ActorType:    ActorTypeAnonymous,
		ResourceType: target.Type,
		ResourceID:   target.ResourceID,
		StorageKey:   target.StorageKey,
		Action:       action,
		Status:       status,
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
		RequestID:    c.Response().Header().Get(echo.HeaderXRequestID),
		Metadata:     metadata,
	}

	if p, err := auth.GetPrincipal(c); err == nil {
		id := p.ID
		event.ActorType = ActorTypeUser
		event.ActorID = &id
	}

	return event
}

// QueryFilter narrows Query results
type QueryFilter struct {
	ActorID      *int64
	ResourceType *ResourceType
	ResourceID   *uuid.UUID
	StorageKey   string
	Action       *Action
	Status       *Status
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
	Offset       int
}

// Query retrieves audit events
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]*Event, error) {
	query := `
		SELECT id, event_type, actor_type, actor_id, resource_type, resource_id, storage_key,
		       action, status, ip_address, user_agent, request_id, metadata, error_message, created_at
		FROM audit_events
		WHERE 1=1
	`
	args := []any{}
	argCount := 1

	if filter.ActorID != nil {
		query += fmt.Sprintf(" AND actor_id = $%d", argCount)
		args = append(args, *filter.ActorID)
		argCount++
	}

	if filter.ResourceType != nil {
		query += fmt.Sprintf(" AND resource_type = $%d", argCount)
		args = append(args, *filter.ResourceType)
		argCount++
	}

	if filter.ResourceID != nil {
		query += fmt.Sprintf(" AND resource_id = $%d", argCount)
		args = append(args, *filter.ResourceID)
		argCount++
	}

	if filter.StorageKey != "" {
		query += fmt.Sprintf(" AND storage_key = $%d", argCount)
		args = append(args, filter.StorageKey)
		argCount++
	}

	if filter.Action != nil {
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, *filter.Action)
		argCount++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filter.Status)
		argCount++
	}

	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.StartTime)
		argCount++
	}

	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filter.EndTime)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, limit)
	argCount++

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		var metadataJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.ActorType,
			&event.ActorID,
			&event.ResourceType,
			&event.ResourceID,
			&event.StorageKey,
			&event.Action,
			&event.Status,
			&event.IPAddress,
			&event.UserAgent,
			&event.RequestID,
			&metadataJSON,
			&event.ErrorMessage,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, err
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}
