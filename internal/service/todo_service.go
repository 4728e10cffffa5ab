package service

import (
	"context"
	"encoding/json"
	"time"

	"bead-inventory-service/internal/broker"
	"bead-inventory-service/internal/models"
	"bead-inventory-service/internal/store"
	"bead-inventory-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const todoSource = "todo"

// TodoService manages queued patterns: saved item lists awaiting
// consumption.
type TodoService struct {
	store  *store.Store
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewTodoService creates a new todo service
func NewTodoService(store *store.Store, events *broker.EventPublisher) *TodoService {
	return &TodoService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// TodoRequest creates or replaces a queued pattern.
type TodoRequest struct {
	Pattern           *string   `json:"pattern,omitempty"`
	PatternURL        string    `json:"patternUrl"`
	PatternKey        *string   `json:"patternKey,omitempty"`
	PatternCategoryID *int64    `json:"patternCategoryId,omitempty"`
	Items             []ItemQty `json:"items"`
}

// TodoView is the API shape of a queued pattern with its items decoded.
type TodoView struct {
	ID                int64             `json:"id"`
	Pattern           *string           `json:"pattern"`
	PatternURL        string            `json:"patternUrl"`
	PatternKey        *string           `json:"patternKey"`
	PatternCategoryID *int64            `json:"patternCategoryId"`
	Items             []models.TodoItem `json:"items"`
	TotalQty          int64             `json:"total"`
	CreatedAt         int64             `json:"createdAt"`
}

func todoView(t *models.TodoPattern) (*TodoView, error) {
	var items []models.TodoItem
	if err := json.Unmarshal([]byte(t.ItemsJSON), &items); err != nil {
		return nil, err
	}
	return &TodoView{
		ID:                t.ID,
		Pattern:           t.Pattern,
		PatternURL:        t.PatternURL,
		PatternKey:        t.PatternKey,
		PatternCategoryID: t.CategoryID,
		Items:             items,
		TotalQty:          t.TotalQty,
		CreatedAt:         t.CreatedAt.UnixMilli(),
	}, nil
}

// validate normalises the request into a storable pattern row. The item
// list is merged per code; the URL is the one mandatory field.
func (s *TodoService) validate(ctx context.Context, userID int64, req *TodoRequest) (*models.TodoPattern, error) {
	if req.PatternURL == "" {
		return nil, ErrMissingURL
	}
	if len(req.Items) > MaxBatchItems {
		return nil, ErrTooManyItems
	}
	merged, err := mergeItemQtys(req.Items)
	if err != nil {
		return nil, err
	}
	if req.PatternCategoryID != nil {
		if *req.PatternCategoryID <= 0 {
			return nil, ErrInvalidCategory
		}
		ok, err := s.store.CategoriesExist(ctx, userID, []int64{*req.PatternCategoryID})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCategoryNotFound
		}
	}

	items := make([]models.TodoItem, 0, len(merged))
	var total int64
	for _, d := range store.SortedDeltas(merged) {
		items = append(items, models.TodoItem{Code: d.Code, Qty: d.Delta})
		total += d.Delta
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	url := req.PatternURL
	if len(url) > maxURLLen {
		url = url[:maxURLLen]
	}
	return &models.TodoPattern{
		UserID:     userID,
		Pattern:    normText(req.Pattern, maxPatternLen),
		PatternURL: url,
		PatternKey: normText(req.PatternKey, maxURLLen),
		CategoryID: req.PatternCategoryID,
		ItemsJSON:  string(itemsJSON),
		TotalQty:   total,
	}, nil
}

// Add queues a new pattern and returns its id.
func (s *TodoService) Add(ctx context.Context, userID int64, req *TodoRequest) (int64, error) {
	t, err := s.validate(ctx, userID, req)
	if err != nil {
		return 0, err
	}
	return s.store.CreateTodoPattern(ctx, t)
}

// List returns the user's queued patterns, newest first.
func (s *TodoService) List(ctx context.Context, userID int64, categoryID *int64) ([]TodoView, error) {
	if categoryID != nil && *categoryID <= 0 {
		return nil, ErrInvalidCategory
	}
	rows, err := s.store.ListTodoPatterns(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	views := make([]TodoView, 0, len(rows))
	for i := range rows {
		v, err := todoView(&rows[i])
		if err != nil {
			s.logger.Warn("Skipping queued pattern with unreadable items",
				zap.Int64("id", rows[i].ID), zap.Error(err))
			continue
		}
		views = append(views, *v)
	}
	return views, nil
}

// Get returns one queued pattern.
func (s *TodoService) Get(ctx context.Context, userID, id int64) (*TodoView, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	t, err := s.store.GetTodoPattern(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return todoView(t)
}

// Update replaces a queued pattern's fields.
func (s *TodoService) Update(ctx context.Context, userID, id int64, req *TodoRequest) error {
	if id <= 0 {
		return ErrInvalidID
	}
	existing, err := s.store.GetTodoPattern(ctx, userID, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	t, err := s.validate(ctx, userID, req)
	if err != nil {
		return err
	}
	t.ID = id
	return s.store.UpdateTodoPattern(ctx, t)
}

// Delete removes a queued pattern. Deleting a missing one is a no-op.
func (s *TodoService) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return s.store.DeleteTodoPattern(ctx, userID, id)
}

// Complete converts a queued pattern into one consume batch and deletes
// it, atomically. The batch carries the pattern's labels and the "todo"
// source so the resulting record group points back at its origin.
func (s *TodoService) Complete(ctx context.Context, userID, id int64) (string, error) {
	ctx, span := util.StartSpan(ctx, "TodoService.Complete")
	defer span.End()

	if id <= 0 {
		return "", ErrInvalidID
	}
	t, err := s.store.GetTodoPattern(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", ErrNotFound
	}

	var items []models.TodoItem
	if err := json.Unmarshal([]byte(t.ItemsJSON), &items); err != nil {
		return "", err
	}
	merged := make(map[string]int64, len(items))
	for _, it := range items {
		code := normCode(it.Code)
		if code == "" || it.Qty <= 0 {
			return "", ErrInvalidQty
		}
		merged[code] += it.Qty
	}
	if len(merged) == 0 {
		return "", ErrEmptyItems
	}

	deltas := make(map[string]int64, len(merged))
	codes := make([]string, 0, len(merged))
	for _, d := range store.SortedDeltas(merged) {
		deltas[d.Code] = -d.Delta
		codes = append(codes, d.Code)
	}
	if err := validateCodes(ctx, s.store, userID, codes); err != nil {
		return "", err
	}

	batchID := models.NewBatchID()
	source := todoSource
	rows := make([]store.NewHistoryRow, 0, len(merged))
	for _, d := range store.SortedDeltas(merged) {
		rows = append(rows, store.NewHistoryRow{
			Code:       d.Code,
			Type:       models.HistoryTypeConsume,
			Qty:        d.Delta,
			Pattern:    t.Pattern,
			PatternURL: &t.PatternURL,
			PatternKey: t.PatternKey,
			CategoryID: t.CategoryID,
			Source:     &source,
			BatchID:    &batchID,
		})
	}

	start := time.Now()
	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.EnsureDefaultRowsTx(tx, userID, codes); err != nil {
			return err
		}
		if err := store.ApplyDeltasTx(tx, userID, store.SortedDeltas(deltas)); err != nil {
			return err
		}
		if err := store.InsertHistoryTx(tx, userID, rows); err != nil {
			return err
		}
		return store.DeleteTodoPatternTx(tx, userID, id)
	})
	util.MutationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	util.BatchesAppliedTotal.Inc()
	util.BatchItemsApplied.Observe(float64(len(rows)))

	event := &models.BatchAppliedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBatchApplied,
			UserID:    userID,
			Timestamp: time.Now(),
		},
		BatchID: batchID,
	}
	for _, r := range rows {
		event.Items = append(event.Items, models.EventItem{Code: r.Code, Type: r.Type, Qty: r.Qty})
	}
	if err := s.events.PublishBatchApplied(ctx, event); err != nil {
		s.logger.Error("Failed to publish batch-applied event", zap.Error(err))
	}
	return batchID, nil
}
