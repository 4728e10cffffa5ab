package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bead-inventory-service/internal/broker"
	"bead-inventory-service/internal/idemcache"
	"bead-inventory-service/internal/models"
	"bead-inventory-service/internal/redisclient"
	"bead-inventory-service/internal/store"
	"bead-inventory-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const consumeStatsTTL = 5 * time.Minute

// InventoryService owns the ledger: quantity mutations, the history log
// append, and the inventory read views.
type InventoryService struct {
	store  *store.Store
	redis  *redisclient.Client
	cache  idemcache.Cache
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	store *store.Store,
	redis *redisclient.Client,
	cache idemcache.Cache,
	events *broker.EventPublisher,
) *InventoryService {
	return &InventoryService{
		store:  store,
		redis:  redis,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// AdjustRequest is a single-code mutation.
type AdjustRequest struct {
	Code              string  `json:"code"`
	Type              string  `json:"type"`
	Qty               int64   `json:"qty"`
	Pattern           *string `json:"pattern,omitempty"`
	PatternURL        *string `json:"patternUrl,omitempty"`
	PatternKey        *string `json:"patternKey,omitempty"`
	PatternCategoryID *int64  `json:"patternCategoryId,omitempty"`
	Source            *string `json:"source,omitempty"`
}

// BatchItem is one line of a batch mutation. Absent fields fall back to
// the request-level defaults.
type BatchItem struct {
	Code              string  `json:"code"`
	Qty               int64   `json:"qty"`
	Type              string  `json:"type,omitempty"`
	Pattern           *string `json:"pattern,omitempty"`
	PatternURL        *string `json:"patternUrl,omitempty"`
	PatternKey        *string `json:"patternKey,omitempty"`
	PatternCategoryID *int64  `json:"patternCategoryId,omitempty"`
	Source            *string `json:"source,omitempty"`
}

// AdjustBatchRequest is a multi-code mutation sharing one batch id.
type AdjustBatchRequest struct {
	Type              string      `json:"type,omitempty"`
	Pattern           *string     `json:"pattern,omitempty"`
	PatternURL        *string     `json:"patternUrl,omitempty"`
	PatternKey        *string     `json:"patternKey,omitempty"`
	PatternCategoryID *int64      `json:"patternCategoryId,omitempty"`
	Source            *string     `json:"source,omitempty"`
	Items             []BatchItem `json:"items"`
}

// batchRow is one validated, normalised history row to append.
type batchRow struct {
	store.NewHistoryRow
}

// Adjust applies a single-code mutation: a batch of size one under the
// hood, with its own fresh batch id.
func (s *InventoryService) Adjust(ctx context.Context, userID int64, req *AdjustRequest) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.Adjust")
	defer span.End()

	item := BatchItem{
		Code:              req.Code,
		Qty:               req.Qty,
		Type:              req.Type,
		Pattern:           req.Pattern,
		PatternURL:        req.PatternURL,
		PatternKey:        req.PatternKey,
		PatternCategoryID: req.PatternCategoryID,
		Source:            req.Source,
	}
	if normCode(req.Code) == "" {
		return ErrMissingCode
	}

	_, err := s.applyBatch(ctx, userID, []BatchItem{item}, AdjustBatchRequest{})
	if err != nil {
		return err
	}
	util.AdjustmentsTotal.WithLabelValues(req.Type).Inc()
	return nil
}

// AdjustBatch applies up to MaxBatchItems mutations atomically under one
// batch id. Either every item lands or none does.
func (s *InventoryService) AdjustBatch(ctx context.Context, userID int64, req *AdjustBatchRequest) (string, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AdjustBatch")
	defer span.End()

	if len(req.Items) == 0 {
		return "", ErrEmptyItems
	}
	if len(req.Items) > MaxBatchItems {
		return "", ErrTooManyItems
	}

	batchID, err := s.applyBatch(ctx, userID, req.Items, *req)
	if err != nil {
		return "", err
	}

	util.BatchesAppliedTotal.Inc()
	util.BatchItemsApplied.Observe(float64(len(req.Items)))
	return batchID, nil
}

// normalizeBatchItems validates each line, applies request-level defaults
// and collects the category ids that need an ownership check.
func normalizeBatchItems(items []BatchItem, defaults AdjustBatchRequest) ([]batchRow, []int64, error) {
	rows := make([]batchRow, 0, len(items))
	var categoryIDs []int64
	seenCategory := make(map[int64]bool)

	for _, it := range items {
		code := normCode(it.Code)
		if code == "" {
			return nil, nil, ErrMissingCode
		}
		htype := it.Type
		if htype == "" {
			htype = defaults.Type
		}
		if !models.ValidHistoryType(htype) {
			return nil, nil, ErrInvalidType
		}
		if it.Qty <= 0 {
			return nil, nil, ErrInvalidQty
		}

		pattern := it.Pattern
		if pattern == nil {
			pattern = defaults.Pattern
		}
		patternURL := it.PatternURL
		if patternURL == nil {
			patternURL = defaults.PatternURL
		}
		patternKey := it.PatternKey
		if patternKey == nil {
			patternKey = defaults.PatternKey
		}
		categoryID := it.PatternCategoryID
		if categoryID == nil {
			categoryID = defaults.PatternCategoryID
		}
		source := it.Source
		if source == nil {
			source = defaults.Source
		}

		row := batchRow{store.NewHistoryRow{
			Code:    code,
			Type:    htype,
			Qty:     it.Qty,
			Pattern: normText(pattern, maxPatternLen),
			Source:  normText(source, maxSourceLen),
		}}

		// Image reference and category are consume-only facts.
		if htype == models.HistoryTypeConsume {
			row.PatternURL = normText(patternURL, maxURLLen)
			row.PatternKey = normText(patternKey, maxURLLen)
			if categoryID != nil {
				if *categoryID <= 0 {
					return nil, nil, ErrInvalidCategory
				}
				row.CategoryID = categoryID
				if !seenCategory[*categoryID] {
					seenCategory[*categoryID] = true
					categoryIDs = append(categoryIDs, *categoryID)
				}
			}
		}

		rows = append(rows, row)
	}
	return rows, categoryIDs, nil
}

// applyBatch is the shared mutation path: validate, then one transaction
// covering row creation, the ledger update and the history append.
func (s *InventoryService) applyBatch(ctx context.Context, userID int64, items []BatchItem, defaults AdjustBatchRequest) (string, error) {
	rows, categoryIDs, err := normalizeBatchItems(items, defaults)
	if err != nil {
		return "", err
	}

	if len(categoryIDs) > 0 {
		ok, err := s.store.CategoriesExist(ctx, userID, categoryIDs)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrCategoryNotFound
		}
	}

	deltaByCode := make(map[string]int64, len(rows))
	for _, r := range rows {
		deltaByCode[r.Code] += signedDelta(r.Type, r.Qty)
	}
	codes := make([]string, 0, len(deltaByCode))
	for _, d := range store.SortedDeltas(deltaByCode) {
		codes = append(codes, d.Code)
	}

	if err := validateCodes(ctx, s.store, userID, codes); err != nil {
		return "", err
	}

	batchID := models.NewBatchID()
	inserts := make([]store.NewHistoryRow, len(rows))
	for i, r := range rows {
		inserts[i] = r.NewHistoryRow
		inserts[i].BatchID = &batchID
	}

	start := time.Now()
	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.EnsureDefaultRowsTx(tx, userID, codes); err != nil {
			return err
		}
		if err := store.ApplyDeltasTx(tx, userID, store.SortedDeltas(deltaByCode)); err != nil {
			return err
		}
		return store.InsertHistoryTx(tx, userID, inserts)
	})
	util.MutationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	s.publishBatchApplied(ctx, userID, batchID, rows)
	return batchID, nil
}

// validateCodes enforces the three distinct ledger preconditions: the code
// exists in the palette, was not removed by the user, and non-default
// codes already have an inventory row.
func validateCodes(ctx context.Context, st *store.Store, userID int64, codes []string) error {
	palette, err := st.GetPaletteColors(ctx, codes)
	if err != nil {
		return err
	}
	for _, c := range codes {
		if _, ok := palette[c]; !ok {
			return validationf("unknown code: %s", c)
		}
	}

	removed, err := st.GetRemovedCodes(ctx, userID, codes)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		return ErrCodeRemoved
	}

	nonDefault := make([]string, 0, len(codes))
	for _, c := range codes {
		if !palette[c].IsDefault {
			nonDefault = append(nonDefault, c)
		}
	}
	if len(nonDefault) > 0 {
		present, err := st.HasInventoryRows(ctx, userID, nonDefault)
		if err != nil {
			return err
		}
		for _, c := range nonDefault {
			if !present[c] {
				return ErrSeriesNotAdded
			}
		}
	}
	return nil
}

func (s *InventoryService) publishBatchApplied(ctx context.Context, userID int64, batchID string, rows []batchRow) {
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
}

// ResetAll zeroes every default quantity, removes all non-default codes
// and purges the history log and queued patterns, as one transaction. The
// user's idempotency entries are dropped so a stale success cannot be
// replayed over the fresh state.
func (s *InventoryService) ResetAll(ctx context.Context, userID int64) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.ResetAll")
	defer span.End()

	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.ResetAllTx(tx, userID)
	})
	if err != nil {
		return err
	}

	if err := s.cache.DropPrefix(ctx, idemcache.UserPrefix(userID)); err != nil {
		s.logger.Warn("Failed to drop idempotency entries after reset",
			zap.Int64("user_id", userID), zap.Error(err))
	}

	util.ResetsTotal.Inc()
	event := &models.InventoryResetEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeInventoryReset,
			UserID:    userID,
			Timestamp: time.Now(),
		},
	}
	if err := s.events.PublishInventoryReset(ctx, event); err != nil {
		s.logger.Error("Failed to publish reset event", zap.Error(err))
	}
	return nil
}

// ListInventory seeds the default palette for the user, then returns the
// full inventory.
func (s *InventoryService) ListInventory(ctx context.Context, userID int64) ([]models.InventoryItem, error) {
	if err := s.store.EnsureUserDefaults(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListInventory(ctx, userID)
}

// History returns the per-code view: current balance, lifetime totals and
// the latest rows.
func (s *InventoryService) History(ctx context.Context, userID int64, code string, limit int) (*models.HistoryView, error) {
	code = normCode(code)
	if code == "" {
		return nil, ErrMissingCode
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 200 {
		limit = 200
	}

	remain, err := s.store.GetQty(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	consume, restock, err := s.store.HistoryTotals(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.HistoryRows(ctx, userID, code, limit)
	if err != nil {
		return nil, err
	}
	return &models.HistoryView{
		Remain:       remain,
		TotalConsume: consume,
		TotalRestock: restock,
		Rows:         rows,
	}, nil
}

// ConsumeStats returns per-code consumed totals, served from the Redis
// cache when warm. The cache is best-effort: any Redis failure falls back
// to the database.
func (s *InventoryService) ConsumeStats(ctx context.Context, userID int64) ([]models.ConsumeStat, error) {
	if payload, ok, err := s.redis.GetConsumeStats(ctx, userID); err == nil && ok {
		var stats []models.ConsumeStat
		if err := json.Unmarshal(payload, &stats); err == nil {
			util.ConsumeStatsCacheHits.WithLabelValues("hit").Inc()
			return stats, nil
		}
	} else if err != nil {
		s.logger.Warn("Consume-stats cache read failed", zap.Error(err))
	}
	util.ConsumeStatsCacheHits.WithLabelValues("miss").Inc()

	stats, err := s.store.ConsumeStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(stats); err == nil {
		if err := s.redis.SetConsumeStats(ctx, userID, payload, consumeStatsTTL); err != nil {
			s.logger.Warn("Consume-stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// AddColor adds one explicitly chosen code with zero quantity, clearing
// any removed flag.
func (s *InventoryService) AddColor(ctx context.Context, userID int64, code string) error {
	code = normCode(code)
	if code == "" {
		return ErrMissingCode
	}
	p, err := s.store.GetPaletteColor(ctx, code)
	if err != nil {
		return err
	}
	if p == nil {
		return validationf("unknown code: %s", code)
	}

	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		added, err := store.AddColorTx(tx, userID, code, p.Hex)
		if err != nil {
			return err
		}
		if !added {
			return ErrCodeExists
		}
		return nil
	})
}

// RemoveColor purges the code's ledger row and history and marks it
// removed.
func (s *InventoryService) RemoveColor(ctx context.Context, userID int64, code string) error {
	code = normCode(code)
	if code == "" {
		return ErrMissingCode
	}
	p, err := s.store.GetPaletteColor(ctx, code)
	if err != nil {
		return err
	}
	if p == nil {
		return validationf("unknown code: %s", code)
	}

	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.RemoveColorTx(tx, userID, code)
	})
}

// AddSeries provisions every code of a non-default series at zero qty.
func (s *InventoryService) AddSeries(ctx context.Context, userID int64, series string) error {
	series = strings.TrimSpace(series)
	if series == "" {
		return ErrMissingSeries
	}
	ok, err := s.store.SeriesExists(ctx, series)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSeries
	}
	return s.store.AddSeries(ctx, userID, series)
}

// RemoveSeries drops a non-default series and its history.
func (s *InventoryService) RemoveSeries(ctx context.Context, userID int64, series string) error {
	series = strings.TrimSpace(series)
	if series == "" {
		return ErrMissingSeries
	}
	ok, err := s.store.SeriesExists(ctx, series)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSeries
	}
	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.RemoveSeriesTx(tx, userID, series)
	})
}
