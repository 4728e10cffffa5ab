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

// RecordService serves the derived record-group views and reconciles
// group edits and deletes back into the ledger.
type RecordService struct {
	store  *store.Store
	events *broker.EventPublisher
	logger *zap.Logger
}

// NewRecordService creates a new record service
func NewRecordService(store *store.Store, events *broker.EventPublisher) *RecordService {
	return &RecordService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// ListGroupsParams narrows and paginates the group listing. A nil Limit
// means the client sent none; an explicit value is validated as-is.
type ListGroupsParams struct {
	Type            string
	Limit           *int
	Cursor          string
	OnlyWithPattern bool
	CategoryID      *int64
}

// GroupPage is one page of derived record groups.
type GroupPage struct {
	Data       []models.RecordGroup `json:"data"`
	HasMore    bool                 `json:"hasMore"`
	NextCursor *string              `json:"nextCursor"`
}

// ListGroups returns one page of derived groups, newest first. An absent
// page size falls back to DefaultPageSize; a supplied one outside
// [1, MaxPageSize] is rejected, and so is a malformed cursor.
func (s *RecordService) ListGroups(ctx context.Context, userID int64, params ListGroupsParams) (*GroupPage, error) {
	ctx, span := util.StartSpan(ctx, "RecordService.ListGroups")
	defer span.End()

	htype := params.Type
	if !models.ValidHistoryType(htype) {
		return nil, ErrInvalidType
	}

	limit := DefaultPageSize
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, ErrInvalidLimit
	}

	var cursor *models.Cursor
	if params.Cursor != "" {
		c, err := models.ParseCursor(params.Cursor)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		cursor = &c
	}

	if params.CategoryID != nil && *params.CategoryID <= 0 {
		return nil, ErrInvalidCategory
	}

	filter := store.GroupFilter{
		OnlyWithPattern: params.OnlyWithPattern,
		CategoryID:      params.CategoryID,
	}

	start := time.Now()
	groups, err := s.store.ListGroups(ctx, userID, htype, filter, cursor, limit+1)
	util.GroupListLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	return buildGroupPage(groups, limit), nil
}

// buildGroupPage trims the limit+1 overfetch: receiving the extra row
// means another page exists, and the cursor for it comes from the last
// row that survived the trim.
func buildGroupPage(groups []models.RecordGroup, limit int) *GroupPage {
	page := &GroupPage{Data: groups, HasMore: false}
	if len(groups) > limit {
		page.Data = groups[:limit]
		page.HasMore = true
		last := page.Data[limit-1]
		next := models.Cursor{Ts: last.Ts, MaxID: last.MaxID}.String()
		page.NextCursor = &next
	}
	return page
}

// GroupDetailResult is the aggregated per-code view of one group.
type GroupDetailResult struct {
	GID  string             `json:"gid"`
	Type string             `json:"type"`
	Data []models.GroupLine `json:"data"`
}

// GroupDetail aggregates one group's rows per code, largest first.
func (s *RecordService) GroupDetail(ctx context.Context, userID int64, gid, htype string) (*GroupDetailResult, error) {
	ref, err := models.ParseGroupRef(gid)
	if err != nil {
		return nil, ErrInvalidGID
	}
	if !models.ValidHistoryType(htype) {
		return nil, ErrInvalidType
	}

	snap, err := store.ResolveGroup(ctx, s.store.GetDB(), userID, ref, htype)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrGroupNotFound
	}
	lines, err := s.store.GroupDetail(ctx, userID, htype, snap)
	if err != nil {
		return nil, err
	}
	return &GroupDetailResult{GID: ref.String(), Type: htype, Data: lines}, nil
}

// UpdateGroupRequest replaces a group's item list and, optionally, its
// labels. Pointer fields distinguish "absent" (keep the old value) from
// an explicit null or empty value (clear it).
type UpdateGroupRequest struct {
	GID               string    `json:"gid"`
	Type              string    `json:"type,omitempty"`
	Items             []ItemQty `json:"items"`
	Pattern           *string   `json:"pattern,omitempty"`
	HasPattern        bool      `json:"-"`
	PatternURL        *string   `json:"patternUrl,omitempty"`
	HasPatternURL     bool      `json:"-"`
	PatternKey        *string   `json:"patternKey,omitempty"`
	HasPatternKey     bool      `json:"-"`
	PatternCategoryID *int64    `json:"patternCategoryId,omitempty"`
	HasCategoryID     bool      `json:"-"`
}

// UnmarshalJSON records which label fields were present in the payload,
// so an absent field keeps the old value while an explicit null clears it.
func (r *UpdateGroupRequest) UnmarshalJSON(data []byte) error {
	type alias UpdateGroupRequest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = UpdateGroupRequest(a)
	_, r.HasPattern = raw["pattern"]
	_, r.HasPatternURL = raw["patternUrl"]
	_, r.HasPatternKey = raw["patternKey"]
	_, r.HasCategoryID = raw["patternCategoryId"]
	return nil
}

// UpdateGroup replaces a group's quantities with the requested item list,
// applying only the net per-code difference to the ledger. The group's
// member rows are deleted and reinserted carrying the original created_at
// and batch id, so its gid survives the edit.
func (s *RecordService) UpdateGroup(ctx context.Context, userID int64, req *UpdateGroupRequest) error {
	ctx, span := util.StartSpan(ctx, "RecordService.UpdateGroup")
	defer span.End()

	if req.GID == "" {
		return ErrMissingGID
	}
	ref, err := models.ParseGroupRef(req.GID)
	if err != nil {
		return ErrInvalidGID
	}
	htype := req.Type
	if !models.ValidHistoryType(htype) {
		return ErrInvalidType
	}
	if len(req.Items) > MaxBatchItems {
		return ErrTooManyItems
	}
	newAgg, err := mergeItemQtys(req.Items)
	if err != nil {
		return err
	}
	newCodes := make([]string, 0, len(newAgg))
	for _, d := range store.SortedDeltas(newAgg) {
		newCodes = append(newCodes, d.Code)
	}
	if err := validateCodes(ctx, s.store, userID, newCodes); err != nil {
		return err
	}

	if req.HasCategoryID && req.PatternCategoryID != nil {
		if *req.PatternCategoryID <= 0 {
			return ErrInvalidCategory
		}
		ok, err := s.store.CategoriesExist(ctx, userID, []int64{*req.PatternCategoryID})
		if err != nil {
			return err
		}
		if !ok {
			return ErrCategoryNotFound
		}
	}

	var eventItems []models.EventItem

	start := time.Now()
	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		snap, err := store.ResolveGroup(ctx, tx, userID, ref, htype)
		if err != nil {
			return err
		}
		if snap == nil {
			return ErrGroupNotFound
		}

		oldAgg, err := store.AggregateGroup(ctx, tx, userID, htype, snap)
		if err != nil {
			return err
		}

		deltas := computeEditDeltas(oldAgg, newAgg, htype)
		if len(deltas) > 0 {
			codes := make([]string, 0, len(deltas))
			for _, d := range store.SortedDeltas(deltas) {
				codes = append(codes, d.Code)
			}
			if err := store.EnsureDefaultRowsTx(tx, userID, codes); err != nil {
				return err
			}
			if err := store.ApplyDeltasTx(tx, userID, store.SortedDeltas(deltas)); err != nil {
				return err
			}
		}

		labels := resolveGroupLabels(snap, labelOverrides{
			Pattern:       req.Pattern,
			HasPattern:    req.HasPattern,
			PatternURL:    req.PatternURL,
			HasPatternURL: req.HasPatternURL,
			PatternKey:    req.PatternKey,
			HasPatternKey: req.HasPatternKey,
			CategoryID:    req.PatternCategoryID,
			HasCategoryID: req.HasCategoryID,
		}, htype)

		if err := store.DeleteGroupRowsTx(tx, userID, htype, snap); err != nil {
			return err
		}
		rows := replacementRows(snap, newAgg, labels, htype)
		if err := store.InsertHistoryTx(tx, userID, rows); err != nil {
			return err
		}

		for _, r := range rows {
			eventItems = append(eventItems, models.EventItem{Code: r.Code, Type: r.Type, Qty: r.Qty})
		}
		return nil
	})
	util.MutationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	util.GroupEditsTotal.Inc()
	event := &models.GroupUpdatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeGroupUpdated,
			UserID:    userID,
			Timestamp: time.Now(),
		},
		GID:   ref.String(),
		Type:  htype,
		Items: eventItems,
	}
	if err := s.events.PublishGroupUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish group-updated event", zap.Error(err))
	}
	return nil
}

// DeleteGroup removes a group and returns its quantities to the ledger:
// deleting a consume group restores inventory, deleting a restock group
// takes it back out. Deleting a batch group whose rows are already gone
// is a no-op; an inferred group whose anchor row is gone is not found.
func (s *RecordService) DeleteGroup(ctx context.Context, userID int64, gid, htype string) error {
	ctx, span := util.StartSpan(ctx, "RecordService.DeleteGroup")
	defer span.End()

	if gid == "" {
		return ErrMissingGID
	}
	ref, err := models.ParseGroupRef(gid)
	if err != nil {
		return ErrInvalidGID
	}
	if !models.ValidHistoryType(htype) {
		return ErrInvalidType
	}

	start := time.Now()
	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		snap, err := store.ResolveGroup(ctx, tx, userID, ref, htype)
		if err != nil {
			return err
		}
		if snap == nil {
			if ref.Kind == models.GroupRefBatch {
				return nil
			}
			return ErrGroupNotFound
		}

		agg, err := store.AggregateGroup(ctx, tx, userID, htype, snap)
		if err != nil {
			return err
		}
		deltas := inverseDeltas(agg, htype)
		if len(deltas) > 0 {
			codes := make([]string, 0, len(deltas))
			for _, d := range store.SortedDeltas(deltas) {
				codes = append(codes, d.Code)
			}
			if err := store.EnsureDefaultRowsTx(tx, userID, codes); err != nil {
				return err
			}
			if err := store.ApplyDeltasTx(tx, userID, store.SortedDeltas(deltas)); err != nil {
				return err
			}
		}
		return store.DeleteGroupRowsTx(tx, userID, htype, snap)
	})
	util.MutationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	util.GroupDeletesTotal.Inc()
	event := &models.GroupDeletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeGroupDeleted,
			UserID:    userID,
			Timestamp: time.Now(),
		},
		GID:  ref.String(),
		Type: htype,
	}
	if err := s.events.PublishGroupDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish group-deleted event", zap.Error(err))
	}
	return nil
}
