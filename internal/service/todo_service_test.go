package service

import (
	"testing"
	"time"

	"bead-inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoView(t *testing.T) {
	created := time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)
	v, err := todoView(&models.TodoPattern{
		ID:         3,
		Pattern:    strp("owl"),
		PatternURL: "https://img/owl.png",
		ItemsJSON:  `[{"code":"H01","qty":4},{"code":"S05","qty":1}]`,
		TotalQty:   5,
		CreatedAt:  created,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), v.ID)
	assert.Equal(t, "owl", *v.Pattern)
	require.Len(t, v.Items, 2)
	assert.Equal(t, models.TodoItem{Code: "H01", Qty: 4}, v.Items[0])
	assert.Equal(t, created.UnixMilli(), v.CreatedAt)
}

func TestTodoViewRejectsCorruptItems(t *testing.T) {
	_, err := todoView(&models.TodoPattern{ItemsJSON: "not json"})
	assert.Error(t, err)
}
