package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bead-inventory-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listGroupsContext(t *testing.T, query string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/recordGroups?"+query, nil)
	return c
}

func TestParseListGroupsParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		params, err := parseListGroupsParams(listGroupsContext(t, "type=consume"))
		require.NoError(t, err)
		assert.Equal(t, "consume", params.Type)
		assert.Nil(t, params.Limit)
		assert.Nil(t, params.CategoryID)
		assert.False(t, params.OnlyWithPattern)
	})

	t.Run("onlyWithPattern accepts 1 and true", func(t *testing.T) {
		for _, v := range []string{"1", "true"} {
			params, err := parseListGroupsParams(listGroupsContext(t, "type=consume&onlyWithPattern="+v))
			require.NoError(t, err)
			assert.True(t, params.OnlyWithPattern, "onlyWithPattern=%s", v)
		}
	})

	t.Run("supplied limit is carried through, zero included", func(t *testing.T) {
		params, err := parseListGroupsParams(listGroupsContext(t, "type=consume&limit=0"))
		require.NoError(t, err)
		require.NotNil(t, params.Limit)
		assert.Equal(t, 0, *params.Limit)
	})

	t.Run("non-numeric limit is rejected", func(t *testing.T) {
		_, err := parseListGroupsParams(listGroupsContext(t, "type=consume&limit=abc"))
		assert.Equal(t, service.ErrInvalidLimit, err)
	})

	t.Run("non-numeric category is rejected", func(t *testing.T) {
		_, err := parseListGroupsParams(listGroupsContext(t, "type=consume&categoryId=x"))
		assert.Equal(t, service.ErrInvalidCategory, err)
	})
}
