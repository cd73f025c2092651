// internal/utils/pagination_test.go
package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func paramsForQuery(query string) PaginationParams {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/v1/registrations?"+query, nil)
	return GetPaginationParams(c)
}

func TestGetPaginationParamsDefaults(t *testing.T) {
	params := paramsForQuery("")

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 20, params.Limit)
	assert.Equal(t, "created_at", params.Sort)
	assert.Equal(t, "desc", params.Order)
}

func TestGetPaginationParamsClampsBadValues(t *testing.T) {
	params := paramsForQuery("page=-3&limit=9999&order=sideways")

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 20, params.Limit)
	assert.Equal(t, "desc", params.Order)
}

func TestCreatePaginationResult(t *testing.T) {
	result := CreatePaginationResult([]string{"a", "b"}, 45, PaginationParams{Page: 2, Limit: 20})

	assert.Equal(t, 2, result.Page)
	assert.Equal(t, int64(45), result.Total)
	assert.Equal(t, 3, result.TotalPages)
}
