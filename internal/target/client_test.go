package target

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := New("fake-token", 1, logging.New(logging.LevelSilent))
	c.baseURL = srv.URL
	return c, srv.Close
}

func TestAddColumnsSendsSingleBatchRequest(t *testing.T) {
	callCount := 0
	var receivedBody []map[string]interface{}
	c, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		callCount++
		require.Equal(t, http.MethodPost, r.Method)
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{"id": 1, "title": "Task Name", "type": "TEXT_NUMBER"},
				{"id": 2, "title": "Owner", "type": "CONTACT_LIST"},
			},
		})
	})
	defer closeFn()

	cols, err := c.AddColumns(context.Background(), 100, []model.ColumnSpec{
		{Title: "Task Name", Type: model.ColumnTextNumber, Index: -1},
		{Title: "Owner", Type: model.ColumnContactList, Index: -1},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, callCount, "adding multiple columns must be a single batch request")
	require.Len(t, cols, 2)
	assert.Equal(t, int64(1), cols[0].ID)
	assert.Len(t, receivedBody, 2)
}

func TestAddRowsBuildsContactObjectCells(t *testing.T) {
	var received []rowEnvelope
	c, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{{"id": 501}},
		})
	})
	defer closeFn()

	rows := []model.Row{
		{
			Cells: []model.Cell{
				{ColumnID: "Assigned To", Object: &model.ObjectValue{
					ObjectType: model.ObjectTypeMultiContact,
					Contacts:   []model.Contact{{Name: "Jane Doe", Email: "jane@example.com"}},
				}},
			},
		},
	}
	out, err := c.AddRows(context.Background(), 100, rows, map[string]int64{"Assigned To": 77})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(501), out[0].ID)

	require.Len(t, received, 1)
	require.Len(t, received[0].Cells, 1)
	assert.Equal(t, int64(77), received[0].Cells[0].ColumnID)
	require.NotNil(t, received[0].Cells[0].ObjectValue)
	assert.Equal(t, "MULTI_CONTACT", received[0].Cells[0].ObjectValue.ObjectType)
}

func TestDoMaps403ToPermissionError(t *testing.T) {
	c, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"forbidden"}`))
	})
	defer closeFn()

	_, err := c.CreateWorkspace(context.Background(), "Test")
	require.Error(t, err)
	kind, ok := errKindOf(err)
	require.True(t, ok)
	assert.Equal(t, "PermissionError", string(kind))
}

func TestDeleteAllRowsNoopWhenEmpty(t *testing.T) {
	called := false
	c, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	defer closeFn()

	err := c.DeleteAllRows(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.False(t, called)
}
