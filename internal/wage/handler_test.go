package wage_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/wage"
)

type recordingQueue struct {
	staff []int64
	err   error
}

func (q *recordingQueue) EnqueueWageRecalculation(_ context.Context, staffID int64) error {
	if q.err != nil {
		return q.err
	}
	q.staff = append(q.staff, staffID)
	return nil
}

func wageRouter(h *wage.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/wages", h.MountRoutes)
	return r
}

func send(srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	res := httptest.NewRecorder()
	srv.ServeHTTP(res, req)
	return res
}

func TestWageRoutes(t *testing.T) {
	_, sys, f, tripID := pricedTrip(t, true)
	srv := wageRouter(wage.NewHandler(nil, sys.Wages, nil))
	driver := fmt.Sprintf("/wages/staff/%d", f.Driver.ID)

	res := send(srv, http.MethodGet, fmt.Sprintf("/wages/trips/%d", tripID), "")
	require.Equal(t, http.StatusOK, res.Code)
	var rows struct {
		Data []wage.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &rows))
	require.Len(t, rows.Data, 2)

	res = send(srv, http.MethodGet, driver+"/", "")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &rows))
	require.Len(t, rows.Data, 1)
	require.True(t, rows.Data[0].Amount.Equal(d("200000")))

	res = send(srv, http.MethodGet, fmt.Sprintf("/wages/staff/%d/trips", f.Assistant.ID), "")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), fmt.Sprintf(`"id":%d`, tripID))

	res = send(srv, http.MethodPut, driver+"/adjustments/2024/4", `{"amount":-50000,"reason":"Tạm ứng"}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = send(srv, http.MethodGet, driver+"/adjustments/2024/4", "")
	require.Equal(t, http.StatusOK, res.Code)
	var adj wage.Adjustment
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &adj))
	require.True(t, adj.Amount.Equal(d("-50000")))

	res = send(srv, http.MethodGet, driver+"/adjustments", "")
	require.Equal(t, http.StatusOK, res.Code)
	var adjustments struct {
		Data []wage.Adjustment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &adjustments))
	require.Len(t, adjustments.Data, 1)

	res = send(srv, http.MethodGet, driver+"/summary", "")
	require.Equal(t, http.StatusOK, res.Code)
	var summary struct {
		Months []wage.MonthSummary `json:"months"`
		Total  string              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &summary))
	require.Len(t, summary.Months, 1)
	require.Equal(t, "150000", summary.Total)

	res = send(srv, http.MethodPost, driver+"/recalculate", "")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"trips":1`)
}

func TestWageRoutesRejectBadInput(t *testing.T) {
	_, sys, f, _ := pricedTrip(t, false)
	srv := wageRouter(wage.NewHandler(nil, sys.Wages, nil))
	driver := fmt.Sprintf("/wages/staff/%d", f.Driver.ID)

	cases := map[string]struct {
		method, path, body string
		want               int
	}{
		"month out of range": {http.MethodPut, driver + "/adjustments/2024/13", `{"amount":1000}`, http.StatusBadRequest},
		"month not a number": {http.MethodGet, driver + "/adjustments/2024/may", "", http.StatusBadRequest},
		"missing adjustment": {http.MethodGet, driver + "/adjustments/2024/5", "", http.StatusNotFound},
		"bad staff id":       {http.MethodGet, "/wages/staff/0/summary", "", http.StatusBadRequest},
		"unknown staff":      {http.MethodGet, "/wages/staff/424242/adjustments", "", http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := send(srv, tc.method, tc.path, tc.body)
			require.Equal(t, tc.want, res.Code, res.Body.String())
		})
	}
}

func TestRecalculateGoesThroughQueue(t *testing.T) {
	_, sys, f, _ := pricedTrip(t, false)
	queue := &recordingQueue{}
	srv := wageRouter(wage.NewHandler(nil, sys.Wages, queue))

	res := send(srv, http.MethodPost, fmt.Sprintf("/wages/staff/%d/recalculate", f.Driver.ID), "")
	require.Equal(t, http.StatusAccepted, res.Code)
	require.Equal(t, []int64{f.Driver.ID}, queue.staff)

	queue.err = errors.New("redis down")
	res = send(srv, http.MethodPost, fmt.Sprintf("/wages/staff/%d/recalculate", f.Driver.ID), "")
	require.Equal(t, http.StatusInternalServerError, res.Code)
}
