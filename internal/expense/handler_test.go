package expense_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/expense"
	"github.com/truckops/truckops/internal/ledgertest"
)

func TestExpenseRoutes(t *testing.T) {
	_, sys, f := seeded(t, ledgertest.Options{})
	r := chi.NewRouter()
	r.Route("/expenses", expense.NewHandler(nil, sys.Expenses).MountRoutes)

	send := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		}
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		return res
	}

	body := fmt.Sprintf(`{"amount":150000,"reason":"Phí cầu đường","staff_id":%d,"date":"2024-06-10T00:00:00Z"}`, f.Driver.ID)
	res := send(http.MethodPost, "/expenses/", body)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var immediate expense.Expense
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &immediate))
	require.True(t, immediate.Settled())
	require.True(t, sys.Store.BalanceOf("An").Equal(amount(-150000)))

	body = fmt.Sprintf(`{"amount":80000,"reason":"Ăn trưa","staff_id":%d,"deferred":true}`, f.Assistant.ID)
	res = send(http.MethodPost, "/expenses/", body)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var deferred expense.Expense
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &deferred))
	require.False(t, deferred.Settled())
	require.True(t, sys.Store.BalanceOf("Bình").IsZero())

	body = fmt.Sprintf(`{"amount":200000,"reason":"Phí cầu đường","staff_id":%d,"date":"2024-06-10T00:00:00Z"}`, f.Driver.ID)
	res = send(http.MethodPut, fmt.Sprintf("/expenses/%d", immediate.ID), body)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.True(t, sys.Store.BalanceOf("An").Equal(amount(-200000)))

	res = send(http.MethodGet, "/expenses/?staff=An", "")
	require.Equal(t, http.StatusOK, res.Code)
	var listed struct {
		Data []expense.Expense `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	require.True(t, listed.Data[0].Amount.Equal(amount(200000)))

	res = send(http.MethodGet, "/expenses/summary", "")
	require.Equal(t, http.StatusOK, res.Code)
	var summary struct {
		Data []expense.StaffSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &summary))
	require.Len(t, summary.Data, 2)

	res = send(http.MethodDelete, fmt.Sprintf("/expenses/%d", immediate.ID), "")
	require.Equal(t, http.StatusNoContent, res.Code)
	require.True(t, sys.Store.BalanceOf("An").IsZero())

	res = send(http.MethodGet, fmt.Sprintf("/expenses/%d", immediate.ID), "")
	require.Equal(t, http.StatusNotFound, res.Code)

	res = send(http.MethodGet, fmt.Sprintf("/expenses/%d", deferred.ID), "")
	require.Equal(t, http.StatusOK, res.Code)
}

func TestExpenseRoutesRejectBadInput(t *testing.T) {
	_, sys, f := seeded(t, ledgertest.Options{})
	r := chi.NewRouter()
	r.Route("/expenses", expense.NewHandler(nil, sys.Expenses).MountRoutes)

	cases := map[string]struct {
		method, path, body string
		want               int
	}{
		"no reason":     {http.MethodPost, "/expenses/", fmt.Sprintf(`{"amount":1000,"staff_id":%d}`, f.Driver.ID), http.StatusBadRequest},
		"unknown staff": {http.MethodPost, "/expenses/", `{"amount":1000,"reason":"x","staff_id":424242}`, http.StatusNotFound},
		"bad trip id":   {http.MethodGet, "/expenses/?trip_id=abc", "", http.StatusBadRequest},
		"bad id":        {http.MethodGet, "/expenses/zero", "", http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var req *http.Request
			if tc.body == "" {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			} else {
				req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			}
			res := httptest.NewRecorder()
			r.ServeHTTP(res, req)
			require.Equal(t, tc.want, res.Code, res.Body.String())
		})
	}
}
