package vehicles_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/truckops/truckops/internal/ledgertest"
	"github.com/truckops/truckops/internal/masterdata/vehicles"
)

func TestVehicleRoutes(t *testing.T) {
	sys := ledgertest.NewSystem(ledgertest.Options{})
	r := chi.NewRouter()
	r.Route("/vehicles", vehicles.NewHandler(nil, sys.Vehicles).MountRoutes)

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

	res := send(http.MethodPost, "/vehicles/", `{"license_plate":" 51c-999.01 ","description":"Hino 8 tấn"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var created vehicles.Vehicle
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	require.Equal(t, "51C-999.01", created.LicensePlate)
	require.Equal(t, vehicles.StatusActive, created.Status)

	res = send(http.MethodPost, "/vehicles/", `{"license_plate":"51C-999.01"}`)
	require.Equal(t, http.StatusConflict, res.Code)

	res = send(http.MethodPost, "/vehicles/", `{"license_plate":""}`)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = send(http.MethodGet, "/vehicles/?limit=10", "")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"total":1`)

	res = send(http.MethodGet, "/vehicles/424242", "")
	require.Equal(t, http.StatusNotFound, res.Code)
}
