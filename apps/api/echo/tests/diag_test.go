package tests

import (
	"net/http"
	"testing"
)

func Test_home(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "Welcome to Cantera API!" {
		t.Errorf("failed! body = %v", rec.Body.String())
	}
}

func Test_diagApi_testDB(t *testing.T) {
	// the test server runs without a database
	req, rec := newRequest(http.MethodGet, "/api/test-db")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusServiceUnavailable,
		wantData: marchallObj(t, map[string]interface{}{
			"success": false,
			"message": "Database connection failed",
			"error":   "database not configured",
		}),
	}, rec)
}
