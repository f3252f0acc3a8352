package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/canteraproject/cantera/core/profile"
	testutil "github.com/canteraproject/cantera/tests"
)

func completeProfileBody(t *testing.T, phone string) []byte {
	return marchallObj(t, map[string]interface{}{
		"first_name":    "Leo",
		"last_name":     "Aimar",
		"date_of_birth": time.Now().AddDate(-12, 0, 0).Format(time.RFC3339),
		"phone":         phone,
		"parent_name":   "Ana Aimar",
		"parent_phone":  "+5491100000000",
		"category":      "sub-12",
	})
}

func Test_profileApi_complete(t *testing.T) {
	resetDB(t)

	acct := testutil.CreateAccount(t, acctRepo, "newbie@test.ar", "lolC@t123", profile.RoleStudent)
	token := getToken(t, acct)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/profiles/complete", completeProfileBody(t, ""))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("required fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/complete", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"first_name": reqMsg, "last_name": reqMsg, "date_of_birth": reqMsg,
				"parent_name": reqMsg, "parent_phone": reqMsg, "category": reqMsg,
			}),
		}, rec)
	})

	var created profile.Profile
	t.Run("Profile completed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/complete", token, completeProfileBody(t, ""))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if created.AuthID != acct.ID {
			t.Errorf("failed! AuthID = %v; want %v", created.AuthID, acct.ID)
		}
		if !created.Completed {
			t.Error("failed! Completed = false; want true")
		}
		if created.Role != profile.RoleStudent {
			t.Errorf("failed! Role = %v; want %v", created.Role, profile.RoleStudent)
		}
	})

	t.Run("Completing again updates in place", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/complete", token, completeProfileBody(t, "+5491199999999"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var updated profile.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if updated.ID != created.ID {
			t.Errorf("failed! ID = %v; want %v (no new profile)", updated.ID, created.ID)
		}
		if updated.Phone != "+5491199999999" {
			t.Errorf("failed! Phone = %v; want +5491199999999", updated.Phone)
		}
	})
}

func Test_profileApi_me(t *testing.T) {
	resetDB(t)

	acct := testutil.CreateAccount(t, acctRepo, "hero@test.ar", "lolC@t123", profile.RoleStudent)
	prof := testutil.CreateProfile(t, profRepo, acct.ID, acct.Email, profile.RoleStudent, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Own profile", token: getToken(t, acct), wantCode: http.StatusOK, wantData: marchallObj(t, prof)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/profiles/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_profileApi_query(t *testing.T) {
	resetDB(t)

	adminAcct := testutil.CreateAccount(t, acctRepo, "admin@test.ar", "lolC@t123", profile.RoleAdmin)
	adminProf := testutil.CreateProfile(t, profRepo, adminAcct.ID, adminAcct.Email, profile.RoleAdmin, true)
	coachAcct := testutil.CreateAccount(t, acctRepo, "coach@test.ar", "lolC@t123", profile.RoleCoach)
	coachProf := testutil.CreateProfile(t, profRepo, coachAcct.ID, coachAcct.Email, profile.RoleCoach, true)
	stAcct := testutil.CreateAccount(t, acctRepo, "hero@test.ar", "lolC@t123", profile.RoleStudent)
	stProf := testutil.CreateProfile(t, profRepo, stAcct.ID, stAcct.Email, profile.RoleStudent, true)

	adminToken := getToken(t, adminAcct)
	path := func(vals url.Values) string { return "/v1/profiles?" + vals.Encode() }

	tests := []httpTest{
		{name: "Auth required", path: "/v1/profiles", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required (coach)", path: "/v1/profiles", token: getToken(t, coachAcct),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Admin required (student)", path: "/v1/profiles", token: getToken(t, stAcct),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Get all", path: "/v1/profiles", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, adminProf, coachProf, stProf),
		},
		{
			name: "role=coach", path: path(url.Values{"role": {profile.RoleCoach}}), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, coachProf),
		},
		{
			name: "role (unknown)", path: path(url.Values{"role": {"boss"}}), token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_profileApi_detail(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t, "admin@test.ar")
	acctA := testutil.CreateAccount(t, acctRepo, "a@test.ar", "lolC@t123", profile.RoleStudent)
	profA := testutil.CreateProfile(t, profRepo, acctA.ID, acctA.Email, profile.RoleStudent, true)
	acctB := testutil.CreateAccount(t, acctRepo, "b@test.ar", "lolC@t123", profile.RoleStudent)
	testutil.CreateProfile(t, profRepo, acctB.ID, acctB.Email, profile.RoleStudent, true)

	adminToken := getToken(t, admin)
	tokenA := getToken(t, acctA)
	tokenB := getToken(t, acctB)
	pathA := "/v1/profiles/" + profA.ID

	t.Run("Someone else's profile reads as missing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, pathA, tokenB)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("Owner can retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, pathA, tokenA)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, profA)}, rec)
	})

	t.Run("Admin can retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, pathA, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, profA)}, rec)
	})

	t.Run("Owner can update own contact info", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"phone": "+5491199999999", "parent_name": "Ana Aimar", "parent_phone": "+5491100000000"})
		req, rec := newAuthRequest(http.MethodPut, pathA, tokenA, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var updated profile.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if updated.Phone != "+5491199999999" {
			t.Errorf("failed! Phone = %v; want +5491199999999", updated.Phone)
		}
	})

	t.Run("Owner cannot touch admin-only fields", func(t *testing.T) {
		for _, body := range []map[string]interface{}{
			{"role": "admin"},
			{"email": "other@test.ar"},
			{"status": profile.StatusInactive},
			{"profile_completed": false},
		} {
			req, rec := newAuthRequest(http.MethodPut, pathA, tokenA, marchallObj(t, body))
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
		}
	})

	t.Run("Admin can update status", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"status": profile.StatusMoroso})
		req, rec := newAuthRequest(http.MethodPut, pathA, adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var updated profile.Profile
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if updated.Status != profile.StatusMoroso {
			t.Errorf("failed! Status = %v; want %v", updated.Status, profile.StatusMoroso)
		}
	})

	t.Run("Owner cannot delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, pathA, tokenA)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("Admin can delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, pathA, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
		req, rec = newAuthRequest(http.MethodGet, pathA, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})
}

func Test_profileApi_destroyMultiple(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t, "admin@test.ar")
	p1 := testutil.CreateProfile(t, profRepo, "", "p1@test.ar", profile.RoleStudent, true)
	p2 := testutil.CreateProfile(t, profRepo, "", "p2@test.ar", profile.RoleStudent, true)
	p3 := testutil.CreateProfile(t, profRepo, "", "p3@test.ar", profile.RoleStudent, true)
	adminToken := getToken(t, admin)

	t.Run("Admin required", func(t *testing.T) {
		acct := testutil.CreateAccount(t, acctRepo, "hero@test.ar", "lolC@t123", profile.RoleStudent)
		req, rec := newAuthRequest(http.MethodDelete, "/v1/profiles?id="+p1.ID, getToken(t, acct))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("Delete many", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/profiles?id="+p1.ID+"&id="+p2.ID, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/profiles?role=student", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, p3)}, rec)
	})
}
