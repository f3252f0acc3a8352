package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/student"
	testutil "github.com/canteraproject/cantera/tests"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G'}

func newStudentBody(t *testing.T, profileID string) []byte {
	return marchallObj(t, map[string]interface{}{
		"profile_id":    profileID,
		"first_name":    "Leo",
		"last_name":     "Aimar",
		"date_of_birth": time.Now().AddDate(-12, 0, 0).Format(time.RFC3339),
		"category":      "sub-12",
		"parent_name":   "Ana Aimar",
		"parent_phone":  "+5491100000000",
	})
}

func Test_studentApi_create(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t, "admin@test.ar")
	coach := createCoach(t, "coach@test.ar")
	prof := testutil.CreateProfile(t, profRepo, "", "leo@test.ar", profile.RoleStudent, true)

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, coach), body: newStudentBody(t, prof.ID),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"profile_id": reqMsg, "first_name": reqMsg, "last_name": reqMsg,
				"date_of_birth": reqMsg, "category": reqMsg, "parent_name": reqMsg, "parent_phone": reqMsg,
			}),
		},
		{name: "Enrolled", token: adminToken, body: newStudentBody(t, prof.ID), wantCode: http.StatusCreated},
		{
			name: "One student per profile", token: adminToken, body: newStudentBody(t, prof.ID),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "a student already exists for this profile"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var st student.Student
				if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if st.ProfileID != prof.ID {
					t.Errorf("failed! ProfileID = %v; want %v", st.ProfileID, prof.ID)
				}
				if st.QRCode == "" {
					t.Error("failed! empty QR code")
				}
				if st.PaymentStatus != profile.StatusMoroso {
					t.Errorf("failed! PaymentStatus = %v; want %v", st.PaymentStatus, profile.StatusMoroso)
				}
				if st.EnrollmentDate.IsZero() {
					t.Error("failed! EnrollmentDate not set")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_me(t *testing.T) {
	resetDB(t)

	acct, _, st := createEnrolledStudent(t, "hero@test.ar")
	lonely := testutil.CreateAccount(t, acctRepo, "lonely@test.ar", "lolC@t123", profile.RoleStudent)
	testutil.CreateProfile(t, profRepo, lonely.ID, lonely.Email, profile.RoleStudent, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Own student record", token: getToken(t, acct), wantCode: http.StatusOK, wantData: marchallObj(t, st)},
		{
			name: "No student record", token: getToken(t, lonely),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/students/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_query(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t, "admin@test.ar")
	coach := createCoach(t, "coach@test.ar")
	stAcct, _, st1 := createEnrolledStudent(t, "hero@test.ar")
	prof2 := testutil.CreateProfile(t, profRepo, "", "juan@test.ar", profile.RoleStudent, true)
	st2 := testutil.CreateStudent(t, stRepo, prof2.ID, "Juan", "Base", "sub-14")

	coachToken := getToken(t, coach)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Students cannot list students", path: "/v1/students", token: getToken(t, stAcct),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "Coach sees all", path: "/v1/students", token: coachToken, wantCode: http.StatusOK, wantData: marchallList(t, st1, st2)},
		{name: "Admin sees all", path: "/v1/students", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, st1, st2)},
		{name: "category filter", path: "/v1/students?category=sub-14", token: coachToken, wantCode: http.StatusOK, wantData: marchallList(t, st2)},
		{name: "search", path: "/v1/students?search=juan", token: coachToken, wantCode: http.StatusOK, wantData: marchallList(t, st2)},
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

func Test_studentApi_qrCode(t *testing.T) {
	resetDB(t)

	coach := createCoach(t, "coach@test.ar")
	stAcct, _, st := createEnrolledStudent(t, "hero@test.ar")
	coachToken := getToken(t, coach)

	t.Run("Coach or admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+st.ID+"/qr", getToken(t, stAcct))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("PNG credential", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+st.ID+"/qr", coachToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("failed! Content-Type = %v; want image/png", ct)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), pngHeader) {
			t.Error("failed! body is not a PNG image")
		}
	})

	t.Run("Custom size", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+st.ID+"/qr?size=128", coachToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), pngHeader) {
			t.Error("failed! body is not a PNG image")
		}
	})

	t.Run("Unknown student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/nope/qr", coachToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"})}, rec)
	})
}

func Test_studentApi_updateDestroy(t *testing.T) {
	resetDB(t)

	admin := createAdmin(t, "admin@test.ar")
	coach := createCoach(t, "coach@test.ar")
	_, _, st := createEnrolledStudent(t, "hero@test.ar")
	adminToken := getToken(t, admin)
	path := "/v1/students/" + st.ID

	t.Run("Coach cannot update", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"payment_status": profile.StatusActive})
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, coach), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("Admin updates payment status", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"payment_status": profile.StatusActive, "category": "sub-14"})
		req, rec := newAuthRequest(http.MethodPut, path, adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var updated student.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if updated.PaymentStatus != profile.StatusActive {
			t.Errorf("failed! PaymentStatus = %v; want %v", updated.PaymentStatus, profile.StatusActive)
		}
		if updated.Category != "sub-14" {
			t.Errorf("failed! Category = %v; want sub-14", updated.Category)
		}
		if updated.QRCode != st.QRCode {
			t.Error("failed! QR code must not change on update")
		}
	})

	t.Run("Invalid payment status", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"payment_status": "broke"})
		req, rec := newAuthRequest(http.MethodPut, path, adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("Admin deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
		req, rec = newAuthRequest(http.MethodGet, path, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"})}, rec)
	})
}
