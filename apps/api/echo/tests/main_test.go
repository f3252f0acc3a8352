package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	. "github.com/canteraproject/cantera/apps/api/echo"
	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/attendance"
	"github.com/canteraproject/cantera/core/fee"
	"github.com/canteraproject/cantera/core/news"
	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/registration"
	"github.com/canteraproject/cantera/core/session"
	"github.com/canteraproject/cantera/core/student"
	emailsvc "github.com/canteraproject/cantera/services/email"
	pdfsvc "github.com/canteraproject/cantera/services/pdf"
	whatsappsvc "github.com/canteraproject/cantera/services/whatsapp"
	inmemdb "github.com/canteraproject/cantera/storage/database/inmem"
	"github.com/canteraproject/cantera/storage/sessions"
	testutil "github.com/canteraproject/cantera/tests"
)

var (
	db  *inmemdb.DB
	app Server

	acctRepo account.Repository
	profRepo profile.Repository
	stRepo   student.Repository
	feeRepo  fee.Repository

	accountSvc   *account.Service
	newsSvc      *news.Service
	bootstrapper *session.Bootstrapper
	sessionStore account.SessionStore

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func TestMain(m *testing.M) {
	conf := testutil.NewTestConfig()
	logger := testutil.Logger{}

	// set up DB & repos
	db = inmemdb.NewDB()
	acctRepo = inmemdb.NewAccountRepository(db)
	profRepo = inmemdb.NewProfileRepository(db)
	stRepo = inmemdb.NewStudentRepository(db)
	feeRepo = inmemdb.NewFeeRepository(db)
	attRepo := inmemdb.NewAttendanceRepository(db)
	newsRepo := inmemdb.NewNewsRepository(db)

	sessionStore = sessions.NewInmemStore()

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	textSvc := whatsappsvc.NewConsoleServiceMock()
	receipts := pdfsvc.NewReceiptGenerator()

	profileSvc := profile.NewService(profRepo)
	accountSvc = account.NewService(acctRepo, sessionStore, conf)
	studentSvc := student.NewService(stRepo, profileSvc)
	feeSvc := fee.NewService(feeRepo, studentSvc, mailSvc, textSvc, receipts, logger, conf)
	newsSvc = news.NewService(newsRepo)
	registrationSvc := registration.NewService(accountSvc, profileSvc, studentSvc, mailSvc, logger)
	bootstrapper = session.NewBootstrapper(profileSvc)

	// set up validation
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	attendanceSvc := attendance.NewService(attRepo, validate)

	// set up server
	app = NewServer(
		"", /* addr */
		&Deps{
			Conf:            conf,
			Logger:          logger,
			AccountSvc:      accountSvc,
			ProfileSvc:      profileSvc,
			StudentSvc:      studentSvc,
			FeeSvc:          feeSvc,
			AttendanceSvc:   attendanceSvc,
			NewsSvc:         newsSvc,
			RegistrationSvc: registrationSvc,
			Bootstrapper:    bootstrapper,
			Validate:        validate,
			Translator:      translator,
		},
	)

	os.Exit(m.Run())
}

func resetDB(t *testing.T) {
	t.Helper()
	db.Reset()
	emailsvc.ClearSentMessages()
	whatsappsvc.ClearSentTexts()
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// getToken opens a server-side session for the account and signs a token
// tied to it, the same way the login endpoint does.
func getToken(t *testing.T, acct account.Account) string {
	t.Helper()
	ctx := context.Background()

	sess, err := bootstrapper.Bootstrap(ctx, acct)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	sessionID := uuid.New().String()
	if err = sessionStore.PutSession(ctx, sessionID, acct.ID, core.Conf.Server.SessionTTL); err != nil {
		t.Fatalf("getToken(): %v", err)
	}

	token, err := GenerateToken(GetSessionClaims(sess, sessionID))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createAdmin(t *testing.T, email string) account.Account {
	t.Helper()
	acct := testutil.CreateAccount(t, acctRepo, email, "lolC@t123", profile.RoleAdmin)
	testutil.CreateProfile(t, profRepo, acct.ID, email, profile.RoleAdmin, true)
	return acct
}

func createCoach(t *testing.T, email string) account.Account {
	t.Helper()
	acct := testutil.CreateAccount(t, acctRepo, email, "lolC@t123", profile.RoleCoach)
	testutil.CreateProfile(t, profRepo, acct.ID, email, profile.RoleCoach, true)
	return acct
}

func createEnrolledStudent(t *testing.T, email string) (account.Account, profile.Profile, student.Student) {
	t.Helper()
	acct := testutil.CreateAccount(t, acctRepo, email, "lolC@t123", profile.RoleStudent)
	prof := testutil.CreateProfile(t, profRepo, acct.ID, email, profile.RoleStudent, true)
	st := testutil.CreateStudent(t, stRepo, prof.ID, "Leo", "Aimar", "sub-12")
	return acct, prof, st
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		// handlers render empty result sets as [], never null
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	l1, ok1 := j1.([]interface{})
	l2, ok2 := j2.([]interface{})
	if ok1 && ok2 {
		return assert.ElementsMatch(t, l1, l2), nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
