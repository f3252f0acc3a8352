package student_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/student"
	inmemdb "github.com/canteraproject/cantera/storage/database/inmem"
	testutil "github.com/canteraproject/cantera/tests"
)

// png magic bytes
var pngHeader = []byte{0x89, 0x50, 0x4e, 0x47}

func setupStudent(t *testing.T) (*student.Service, *inmemdb.DB) {
	t.Helper()
	testutil.NewTestConfig()
	db := inmemdb.NewDB()
	return student.NewService(inmemdb.NewStudentRepository(db), profile.NewService(inmemdb.NewProfileRepository(db))), db
}

func TestService_Create(t *testing.T) {
	svc, db := setupStudent(t)
	ctx := context.Background()

	prof := testutil.CreateProfile(t, inmemdb.NewProfileRepository(db), "", "kid@test.cantera", profile.RoleStudent, true)

	st, err := svc.Create(ctx, student.NewStudent{
		ProfileID:   prof.ID,
		FirstName:   "Leo",
		LastName:    "Aimar",
		DOB:         time.Now().UTC().AddDate(-12, 0, 0),
		Category:    "sub-12",
		ParentName:  "Ana Aimar",
		ParentPhone: "+5491100000000",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if st.PaymentStatus != profile.StatusMoroso {
		t.Errorf("PaymentStatus = %q; want %q", st.PaymentStatus, profile.StatusMoroso)
	}
	if st.QRCode == "" {
		t.Error("QRCode not assigned on enrollment")
	}
	if st.EnrollmentDate.IsZero() {
		t.Error("EnrollmentDate not set")
	}

	// one student record per profile
	_, err = svc.Create(ctx, student.NewStudent{
		ProfileID:   prof.ID,
		FirstName:   "Leo",
		LastName:    "Aimar",
		DOB:         time.Now().UTC().AddDate(-12, 0, 0),
		Category:    "sub-12",
		ParentName:  "Ana Aimar",
		ParentPhone: "+5491100000000",
	})
	if pkgerrors.Cause(err) != student.ErrStudentExists {
		t.Errorf("Create() dup error = %v; want %v", err, student.ErrStudentExists)
	}
}

func TestService_QRCodePNG(t *testing.T) {
	svc, db := setupStudent(t)
	ctx := context.Background()

	prof := testutil.CreateProfile(t, inmemdb.NewProfileRepository(db), "", "kid@test.cantera", profile.RoleStudent, true)
	st := testutil.CreateStudent(t, inmemdb.NewStudentRepository(db), prof.ID, "Leo", "Aimar", "sub-12")

	png, err := svc.QRCodePNG(ctx, st.ID, 0)
	if err != nil {
		t.Fatalf("QRCodePNG() failed: %v", err)
	}
	if !bytes.HasPrefix(png, pngHeader) {
		t.Error("QRCodePNG() did not return a PNG")
	}

	if _, err = svc.QRCodePNG(ctx, "nope", 128); pkgerrors.Cause(err) != student.ErrNotFound {
		t.Errorf("QRCodePNG() error = %v; want %v", err, student.ErrNotFound)
	}
}

func TestService_StudentContact(t *testing.T) {
	svc, db := setupStudent(t)
	ctx := context.Background()

	prof := testutil.CreateProfile(t, inmemdb.NewProfileRepository(db), "", "kid@test.cantera", profile.RoleStudent, true)
	st := testutil.CreateStudent(t, inmemdb.NewStudentRepository(db), prof.ID, "Leo", "Aimar", "sub-12")

	c, err := svc.StudentContact(ctx, st.ID)
	if err != nil {
		t.Fatalf("StudentContact() failed: %v", err)
	}
	if c.Email != "kid@test.cantera" {
		t.Errorf("Email = %q; want profile email", c.Email)
	}
	if c.Phone != st.ParentPhone {
		t.Errorf("Phone = %q; want guardian fallback %q", c.Phone, st.ParentPhone)
	}
	if c.Name != "Leo Aimar" {
		t.Errorf("Name = %q; want full name", c.Name)
	}
}

func TestService_Update(t *testing.T) {
	svc, db := setupStudent(t)
	ctx := context.Background()

	prof := testutil.CreateProfile(t, inmemdb.NewProfileRepository(db), "", "kid@test.cantera", profile.RoleStudent, true)
	st := testutil.CreateStudent(t, inmemdb.NewStudentRepository(db), prof.ID, "Leo", "Aimar", "sub-12")

	got, err := svc.Update(ctx, st.ID, student.UpdateStudent{
		FirstName:     st.FirstName,
		LastName:      st.LastName,
		DOB:           st.DOB,
		Category:      "sub-14",
		PaymentStatus: "active",
		ParentName:    st.ParentName,
		ParentPhone:   st.ParentPhone,
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if got.Category != "sub-14" || got.PaymentStatus != "active" {
		t.Errorf("Update() = %+v", got)
	}
	if got.ProfileID != st.ProfileID {
		t.Error("ProfileID changed on update")
	}
	if got.QRCode != st.QRCode {
		t.Error("QRCode changed on update")
	}
}
