package inmemdb

import (
	"sync"

	"github.com/canteraproject/cantera/core/account"
	"github.com/canteraproject/cantera/core/attendance"
	"github.com/canteraproject/cantera/core/fee"
	"github.com/canteraproject/cantera/core/news"
	"github.com/canteraproject/cantera/core/profile"
	"github.com/canteraproject/cantera/core/student"
)

type (
	accountTable struct {
		mutex sync.RWMutex
		table map[string]*account.Account
	}
	profileTable struct {
		mutex sync.RWMutex
		table map[string]*profile.Profile
	}
	studentTable struct {
		mutex sync.RWMutex
		table map[string]*student.Student
	}
	feeTable struct {
		mutex sync.RWMutex
		table map[string]*fee.Fee
	}
	attendanceTable struct {
		mutex sync.RWMutex
		table map[attendanceKey]*attendance.Record
	}
	newsTable struct {
		mutex sync.RWMutex
		table map[string]*news.Item
	}

	// DB is an in-memory store for tests and local hacking.
	DB struct {
		account    *accountTable
		profile    *profileTable
		student    *studentTable
		fee        *feeTable
		attendance *attendanceTable
		news       *newsTable
	}
)

func NewDB() *DB {
	return &DB{
		account:    &accountTable{table: make(map[string]*account.Account)},
		profile:    &profileTable{table: make(map[string]*profile.Profile)},
		student:    &studentTable{table: make(map[string]*student.Student)},
		fee:        &feeTable{table: make(map[string]*fee.Fee)},
		attendance: &attendanceTable{table: make(map[attendanceKey]*attendance.Record)},
		news:       &newsTable{table: make(map[string]*news.Item)},
	}
}

// Reset empties every table. Test helper.
func (db *DB) Reset() {
	db.account.mutex.Lock()
	db.account.table = make(map[string]*account.Account)
	db.account.mutex.Unlock()

	db.profile.mutex.Lock()
	db.profile.table = make(map[string]*profile.Profile)
	db.profile.mutex.Unlock()

	db.student.mutex.Lock()
	db.student.table = make(map[string]*student.Student)
	db.student.mutex.Unlock()

	db.fee.mutex.Lock()
	db.fee.table = make(map[string]*fee.Fee)
	db.fee.mutex.Unlock()

	db.attendance.mutex.Lock()
	db.attendance.table = make(map[attendanceKey]*attendance.Record)
	db.attendance.mutex.Unlock()

	db.news.mutex.Lock()
	db.news.table = make(map[string]*news.Item)
	db.news.mutex.Unlock()
}
