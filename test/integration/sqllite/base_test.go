package sqllite

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
)

var fileSeq int32 = 0

// runTestWithSetup points the repository dialect helpers at SQLite and
// hands the test a fresh database file, removed afterwards.
func runTestWithSetup(t *testing.T, testFunc func(t *testing.T, filename string)) {
	seq := atomic.AddInt32(&fileSeq, 1)
	filename := fmt.Sprintf("approvalflow-test-%d.db", seq)
	defer os.Remove(filename)
	os.Setenv("AFLOW_DATABASE_TYPE", "SQLLITE")
	os.Setenv("AFLOW_DATABASE_SQLLITE_FILE_NAME", filename)
	testFunc(t, filename)
}
