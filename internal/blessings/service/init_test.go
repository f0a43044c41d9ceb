package service

import (
	"log"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"gitlab.com/gitlab-org/blessings/internal/blessings/datastore/glsql"
	"gitlab.com/gitlab-org/blessings/internal/testhelper"
)

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	defer testhelper.Configure()()

	gin.SetMode(gin.TestMode)

	code := m.Run()
	if err := glsql.Clean(); err != nil {
		log.Fatalln(err, "database disconnection failure")
	}
	return code
}
