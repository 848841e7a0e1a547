package entryscore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultScoresExportedHandler(t *testing.T) {
	r := Default(Input{Name: "HandleRequest", IsExported: true, CalleeCount: 1, CallerCount: 0, FilePath: "server.go"})
	assert.Equal(t, 2+3+1, r.Score)
	assert.Contains(t, r.Reasons, "exported")
	assert.Contains(t, r.Reasons, "handler-like name")
}

func TestDefaultControllerSuffix(t *testing.T) {
	r := Default(Input{Name: "UserController", IsExported: false, FilePath: "user.go"})
	assert.Equal(t, 3, r.Score)
}

func TestDefaultFanOutBonusCapped(t *testing.T) {
	r := Default(Input{Name: "dispatch", CalleeCount: 100, CallerCount: 0, FilePath: "dispatch.go"})
	assert.Equal(t, fanOutCap, r.Score)
}

func TestDefaultTestFilePenalty(t *testing.T) {
	r := Default(Input{Name: "foo", IsExported: true, FilePath: "foo_test.go"})
	assert.Equal(t, 1, r.Score) // +2 exported, -1 test file
}

func TestDefaultFloorsAtZero(t *testing.T) {
	r := Default(Input{Name: "foo", IsExported: false, FilePath: "foo_test.go"})
	assert.Equal(t, 0, r.Score)
}

func TestIsTestFile(t *testing.T) {
	assert.True(t, IsTestFile("pkg/foo_test.go"))
	assert.True(t, IsTestFile("src/component.test.ts"))
	assert.True(t, IsTestFile("src/component.spec.js"))
	assert.True(t, IsTestFile("tests/helper.py"))
	assert.False(t, IsTestFile("pkg/foo.go"))
}
