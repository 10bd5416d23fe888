package identity

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentReturnsNonEmpty(t *testing.T) {
	p := Current()
	assert.NotEmpty(t, p.Host)
	assert.Equal(t, os.Getpid(), p.PID)
	assert.NotEmpty(t, p.RunTag)
}

func TestGetHostReturnsHostname(t *testing.T) {
	expected, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, expected, getHost())
}

func TestRunTagEnvOverride(t *testing.T) {
	t.Setenv(EnvRunTag, "builder-1")
	assert.Equal(t, "builder-1", getRunTag())
}

func TestGenerateRunTagFormat(t *testing.T) {
	tag := generateRunTag()
	assert.Regexp(t, regexp.MustCompile(`^run-[0-9a-f]{4}$`), tag)
}

func TestGenerateRunTagDeterministicWithinProcess(t *testing.T) {
	assert.Equal(t, generateRunTag(), generateRunTag())
}

func TestRecordMatchesCurrentProcess(t *testing.T) {
	p := Current()
	rec := p.Record()
	assert.Equal(t, p.Host, rec.Host)
	assert.Equal(t, p.PID, rec.PID)
	assert.Equal(t, p.StartNS, rec.PIDStartNS)
}
