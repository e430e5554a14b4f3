package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("CSV_DELIMITER", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "~", cfg.Export.Delimiter)
	assert.Equal(t, ".edu", cfg.CheckIn.InstitutionSuffix)
	assert.True(t, cfg.CheckIn.StrictEventValidation)
}

func TestLoadRelayUpstreams(t *testing.T) {
	t.Setenv("RELAY_TARGETS", "check_in, change_email ,missing")
	t.Setenv("CHECK_IN_URL", "https://fn.example/checkInToEvent")
	t.Setenv("CHANGE_EMAIL_URL", "https://fn.example/changeEmail")
	t.Setenv("MISSING_URL", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"CHECK_IN_URL":     "https://fn.example/checkInToEvent",
		"CHANGE_EMAIL_URL": "https://fn.example/changeEmail",
	}, cfg.Relay.Upstreams)
}

func TestLoadValidates(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "firestore")
	t.Setenv("FIRESTORE_PROJECT_ID", "")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CSV_DELIMITER", ";;")
	_, err = Load()
	assert.Error(t, err)
}

func TestTriggerEventNormalized(t *testing.T) {
	t.Setenv("CHECKIN_EMAIL_TRIGGER_TAG", "  Opening ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "opening", cfg.CheckIn.TriggerEvent)
}
