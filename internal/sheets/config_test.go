package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "oauth credentials",
			config: Config{
				ClientID:      "id",
				ClientSecret:  "secret",
				RefreshToken:  "token",
				RetryAttempts: 3,
			},
			wantErr: false,
		},
		{
			name: "service account",
			config: Config{
				ServiceAccountPath: "/tmp/key.json",
				RetryAttempts:      3,
			},
			wantErr: false,
		},
		{
			name:    "no authentication",
			config:  Config{RetryAttempts: 3},
			wantErr: true,
		},
		{
			name: "both authentication methods",
			config: Config{
				ClientID:           "id",
				ClientSecret:       "secret",
				RefreshToken:       "token",
				ServiceAccountPath: "/tmp/key.json",
			},
			wantErr: true,
		},
		{
			name: "negative retry attempts",
			config: Config{
				ServiceAccountPath: "/tmp/key.json",
				RetryAttempts:      -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrepareReportData(t *testing.T) {
	w := &Writer{config: DefaultConfig()}

	report := &Report{
		FileID: "file-1",
	}
	values := w.prepareReportData(report)
	assert.Equal(t, "Spending Leak Report", values[0][0])
	assert.Equal(t, "file-1", values[1][1])
}
