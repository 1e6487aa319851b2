package conf

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Source: SourceSettings{Path: "tracker.xlsx", ColumnRange: "A:D"},
		Destination: DestinationSettings{
			Driver:         DriverPostgres,
			Host:           "localhost",
			Port:           5432,
			Database:       "tracker",
			Username:       "loader",
			Schema:         "public",
			Table:          "activity",
			ConnectTimeout: time.Second,
		},
		Load: LoadSettings{InsertProcess: "activity-loader"},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"no source", func(s *Settings) { s.Source.Path = " " }, "source.path is required"},
		{"bad range", func(s *Settings) { s.Source.ColumnRange = "A1:D9" }, "source.column_range"},
		{"bad driver", func(s *Settings) { s.Destination.Driver = "oracle" }, "destination.driver"},
		{"no host", func(s *Settings) { s.Destination.Host = "" }, "destination.host is required"},
		{"bad port", func(s *Settings) { s.Destination.Port = 70000 }, "destination.port"},
		{"injected table", func(s *Settings) { s.Destination.Table = "activity; DROP TABLE x" }, "destination.table"},
		{"bad schema", func(s *Settings) { s.Destination.Schema = "pub lic" }, "destination.schema"},
		{"sqlite needs path", func(s *Settings) {
			s.Destination.Driver = DriverSQLite
			s.Destination.Schema = ""
		}, "destination.path is required"},
		{"no provenance", func(s *Settings) { s.Load.InsertProcess = "" }, "load.insert_process"},
		{"negative timeout", func(s *Settings) { s.Load.Timeout = -time.Second }, "load.timeout"},
		{"metrics without target", func(s *Settings) { s.Metrics.Enabled = true }, "metrics.textfile_path"},
		{"telemetry without dsn", func(s *Settings) { s.Telemetry.Enabled = true }, "telemetry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Source.Path = ""
	s.Destination.Host = ""
	s.Load.InsertProcess = ""

	err := ValidateSettings(s)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestReadCredentials(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "creds.ini", testINI)
	writeFile(t, fs, "badport.ini", "[default]\nhost = h\nport = abc\n")
	writeFile(t, fs, "partial.ini", "[default]\nhost = h\n")

	creds, err := ReadCredentials(fs, "creds.ini")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", creds.Host)
	assert.Equal(t, 5433, creds.Port)
	assert.Equal(t, "tracker", creds.Database)
	assert.Empty(t, creds.Missing())

	_, err = ReadCredentials(fs, "badport.ini")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")

	creds, err = ReadCredentials(fs, "partial.ini")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"default.port", "credentials.dbname", "credentials.username", "credentials.password"}, creds.Missing())

	_, err = ReadCredentials(fs, "absent.ini")
	require.Error(t, err)
}
