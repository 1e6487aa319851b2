package conf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/ini.v1"

	"github.com/tphakala/activity-loader/internal/errors"
	"github.com/tphakala/activity-loader/internal/secrets"
)

// INI sections and keys of the credential file:
//
//	[default]
//	host = db.example.org
//	port = 5432
//
//	[credentials]
//	dbname = tracker
//	username = loader
//	password = secret
const (
	sectionDefault     = "default"
	sectionCredentials = "credentials"
)

// Credentials holds the connection values found in the credential file.
// Missing keys are left empty.
type Credentials struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Path     string // file the values came from

	missing []string
}

// Missing lists the "section.key" entries absent from the file.
func (c *Credentials) Missing() []string {
	return c.missing
}

// ReadCredentials parses the credential file at path.
func ReadCredentials(fs afero.Fs, path string) (*Credentials, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.ConfigError(fmt.Errorf("credential file not found or unreadable: %s: %w", path, err)).
			Context("credentials_file", path).
			Build()
	}

	file, err := ini.Load(data)
	if err != nil {
		return nil, errors.ConfigError(fmt.Errorf("credential file %s is not valid INI: %w", path, err)).
			Context("credentials_file", path).
			Build()
	}

	creds := &Credentials{Path: path}
	lookup := func(section, key string) string {
		value := ""
		if s, err := file.GetSection(section); err == nil && s.HasKey(key) {
			value = strings.TrimSpace(s.Key(key).String())
		}
		if value == "" {
			creds.missing = append(creds.missing, section+"."+key)
		}
		return value
	}

	creds.Host = lookup(sectionDefault, "host")
	if port := lookup(sectionDefault, "port"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return nil, errors.ConfigError(fmt.Errorf("credential file %s: invalid port %q", path, port)).
				Context("credentials_file", path).
				Build()
		}
		creds.Port = n
	}
	creds.Database = lookup(sectionCredentials, "dbname")
	creds.Username = lookup(sectionCredentials, "username")
	creds.Password = lookup(sectionCredentials, "password")

	return creds, nil
}

// mergeCredentials fills empty destination fields from the credential file.
// Values already set by the config file, environment or flags win. The
// file is not consulted for sqlite, which needs no credentials.
func (s *Settings) mergeCredentials(fs afero.Fs) error {
	path := strings.TrimSpace(s.Credentials.File)
	if path == "" || strings.EqualFold(s.Destination.Driver, DriverSQLite) {
		return nil
	}

	creds, err := ReadCredentials(fs, path)
	if err != nil {
		return err
	}

	d := &s.Destination
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&d.Host, creds.Host)
	fill(&d.Database, creds.Database)
	fill(&d.Username, creds.Username)
	fill(&d.Password, creds.Password)
	if d.Port == 0 {
		d.Port = creds.Port
	}

	// A key missing from the file is fatal only when nothing else set it.
	var unresolved []string
	for _, key := range creds.Missing() {
		if !d.hasCredentialValue(key) {
			unresolved = append(unresolved, key)
		}
	}
	if len(unresolved) > 0 {
		return errors.ConfigError(fmt.Errorf("credential file %s is missing %s", path, strings.Join(unresolved, ", "))).
			Context("credentials_file", path).
			Build()
	}

	return nil
}

func (d *DestinationSettings) hasCredentialValue(key string) bool {
	switch key {
	case "default.host":
		return d.Host != ""
	case "default.port":
		return d.Port != 0
	case "credentials.dbname":
		return d.Database != ""
	case "credentials.username":
		return d.Username != ""
	case "credentials.password":
		return d.Password != ""
	default:
		return true
	}
}

// resolvePassword replaces the password with the content of
// destination.password_file, or expands ${VAR} references in it. It runs
// before the credential file is merged, so a resolved password wins.
func (s *Settings) resolvePassword(fs afero.Fs) error {
	d := &s.Destination
	if strings.EqualFold(d.Driver, DriverSQLite) {
		return nil
	}

	password, file, err := secrets.Resolve(fs, d.PasswordFile, d.Password)
	if err != nil {
		return errors.ConfigError(err).
			Context("setting", "destination.password").
			Build()
	}
	d.Password = password

	if file.Permissive {
		s.Warnings = append(s.Warnings, fmt.Sprintf("password file %s is readable by group or others", file.Path))
	}
	return nil
}
