package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/afero"
	"gopkg.in/guregu/null.v3"
	"gopkg.in/yaml.v3"
)

// Overrides are the scalar settings that can come from the environment or
// from flags. Only valid fields are applied.
type Overrides struct {
	Endpoint       null.String `envconfig:"MAILCDP_ENDPOINT"`
	ProfilePath    null.String `envconfig:"MAILCDP_PROFILE"`
	PollAttempts   null.Int    `envconfig:"MAILCDP_POLL_ATTEMPTS"`
	PollIntervalMS null.Int    `envconfig:"MAILCDP_POLL_INTERVAL_MS"`
	AttachVisible  null.Bool   `envconfig:"MAILCDP_ATTACH_VISIBLE"`
}

// Apply returns o with every valid field of other copied over it.
func (o Overrides) Apply(other Overrides) Overrides {
	if other.Endpoint.Valid && other.Endpoint.String != "" {
		o.Endpoint = other.Endpoint
	}
	if other.ProfilePath.Valid && other.ProfilePath.String != "" {
		o.ProfilePath = other.ProfilePath
	}
	if other.PollAttempts.Valid {
		o.PollAttempts = other.PollAttempts
	}
	if other.PollIntervalMS.Valid {
		o.PollIntervalMS = other.PollIntervalMS
	}
	if other.AttachVisible.Valid {
		o.AttachVisible = other.AttachVisible
	}
	return o
}

// ApplyTo writes the valid overrides onto p.
func (o Overrides) ApplyTo(p Profile) Profile {
	if o.Endpoint.Valid && o.Endpoint.String != "" {
		p.Endpoint = o.Endpoint.String
	}
	if o.PollAttempts.Valid {
		p.Poll.Attempts = int(o.PollAttempts.Int64)
	}
	if o.PollIntervalMS.Valid {
		p.Poll.Interval = time.Duration(o.PollIntervalMS.Int64) * time.Millisecond
	}
	if o.AttachVisible.Valid {
		p.AttachVisible = o.AttachVisible.Bool
	}
	return p
}

// ReadEnv reads MAILCDP_* variables through lookup. A nil lookup uses the
// process environment.
func ReadEnv(lookup func(key string) (string, bool)) (Overrides, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var o Overrides
	if err := envconfig.Process("", &o, lookup); err != nil {
		return Overrides{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return o, nil
}

// LoadProfile returns DefaultProfile overlaid with the YAML file at path.
// An empty path returns the defaults.
func LoadProfile(fs afero.Fs, path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var file Profile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return merge(p, file), nil
}

// merge overlays the non-zero values of file onto base. Field accessors are
// merged per field; the close list is replaced as a whole.
func merge(base, file Profile) Profile {
	if file.Endpoint != "" {
		base.Endpoint = file.Endpoint
	}
	if file.AttachVisible {
		base.AttachVisible = true
	}
	if file.Target.URLPattern != "" {
		base.Target.URLPattern = file.Target.URLPattern
	}
	if file.Target.ExcludePattern != "" {
		base.Target.ExcludePattern = file.Target.ExcludePattern
	}
	if file.Poll.Attempts != 0 {
		base.Poll.Attempts = file.Poll.Attempts
	}
	if file.Poll.Interval != 0 {
		base.Poll.Interval = file.Poll.Interval
	}
	if file.Poll.MutationAttempts != 0 {
		base.Poll.MutationAttempts = file.Poll.MutationAttempts
	}

	s, fs := &base.Surface, file.Surface
	for dst, src := range map[*string]string{
		&s.Registry: fs.Registry,
		&s.App:      fs.App,
		&s.Open:     fs.Open,
		&s.Save:     fs.Save,
		&s.Dirty:    fs.Dirty,
	} {
		if src != "" {
			*dst = src
		}
	}
	if len(fs.Fields) > 0 {
		fields := make(map[string]FieldAccessor, len(s.Fields)+len(fs.Fields))
		for name, f := range s.Fields {
			fields[name] = f
		}
		for name, f := range fs.Fields {
			if f.Match == "" {
				f.Match = fields[name].Match
			}
			fields[name] = f
		}
		s.Fields = fields
	}
	if len(fs.Close) > 0 {
		s.Close = append([]ActionDescriptor(nil), fs.Close...)
	}
	return base
}

// Resolve builds the effective profile: defaults, then the profile file,
// then the environment, then flags. The profile path itself may come from
// the environment or flags.
func Resolve(fs afero.Fs, flags Overrides, lookup func(key string) (string, bool)) (Profile, error) {
	env, err := ReadEnv(lookup)
	if err != nil {
		return Profile{}, err
	}
	effective := env.Apply(flags)

	p, err := LoadProfile(fs, effective.ProfilePath.String)
	if err != nil {
		return Profile{}, err
	}
	p = effective.ApplyTo(p)

	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}
