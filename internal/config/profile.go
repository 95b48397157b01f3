package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/mailcdp/internal/target"
)

// Field match modes for read-after-write checks.
const (
	MatchEqual    = "equal"
	MatchContains = "contains"
)

// Close candidate receivers.
const (
	OnDraft = "draft"
	OnApp   = "app"
)

// Well-known field names.
const (
	FieldSubject = "subject"
	FieldTo      = "to"
	FieldCc      = "cc"
	FieldBcc     = "bcc"
	FieldBody    = "body"
)

// Profile is the complete automation configuration.
type Profile struct {
	Endpoint      string        `yaml:"endpoint"`
	AttachVisible bool          `yaml:"attachVisible"`
	Target        TargetProfile `yaml:"target"`
	Poll          PollProfile   `yaml:"poll"`
	Surface       Surface       `yaml:"surface"`
}

// TargetProfile holds the regular expressions selecting the app window.
type TargetProfile struct {
	URLPattern     string `yaml:"urlPattern"`
	ExcludePattern string `yaml:"excludePattern"`
}

// PollProfile bounds every poll loop.
type PollProfile struct {
	Attempts         int           `yaml:"attempts"`
	Interval         time.Duration `yaml:"interval"`
	MutationAttempts int           `yaml:"mutationAttempts"`
}

// Surface describes the remote compose object graph.
type Surface struct {
	// Registry evaluates to a Map or plain object of open compose sessions
	// keyed by draft key, in creation order.
	Registry string `yaml:"registry"`
	// App evaluates to the object receiving app-level close candidates.
	App string `yaml:"app"`
	// Open is an expression that starts a new compose session.
	Open string `yaml:"open"`
	// Fields maps field names to their accessors on a session.
	Fields map[string]FieldAccessor `yaml:"fields"`
	// Save names the session method that saves the draft.
	Save string `yaml:"save"`
	// Dirty is the session property path of the unsaved-changes flag.
	Dirty string `yaml:"dirty"`
	// Close lists close/discard entry points in preference order.
	Close []ActionDescriptor `yaml:"close"`
}

// FieldAccessor reads and writes one field of a compose session.
type FieldAccessor struct {
	// Get is a property path on the session. A trailing "()" calls it.
	Get string `yaml:"get"`
	// Set names the setter method. Empty assigns the Get path directly.
	Set string `yaml:"set"`
	// Match is MatchEqual or MatchContains.
	Match string `yaml:"match"`
}

// ActionDescriptor is one candidate remote method.
type ActionDescriptor struct {
	Method string `yaml:"method"`
	// On is OnDraft (called on the session) or OnApp (called on Surface.App
	// with the draft key).
	On string `yaml:"on"`
}

func (a ActionDescriptor) String() string {
	return a.On + "." + a.Method
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() Profile {
	return Profile{
		Endpoint: "127.0.0.1:9222",
		Target: TargetProfile{
			URLPattern:     `^(app|file|https?)://`,
			ExcludePattern: `(?i)background|devtools://`,
		},
		Poll: PollProfile{
			Attempts:         10,
			Interval:         200 * time.Millisecond,
			MutationAttempts: 3,
		},
		Surface: Surface{
			Registry: "window.MailApp.composer.sessions",
			App:      "window.MailApp.composer",
			Open:     "window.MailApp.composer.newCompose()",
			Fields: map[string]FieldAccessor{
				FieldSubject: {Get: "subject", Set: "setSubject", Match: MatchEqual},
				FieldTo:      {Get: "to", Set: "setTo", Match: MatchEqual},
				FieldCc:      {Get: "cc", Set: "setCc", Match: MatchEqual},
				FieldBcc:     {Get: "bcc", Set: "setBcc", Match: MatchEqual},
				FieldBody:    {Get: "body", Set: "setBody", Match: MatchContains},
			},
			Save:  "save",
			Dirty: "isDirty",
			Close: []ActionDescriptor{
				{Method: "discard", On: OnDraft},
				{Method: "close", On: OnDraft},
				{Method: "closeCompose", On: OnApp},
			},
		},
	}
}

// Rule compiles the target match rule.
func (p Profile) Rule() (target.MatchRule, error) {
	return target.CompileRule(p.Target.URLPattern, p.Target.ExcludePattern)
}

// Validate reports every problem with the profile at once.
func (p Profile) Validate() error {
	var errs []error

	if strings.TrimSpace(p.Endpoint) == "" {
		errs = append(errs, errors.New("endpoint is required"))
	}
	if _, err := p.Rule(); err != nil {
		errs = append(errs, err)
	}
	if p.Poll.Attempts < 1 {
		errs = append(errs, fmt.Errorf("poll.attempts must be at least 1, got %d", p.Poll.Attempts))
	}
	if p.Poll.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval must be positive, got %s", p.Poll.Interval))
	}
	if p.Poll.MutationAttempts < 1 {
		errs = append(errs, fmt.Errorf("poll.mutationAttempts must be at least 1, got %d", p.Poll.MutationAttempts))
	}

	s := p.Surface
	if s.Registry == "" {
		errs = append(errs, errors.New("surface.registry is required"))
	}
	if s.Open == "" {
		errs = append(errs, errors.New("surface.open is required"))
	}
	if s.Save == "" {
		errs = append(errs, errors.New("surface.save is required"))
	}
	if s.Dirty == "" {
		errs = append(errs, errors.New("surface.dirty is required"))
	}
	for name, f := range s.Fields {
		if f.Get == "" {
			errs = append(errs, fmt.Errorf("surface.fields.%s.get is required", name))
		}
		if f.Match != "" && f.Match != MatchEqual && f.Match != MatchContains {
			errs = append(errs, fmt.Errorf("surface.fields.%s.match must be %q or %q, got %q", name, MatchEqual, MatchContains, f.Match))
		}
	}
	if len(s.Close) == 0 {
		errs = append(errs, errors.New("surface.close needs at least one candidate"))
	}
	for i, c := range s.Close {
		if c.Method == "" {
			errs = append(errs, fmt.Errorf("surface.close[%d].method is required", i))
		}
		switch c.On {
		case OnDraft:
		case OnApp:
			if s.App == "" {
				errs = append(errs, fmt.Errorf("surface.close[%d] targets the app but surface.app is empty", i))
			}
		default:
			errs = append(errs, fmt.Errorf("surface.close[%d].on must be %q or %q, got %q", i, OnDraft, OnApp, c.On))
		}
	}

	return errors.Join(errs...)
}
