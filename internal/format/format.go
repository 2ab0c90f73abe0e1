// Package format implements the "format" keyword's predicate library: a
// fixed set of regex/stdlib-backed checks for the formats every draft knows
// about, plus a pluggable registry for the handful (uri, uri-reference,
// uri-template, email) the spec calls out as host-overridable (§6).
package format

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"github.com/basilisklabs/jsonschema/internal/schemair"
)

// Registry holds the overridable predicate slots. The zero value is not
// ready to use; call New to get sensible defaults.
type Registry struct {
	overridable map[string]func(string) bool
}

// New returns a Registry with the four overridable slots set to reasonable
// stdlib-backed defaults.
func New() *Registry {
	r := &Registry{overridable: make(map[string]func(string) bool, 4)}
	r.overridable["uri"] = isURI
	r.overridable["uri-reference"] = isURIReference
	r.overridable["uri-template"] = isURITemplate
	r.overridable["email"] = isEmail
	return r
}

// SetValidator overrides one of the pluggable slots (uri, uri-reference,
// uri-template, email). Names outside that set are ignored: those formats
// are not pluggable per §6.
func (r *Registry) SetValidator(name string, fn func(string) bool) {
	if _, ok := r.overridable[name]; !ok {
		return
	}
	if fn == nil {
		delete(r.overridable, name)
		return
	}
	r.overridable[name] = fn
}

// Recognized reports whether tag is a format keyword known to draft.
func Recognized(draft schemair.Draft, tag string) bool {
	switch tag {
	case "date-time", "uri", "email", "ipv4", "ipv6", "hostname":
		return true
	case "uri-reference", "uri-template", "json-pointer":
		return draft >= schemair.Draft6
	case "time", "date", "iri", "iri-reference", "idn-hostname",
		"relative-json-pointer", "regex", "idn-email":
		return draft >= schemair.Draft7
	default:
		return false
	}
}

// Check runs the predicate for tag against s. Unknown formats return true
// (ignored, per §4.4.d); idn-email is intentionally unchecked (accept-only).
func (r *Registry) Check(tag, s string) bool {
	if fn, ok := r.overridable[tag]; ok {
		return fn(s)
	}
	switch tag {
	case "date-time":
		return dateTimeRE.MatchString(s)
	case "date":
		return dateRE.MatchString(s) && validCalendarDate(s)
	case "time":
		return timeRE.MatchString(s)
	case "ipv4":
		return ipv4RE.MatchString(s)
	case "ipv6":
		return isIPv6(s)
	case "hostname":
		return hostnameRE.MatchString(s) && len(s) <= 253
	case "idn-hostname":
		return idnHostnameRE.MatchString(s) && len(s) <= 253
	case "iri":
		return isURI(s)
	case "iri-reference":
		return isURIReference(s)
	case "json-pointer":
		return jsonPointerRE.MatchString(s)
	case "relative-json-pointer":
		return relJSONPointerRE.MatchString(s)
	case "regex":
		_, err := regexp.Compile(s)
		return err == nil
	case "idn-email":
		return true
	default:
		return true
	}
}

var (
	dateTimeRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[Tt]\d{2}:\d{2}:\d{2}(\.\d+)?([Zz]|[+-]\d{2}:\d{2})$`)
	dateRE     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRE     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?([Zz]|[+-]\d{2}:\d{2})$`)
	ipv4RE     = regexp.MustCompile(`^(25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d)(\.(25[0-5]|2[0-4]\d|1\d{2}|[1-9]?\d)){3}$`)
	hostnameRE = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)
	// idn-hostname widens the label alphabet to arbitrary non-space unicode,
	// same length rules as hostname.
	idnHostnameRE    = regexp.MustCompile(`^[^\s.]([^\s.]{0,61}[^\s.])?(\.[^\s.]([^\s.]{0,61}[^\s.])?)*$`)
	jsonPointerRE    = regexp.MustCompile(`^(/([^~/]|~0|~1)*)*$`)
	relJSONPointerRE = regexp.MustCompile(`^(0|[1-9][0-9]*)(#|(/([^~/]|~0|~1)*)*)$`)
)

func validCalendarDate(s string) bool {
	var y, m, d int
	if n, err := fmtSscanDate(s, &y, &m, &d); err != nil || n != 3 {
		return false
	}
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	days := []int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	max := days[m-1]
	if m == 2 && isLeap(y) {
		max = 29
	}
	return d <= max
}

func isLeap(y int) bool { return y%4 == 0 && (y%100 != 0 || y%400 == 0) }

func fmtSscanDate(s string, y, m, d *int) (int, error) {
	// Deliberately avoids fmt.Sscanf's leniency with signs/whitespace: the
	// regex above already pins the shape to exactly YYYY-MM-DD.
	*y = atoi(s[0:4])
	*m = atoi(s[5:7])
	*d = atoi(s[8:10])
	return 3, nil
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func isIPv6(s string) bool {
	if strings.Contains(s, "%") {
		return false // zone IDs are not part of the JSON Schema ipv6 format
	}
	ip := net.ParseIP(s)
	return ip != nil && strings.Contains(s, ":")
}

func isURI(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs()
}

func isURIReference(s string) bool {
	_, err := url.Parse(s)
	return err == nil
}

var uriTemplateRE = regexp.MustCompile(`^([^{}]|\{[+#./;?&=,!@|]?[A-Za-z0-9_.]+(:[0-9]+|\*)?(,[A-Za-z0-9_.]+(:[0-9]+|\*)?)*\})*$`)

func isURITemplate(s string) bool {
	if uriTemplateRE.MatchString(s) {
		return true
	}
	// A URI-template with no expressions is just a URI-reference.
	return isURIReference(s)
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s
}
