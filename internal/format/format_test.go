package format_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basilisklabs/jsonschema/internal/format"
	"github.com/basilisklabs/jsonschema/internal/schemair"
)

func TestRecognized_DraftGating(t *testing.T) {
	assert.True(t, format.Recognized(schemair.Draft4, "date-time"))
	assert.False(t, format.Recognized(schemair.Draft4, "uri-reference"))
	assert.True(t, format.Recognized(schemair.Draft6, "uri-reference"))
	assert.False(t, format.Recognized(schemair.Draft6, "time"))
	assert.True(t, format.Recognized(schemair.Draft7, "time"))
}

func TestCheck_DateTime(t *testing.T) {
	r := format.New()
	assert.True(t, r.Check("date-time", "2026-08-03T10:00:00Z"))
	assert.False(t, r.Check("date-time", "not-a-date"))
}

func TestCheck_Date_RejectsInvalidCalendarDate(t *testing.T) {
	r := format.New()
	assert.True(t, r.Check("date", "2024-02-29"), "2024 is a leap year")
	assert.False(t, r.Check("date", "2023-02-29"), "2023 is not a leap year")
	assert.False(t, r.Check("date", "2023-13-01"))
}

func TestCheck_IPv4(t *testing.T) {
	r := format.New()
	assert.True(t, r.Check("ipv4", "192.168.1.1"))
	assert.False(t, r.Check("ipv4", "999.1.1.1"))
}

func TestCheck_UnknownFormatAlwaysPasses(t *testing.T) {
	r := format.New()
	assert.True(t, r.Check("x-vendor-format", "anything"))
}

func TestSetValidator_OverridesOverridableSlot(t *testing.T) {
	r := format.New()
	r.SetValidator("email", func(s string) bool { return s == "only@this.one" })
	assert.True(t, r.Check("email", "only@this.one"))
	assert.False(t, r.Check("email", "someone@example.com"))
}

func TestSetValidator_IgnoresNonOverridableName(t *testing.T) {
	r := format.New()
	r.SetValidator("date-time", func(s string) bool { return true })
	assert.False(t, r.Check("date-time", "garbage"), "date-time is not a pluggable slot")
}
